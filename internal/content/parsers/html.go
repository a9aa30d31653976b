// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"errors"
	"io"
	"strings"

	"github.com/gemaraproj/credsniff/internal/content"
	"golang.org/x/net/html"
)

var errNoText = errors.New("no text in markup")

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// hiddenText elements do not contribute to rendered text.
var hiddenText = map[string]bool{
	"script": true, "style": true, "template": true,
}

// htmlNode is a markup node that remembers the source line of its start tag.
// Text nodes have an empty tag.
type htmlNode struct {
	tag      string
	text     string
	line     int
	depth    int
	parent   *htmlNode
	children []*htmlNode
}

// ExtractHTML renders markup as the user would see it and adds key=value
// records reconstructed from table headers and row chains.
func ExtractHTML(text string) (content.Candidates, error) {
	root, err := parseHTMLTree(text)
	if err != nil {
		return content.Candidates{}, err
	}

	var out content.Candidates
	var rendered strings.Builder
	renderText(root, &rendered)
	for i, line := range content.SplitLines(rendered.String()) {
		out.Add(line, i+1)
	}

	for _, table := range findAll(root, "table") {
		extractTable(table, &out)
	}

	if out.Len() == 0 {
		return content.Candidates{}, errNoText
	}
	return out, nil
}

func parseHTMLTree(text string) (*htmlNode, error) {
	root := &htmlNode{tag: "#document", line: 1}
	cur := root
	z := html.NewTokenizer(strings.NewReader(text))
	line := 1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return root, nil
		}
		start := line
		line += countLineBreaks(z.Raw())

		switch tt {
		case html.TextToken:
			cur.children = append(cur.children, &htmlNode{text: string(z.Text()), line: start, depth: cur.depth + 1, parent: cur})
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			cur = closeImplied(cur, tag)
			n := &htmlNode{tag: tag, line: start, depth: cur.depth + 1, parent: cur}
			cur.children = append(cur.children, n)
			if tt == html.StartTagToken && !voidElements[tag] && n.depth < maxNestingDepth {
				cur = n
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for n := cur; n != root; n = n.parent {
				if n.tag == tag {
					cur = n.parent
					break
				}
			}
		}
	}
}

// closeImplied closes the open cell, row or paragraph that a new tag ends.
func closeImplied(cur *htmlNode, tag string) *htmlNode {
	switch tag {
	case "td", "th":
		if n := nearest(cur, "td", "th", "tr", "table"); n != nil && (n.tag == "td" || n.tag == "th") {
			return n.parent
		}
	case "tr":
		if n := nearest(cur, "tr", "table"); n != nil && n.tag == "tr" {
			return n.parent
		}
	case "p":
		if cur.tag == "p" {
			return cur.parent
		}
	}
	return cur
}

// nearest returns the closest open ancestor (or cur itself) with one of tags.
func nearest(cur *htmlNode, tags ...string) *htmlNode {
	for n := cur; n != nil; n = n.parent {
		for _, t := range tags {
			if n.tag == t {
				return n
			}
		}
	}
	return nil
}

func countLineBreaks(raw []byte) int {
	count := 0
	for i, b := range raw {
		if b == '\n' || b == '\r' && (i+1 == len(raw) || raw[i+1] != '\n') {
			count++
		}
	}
	return count
}

// renderText writes all visible text with a line break after each paragraph.
func renderText(n *htmlNode, sb *strings.Builder) {
	if n.tag == "" {
		sb.WriteString(n.text)
		return
	}
	if hiddenText[n.tag] {
		return
	}
	for _, c := range n.children {
		renderText(c, sb)
	}
	if n.tag == "p" {
		sb.WriteString("\n")
	}
}

// cellText concatenates the trimmed visible strings below n.
func cellText(n *htmlNode) string {
	var sb strings.Builder
	var walk func(*htmlNode)
	walk = func(n *htmlNode) {
		if n.tag == "" {
			sb.WriteString(strings.TrimSpace(n.text))
			return
		}
		if hiddenText[n.tag] {
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// findAll returns the element descendants of n with one of tags in document order.
func findAll(n *htmlNode, tags ...string) []*htmlNode {
	var found []*htmlNode
	var walk func(*htmlNode)
	walk = func(n *htmlNode) {
		for _, c := range n.children {
			if c.tag == "" {
				continue
			}
			for _, t := range tags {
				if c.tag == t {
					found = append(found, c)
					break
				}
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

// extractTable pairs data cells with the header row and chains each row's
// cells to its leading cell. Both pairings are kept even when they repeat
// the same relationship.
func extractTable(table *htmlNode, out *content.Candidates) {
	var header []*string
	first := true
	for _, tr := range findAll(table, "tr") {
		var chain content.Candidates
		leading := ""
		link := func(text string, line int) {
			if leading == "" {
				leading = text
				return
			}
			chain.Add(leading+"="+text, line)
		}

		if first {
			first = false
			// a header row may be styled <td> as well as <th>
			for _, cell := range findAll(tr, "th", "td") {
				text := cellText(cell)
				if text == "" || expandMultiline(text, cell.line, out) {
					header = append(header, nil)
					continue
				}
				header = append(header, &text)
				link(text, cell.line)
				out.Add(text, cell.line)
			}
		} else {
			for i, cell := range findAll(tr, "td") {
				text := cellText(cell)
				if text == "" || expandMultiline(text, cell.line, out) {
					continue
				}
				link(text, cell.line)
				if i < len(header) && header[i] != nil {
					out.Add(*header[i]+"="+text, cell.line)
				}
			}
		}

		out.Lines = append(out.Lines, chain.Lines...)
		out.LineNumbers = append(out.LineNumbers, chain.LineNumbers...)
	}
}

// expandMultiline adds each line of a multi-line cell as free text and reports
// whether the cell was multi-line.
func expandMultiline(text string, line int, out *content.Candidates) bool {
	var parts []string
	for _, l := range content.SplitLines(text) {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) <= 1 {
		return false
	}
	for _, part := range parts {
		out.Add(part, line)
	}
	return true
}
