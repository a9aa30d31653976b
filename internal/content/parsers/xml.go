// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/gemaraproj/credsniff/internal/content"
)

var errNoElements = errors.New("no element with text")

type xmlElement struct {
	tag  string
	line int
	text strings.Builder
}

// ExtractXML flattens tag-delimited text into "tag : text" candidates, one per
// element with non-empty character data, numbered by the line of the start tag.
func ExtractXML(text string) (content.Candidates, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity

	// elements in document order; stack holds the open ones
	var elements, stack []*xmlElement
	for {
		line, _ := d.InputPos()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return content.Candidates{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= maxNestingDepth {
				return content.Candidates{}, errTooDeep
			}
			el := &xmlElement{tag: t.Name.Local, line: line}
			elements = append(elements, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	var out content.Candidates
	for _, el := range elements {
		if value := strings.TrimSpace(el.text.String()); value != "" {
			out.Add(el.tag+" : "+value, el.line)
		}
	}
	if out.Len() == 0 {
		return content.Candidates{}, errNoElements
	}
	return out, nil
}
