// SPDX-License-Identifier: Apache-2.0

package content

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// Fixed thresholds other components may rely on.
const (
	// MinDataLen is the shortest buffer that may carry a credential.
	MinDataLen = 8
	// MinEncodedDataLen is the shortest base64 candidate: 8 bytes encode to 12 symbols.
	MinEncodedDataLen = 12
	// MinXMLLen is the shortest XML candidate, e.g. "<t>12345678</t>\n".
	MinXMLLen = 16
)

// DefaultEncoding is used when RawContent.Encoding is empty.
const DefaultEncoding = "utf-8"

// ErrDecode reports raw bytes that are not valid text under the declared encoding.
var ErrDecode = errors.New("content is not valid text")

// RawContent is the input buffer of one scan target.
// Path, Kind and Info are provenance tags carried through for reporting only.
//
// The decoded text is memoized without synchronization: a RawContent must be
// owned by a single goroutine.
type RawContent struct {
	Data []byte
	Path string
	Kind string
	Info string
	// Encoding is the declared text encoding, DefaultEncoding when empty.
	Encoding string

	text    string
	textErr error
	decoded bool
}

// Text returns the decoded text of the buffer, decoding at most once.
// The returned error wraps ErrDecode.
func (c *RawContent) Text() (string, error) {
	if !c.decoded {
		c.text, c.textErr = decodeText(c.Data, c.Encoding)
		c.decoded = true
	}
	return c.text, c.textErr
}

// Candidates are parallel slices of scannable lines and their 1-based line numbers.
type Candidates struct {
	Lines       []string `json:"lines"`
	LineNumbers []int    `json:"line_numbers"`
}

// Add appends line at lineNumber when its trimmed form is non-empty.
func (c *Candidates) Add(line string, lineNumber int) {
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		c.Lines = append(c.Lines, trimmed)
		c.LineNumbers = append(c.LineNumbers, lineNumber)
	}
}

// Len returns the number of candidate lines.
func (c *Candidates) Len() int {
	return len(c.Lines)
}

// ValidateEncoding reports whether name is a supported declared encoding.
func ValidateEncoding(name string) error {
	_, err := lookupEncoding(name)
	return err
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if isUTF8(name) {
		return nil, nil
	}
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	if canonical == DefaultEncoding {
		return nil, nil
	}
	return enc, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// decodeText is strict for UTF-8; other encodings go through x/text decoders.
func decodeText(data []byte, name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if enc == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid utf-8 sequence", ErrDecode)
		}
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return string(out), nil
}

// SplitLines splits text on \n, \r\n and \r without keeping line terminators.
// A trailing terminator does not produce an empty final line.
func SplitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
