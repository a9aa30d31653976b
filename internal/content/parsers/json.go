// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gemaraproj/credsniff/internal/content"
)

// maxNestingDepth bounds recursion on hostile input.
const maxNestingDepth = 1000

var errTooDeep = errors.New("nesting too deep")

// JSONRecognizer parses object/array notation: a single JSON document.
type JSONRecognizer struct{}

func NewJSONRecognizer() *JSONRecognizer {
	return &JSONRecognizer{}
}

func (r *JSONRecognizer) Name() string {
	return "json"
}

// CanHandle requires braces, a double quote and a colon somewhere in the text.
func (r *JSONRecognizer) CanHandle(text string) bool {
	return looksLikeJSON(text)
}

func (r *JSONRecognizer) Recognize(text string) (content.Structure, error) {
	return decodeJSON(text)
}

// NDJSONRecognizer parses newline-delimited JSON records into an array.
type NDJSONRecognizer struct{}

func NewNDJSONRecognizer() *NDJSONRecognizer {
	return &NDJSONRecognizer{}
}

func (r *NDJSONRecognizer) Name() string {
	return "ndjson"
}

func (r *NDJSONRecognizer) CanHandle(text string) bool {
	return looksLikeJSON(text)
}

// Recognize requires every non-blank line to be one JSON value.
func (r *NDJSONRecognizer) Recognize(text string) (content.Structure, error) {
	var items []content.Structure
	for i, line := range content.SplitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		item, err := decodeJSON(line)
		if err != nil {
			return content.Structure{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return content.NewArray(items...), nil
}

func looksLikeJSON(text string) bool {
	return strings.Contains(text, "{") &&
		strings.Contains(text, "}") &&
		strings.Contains(text, `"`) &&
		strings.Contains(text, ":")
}

// decodeJSON decodes exactly one JSON value, keeping object member order.
func decodeJSON(text string) (content.Structure, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	value, err := readJSONValue(dec, 0)
	if err != nil {
		return content.Structure{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return content.Structure{}, fmt.Errorf("extra data after offset %d", dec.InputOffset())
	}
	return value, nil
}

func readJSONValue(dec *json.Decoder, depth int) (content.Structure, error) {
	if depth > maxNestingDepth {
		return content.Structure{}, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return content.Structure{}, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return content.NewScalar(tok), nil
	}
	switch delim {
	case '{':
		var obj content.ObjectBuilder
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return content.Structure{}, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return content.Structure{}, fmt.Errorf("object key is %T", keyTok)
			}
			value, err := readJSONValue(dec, depth+1)
			if err != nil {
				return content.Structure{}, err
			}
			obj.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return content.Structure{}, err
		}
		return obj.Structure(), nil
	case '[':
		items := []content.Structure{}
		for dec.More() {
			item, err := readJSONValue(dec, depth+1)
			if err != nil {
				return content.Structure{}, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return content.Structure{}, err
		}
		return content.NewArray(items...), nil
	}
	return content.Structure{}, fmt.Errorf("unexpected delimiter %q", delim)
}
