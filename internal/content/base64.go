// SPDX-License-Identifier: Apache-2.0

package content

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	errTooShort     = errors.New("data too short for base64")
	errStrayPadding = errors.New("padding byte inside data")
	errNotASCII     = errors.New("data is not ascii")
	errEmptyDecoded = errors.New("decoded data is empty")
)

// DecodeBase64 strictly decodes a standard base64 buffer. Whitespace is
// ignored; any other byte outside the alphabet or bad padding is a mismatch.
func DecodeBase64(data []byte) ([]byte, bool) {
	decoded, err := decodeBase64(data)
	return decoded, err == nil
}

func decodeBase64(data []byte) ([]byte, error) {
	if len(data) < MinEncodedDataLen {
		return nil, errTooShort
	}
	// '=' that is not trailing padding means the data only contains a stray '='.
	if last := data[len(data)-1]; bytes.IndexByte(data, '=') >= 0 && last != '=' && last > 0x20 {
		return nil, errStrayPadding
	}
	compact := make([]byte, 0, len(data))
	for _, b := range data {
		if b >= 0x80 {
			return nil, errNotASCII
		}
		if isSpace(b) {
			continue
		}
		compact = append(compact, b)
	}
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(compact)))
	n, err := base64.StdEncoding.Decode(decoded, compact)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	if n == 0 {
		return nil, errEmptyDecoded
	}
	return decoded[:n], nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
