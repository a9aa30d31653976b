// SPDX-License-Identifier: Apache-2.0

// Package token finds fixed-format credential identifiers with explicit
// boundary checks instead of regular expression lookarounds.
package token

// MatchSpan is one matched token; Value equals text[Start:End].
type MatchSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value string `json:"value"`
}

func (m MatchSpan) String() string {
	return m.Value
}

// AWSKeyIDPrefixes are the family prefixes of AWS access key ids.
var AWSKeyIDPrefixes = []string{
	"ABIA", "ACCA", "AGPA", "AIDA", "AIPA", "AKIA",
	"ANPA", "ANVA", "APKA", "AROA", "ASCA", "ASIA",
}

const (
	prefixLen = 4
	bodyLen   = 16
)

// Matcher finds tokens made of a 4-byte family prefix, 16 bytes of [0-9A-Z]
// and one optional extra [0-9A-Z] byte. The byte before and the byte after a
// match must not be alphanumeric.
type Matcher struct {
	Name     string
	Prefixes []string
}

// NewAWSKeyIDMatcher returns the matcher for AWS access key ids.
func NewAWSKeyIDMatcher() *Matcher {
	return &Matcher{Name: "aws-access-key-id", Prefixes: AWSKeyIDPrefixes}
}

// DefaultMatchers returns all built-in matchers.
func DefaultMatchers() []*Matcher {
	return []*Matcher{NewAWSKeyIDMatcher()}
}

// FindAll returns every non-overlapping match in text, left to right.
// Boundary bytes are inspected but not consumed.
func (m *Matcher) FindAll(text string) []MatchSpan {
	var spans []MatchSpan
	for i := 0; i+prefixLen+bodyLen <= len(text); {
		end, ok := m.matchAt(text, i)
		if !ok {
			i++
			continue
		}
		spans = append(spans, MatchSpan{Start: i, End: end, Value: text[i:end]})
		i = end
	}
	return spans
}

// Find returns the first match in text.
func (m *Matcher) Find(text string) (MatchSpan, bool) {
	for i := 0; i+prefixLen+bodyLen <= len(text); i++ {
		if end, ok := m.matchAt(text, i); ok {
			return MatchSpan{Start: i, End: end, Value: text[i:end]}, true
		}
	}
	return MatchSpan{}, false
}

// matchAt runs the automaton at offset i and returns the end of the match.
func (m *Matcher) matchAt(text string, i int) (int, bool) {
	if i > 0 && isAlnum(text[i-1]) {
		return 0, false
	}
	if !m.hasPrefix(text[i:]) {
		return 0, false
	}
	end := i + prefixLen
	for ; end < i+prefixLen+bodyLen; end++ {
		if !isUpperAlnum(text[end]) {
			return 0, false
		}
	}
	if end < len(text) && isUpperAlnum(text[end]) {
		end++
	}
	if end < len(text) && isAlnum(text[end]) {
		return 0, false
	}
	return end, true
}

func (m *Matcher) hasPrefix(s string) bool {
	for _, p := range m.Prefixes {
		if len(p) == prefixLen && len(s) >= prefixLen && s[:prefixLen] == p {
			return true
		}
	}
	return false
}

func isUpperAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}

func isAlnum(b byte) bool {
	return isUpperAlnum(b) || b >= 'a' && b <= 'z'
}
