// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gemaraproj/credsniff/internal/content"
)

// LiteralRecognizer parses printed dict/list literals and simple assignments
// as they appear in logs and scripts, e.g.
//
//	config = {'user': 'admin', "password": 'p4ss'}; retries = 3
//
// Statements are separated by ';' or line breaks outside of brackets.
type LiteralRecognizer struct{}

func NewLiteralRecognizer() *LiteralRecognizer {
	return &LiteralRecognizer{}
}

func (r *LiteralRecognizer) Name() string {
	return "literal"
}

// CanHandle requires quotes and either a semicolon or more than two line feeds.
func (r *LiteralRecognizer) CanHandle(text string) bool {
	hasSeparators := strings.Contains(text, ";") || strings.Count(text, "\n") > 2
	hasQuotes := strings.ContainsAny(text, `'"`)
	return hasSeparators && hasQuotes
}

// Recognize returns a lone object or array statement as is; otherwise an array
// of statement values where an assignment becomes {name: value}.
func (r *LiteralRecognizer) Recognize(text string) (content.Structure, error) {
	p := &literalParser{src: text}
	stmts, err := p.statements()
	if err != nil {
		return content.Structure{}, err
	}
	if len(stmts) == 1 && stmts[0].name == "" && stmts[0].value.Kind != content.KindScalar {
		return stmts[0].value, nil
	}
	items := make([]content.Structure, len(stmts))
	for i, st := range stmts {
		if st.name == "" {
			items[i] = st.value
			continue
		}
		items[i] = content.NewObject(content.Member{Key: st.name, Value: st.value})
	}
	return content.NewArray(items...), nil
}

type literalStatement struct {
	name  string
	value content.Structure
}

type literalParser struct {
	src string
	pos int
	// nest counts open brackets; line breaks inside brackets are whitespace.
	nest int
}

var errNoStatements = errors.New("no statements")

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *literalParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) statements() ([]literalStatement, error) {
	var stmts []literalStatement
	for {
		p.skipSeparators()
		if p.eof() {
			break
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		p.skipSpace()
		if !p.eof() {
			switch p.peek() {
			case ';', '\n', '\r':
			default:
				return nil, p.errorf("unexpected %q after statement", p.peek())
			}
		}
	}
	if len(stmts) == 0 {
		return nil, errNoStatements
	}
	return stmts, nil
}

func (p *literalParser) statement() (literalStatement, error) {
	start := p.pos
	if name := p.target(); name != "" {
		p.skipSpace()
		if p.peek() == '=' && !strings.HasPrefix(p.src[p.pos:], "==") {
			p.pos++
			value, err := p.value(0)
			if err != nil {
				return literalStatement{}, err
			}
			return literalStatement{name: name, value: value}, nil
		}
		p.pos = start
	}
	value, err := p.value(0)
	if err != nil {
		return literalStatement{}, err
	}
	return literalStatement{value: value}, nil
}

// target reads a dotted identifier such as self.token, or returns "".
func (p *literalParser) target() string {
	start := p.pos
	for {
		if p.identifier() == "" {
			p.pos = start
			return ""
		}
		if p.peek() != '.' {
			return p.src[start:p.pos]
		}
		p.pos++
	}
}

func (p *literalParser) identifier() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == '_' || isASCIILetter(r) || (p.pos > start && isDigit(r)) || r >= utf8.RuneSelf && r != utf8.RuneError {
			p.pos += size
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// skipSeparators skips whitespace, comments and statement separators.
func (p *literalParser) skipSeparators() {
	for {
		p.skipSpace()
		if p.eof() {
			return
		}
		switch p.peek() {
		case ';', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// skipSpace skips blanks, comments and line continuations; line breaks too
// when inside brackets.
func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); c {
		case ' ', '\t', '\f', '\v':
			p.pos++
		case '\n', '\r':
			if p.nest == 0 {
				return
			}
			p.pos++
		case '\\':
			rest := p.src[p.pos+1:]
			switch {
			case strings.HasPrefix(rest, "\r\n"):
				p.pos += 3
			case strings.HasPrefix(rest, "\n"), strings.HasPrefix(rest, "\r"):
				p.pos += 2
			default:
				return
			}
		case '#':
			for !p.eof() && p.peek() != '\n' && p.peek() != '\r' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *literalParser) value(depth int) (content.Structure, error) {
	if depth > maxNestingDepth {
		return content.Structure{}, errTooDeep
	}
	p.skipSpace()
	if p.eof() {
		return content.Structure{}, p.errorf("unexpected end of text")
	}
	c := p.peek()
	switch {
	case c == '{':
		return p.dictOrSet(depth)
	case c == '[':
		return p.sequence(depth, ']')
	case c == '(':
		return p.tuple(depth)
	case c == '\'' || c == '"':
		return p.stringValue()
	case c == '-' || c == '+' || c == '.' || isDigit(rune(c)):
		return p.number()
	}
	start := p.pos
	name := p.identifier()
	if name == "" {
		return content.Structure{}, p.errorf("unexpected %q", c)
	}
	if isStringPrefix(name) && (p.peek() == '\'' || p.peek() == '"') {
		p.pos = start
		return p.stringValue()
	}
	switch name {
	case "True":
		return content.NewScalar(true), nil
	case "False":
		return content.NewScalar(false), nil
	case "None":
		return content.NewScalar(nil), nil
	}
	return content.Structure{}, fmt.Errorf("offset %d: unsupported name %q", start, name)
}

func (p *literalParser) open() {
	p.pos++
	p.nest++
}

func (p *literalParser) close() {
	p.pos++
	p.nest--
}

func (p *literalParser) dictOrSet(depth int) (content.Structure, error) {
	p.open()
	p.skipSpace()
	if p.peek() == '}' {
		p.close()
		return content.NewObject(), nil
	}
	first, err := p.value(depth + 1)
	if err != nil {
		return content.Structure{}, err
	}
	p.skipSpace()
	if p.peek() != ':' {
		return p.rest(depth, []content.Structure{first}, '}')
	}
	var obj content.ObjectBuilder
	key := first
	for {
		// at ':'
		p.pos++
		value, err := p.value(depth + 1)
		if err != nil {
			return content.Structure{}, err
		}
		obj.Set(literalKey(key), value)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.close()
				return obj.Structure(), nil
			}
		case '}':
			p.close()
			return obj.Structure(), nil
		default:
			return content.Structure{}, p.errorf("expected ',' or '}' in dict")
		}
		if key, err = p.value(depth + 1); err != nil {
			return content.Structure{}, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return content.Structure{}, p.errorf("expected ':' in dict")
		}
	}
}

func (p *literalParser) sequence(depth int, end byte) (content.Structure, error) {
	p.open()
	p.skipSpace()
	if p.peek() == end {
		p.close()
		return content.NewArray(), nil
	}
	first, err := p.value(depth + 1)
	if err != nil {
		return content.Structure{}, err
	}
	return p.rest(depth, []content.Structure{first}, end)
}

func (p *literalParser) tuple(depth int) (content.Structure, error) {
	p.open()
	p.skipSpace()
	if p.peek() == ')' {
		p.close()
		return content.NewArray(), nil
	}
	first, err := p.value(depth + 1)
	if err != nil {
		return content.Structure{}, err
	}
	p.skipSpace()
	if p.peek() == ')' {
		// parenthesized expression, not a tuple
		p.close()
		return first, nil
	}
	return p.rest(depth, []content.Structure{first}, ')')
}

// rest reads the remaining comma-separated items of a sequence up to end.
func (p *literalParser) rest(depth int, items []content.Structure, end byte) (content.Structure, error) {
	for {
		p.skipSpace()
		switch p.peek() {
		case end:
			p.close()
			return content.NewArray(items...), nil
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == end {
				p.close()
				return content.NewArray(items...), nil
			}
			item, err := p.value(depth + 1)
			if err != nil {
				return content.Structure{}, err
			}
			items = append(items, item)
		default:
			return content.Structure{}, p.errorf("expected ',' or %q", end)
		}
	}
}

// stringValue reads one string literal and any adjacent literals it is implicitly
// concatenated with.
func (p *literalParser) stringValue() (content.Structure, error) {
	var sb strings.Builder
	for {
		s, err := p.stringLiteral()
		if err != nil {
			return content.Structure{}, err
		}
		sb.WriteString(s)
		save := p.pos
		p.skipSpace()
		start := p.pos
		if c := p.peek(); c == '\'' || c == '"' {
			continue
		}
		if name := p.identifier(); isStringPrefix(name) && (p.peek() == '\'' || p.peek() == '"') {
			p.pos = start
			continue
		}
		p.pos = save
		return content.NewScalar(sb.String()), nil
	}
}

func (p *literalParser) stringLiteral() (string, error) {
	prefix := strings.ToLower(p.identifier())
	raw := strings.Contains(prefix, "r")
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected quote")
	}
	delim := string(quote)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return sb.String(), nil
		}
		c := p.peek()
		switch {
		case (c == '\n' || c == '\r') && len(delim) == 1:
			return "", p.errorf("line break in string")
		case c == '\\' && p.pos+1 < len(p.src):
			if raw {
				sb.WriteString(p.src[p.pos : p.pos+2])
				p.pos += 2
				continue
			}
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

var simpleEscapes = map[byte]string{
	'\\': `\`, '\'': `'`, '"': `"`, 'a': "\a", 'b': "\b", 'f': "\f",
	'n': "\n", 'r': "\r", 't': "\t", 'v': "\v", '\n': "",
}

// escape decodes one backslash sequence; unknown sequences are kept verbatim.
func (p *literalParser) escape(sb *strings.Builder) error {
	c := p.src[p.pos+1]
	if s, ok := simpleEscapes[c]; ok {
		sb.WriteString(s)
		p.pos += 2
		return nil
	}
	width := 0
	base := 16
	switch c {
	case 'x':
		width = 2
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		if c >= '0' && c <= '7' {
			end := p.pos + 1
			for end < len(p.src) && end < p.pos+4 && p.src[end] >= '0' && p.src[end] <= '7' {
				end++
			}
			n, _ := strconv.ParseUint(p.src[p.pos+1:end], 8, 32)
			sb.WriteRune(rune(n))
			p.pos = end
			return nil
		}
	}
	if width > 0 && p.pos+2+width <= len(p.src) {
		if n, err := strconv.ParseUint(p.src[p.pos+2:p.pos+2+width], base, 32); err == nil {
			if n > unicode.MaxRune {
				return p.errorf("escape \\%c out of range", c)
			}
			sb.WriteRune(rune(n))
			p.pos += 2 + width
			return nil
		}
	}
	sb.WriteString(p.src[p.pos : p.pos+2])
	p.pos += 2
	return nil
}

func (p *literalParser) number() (content.Structure, error) {
	start := p.pos
	sign := ""
	for p.peek() == '-' || p.peek() == '+' {
		if p.peek() == '-' {
			if sign == "-" {
				sign = ""
			} else {
				sign = "-"
			}
		}
		p.pos++
		p.skipSpace()
	}
	numStart := p.pos
	for !p.eof() {
		c := p.peek()
		prev := byte(0)
		if p.pos > numStart {
			prev = p.src[p.pos-1]
		}
		isExpSign := (c == '-' || c == '+') && (prev == 'e' || prev == 'E') && !strings.HasPrefix(strings.ToLower(p.src[numStart:]), "0x")
		if c == '.' || c == '_' || isDigit(rune(c)) || isASCIILetter(rune(c)) || isExpSign {
			p.pos++
			continue
		}
		break
	}
	token := p.src[numStart:p.pos]
	if token == "" {
		return content.Structure{}, fmt.Errorf("offset %d: expected number", start)
	}
	if n, err := strconv.ParseInt(sign+token, 0, 64); err == nil {
		return content.NewScalar(n), nil
	}
	plain := strings.ReplaceAll(token, "_", "")
	if isAllDigits(plain) {
		// integer beyond int64
		return content.NewScalar(json.Number(sign + plain)), nil
	}
	// inf and nan are names, not literals
	if strings.ContainsAny(plain, "0123456789") && !strings.ContainsAny(plain, "xXoObBjJ") {
		if f, err := strconv.ParseFloat(sign+plain, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return content.NewScalar(f), nil
		}
	}
	return content.Structure{}, fmt.Errorf("offset %d: invalid number %q", start, token)
}

func literalKey(key content.Structure) string {
	if key.Kind == content.KindScalar {
		switch v := key.Scalar.(type) {
		case string:
			return v
		case nil:
			return "None"
		case bool:
			if v {
				return "True"
			}
			return "False"
		}
		return fmt.Sprint(key.Scalar)
	}
	raw, err := key.MarshalJSON()
	if err != nil {
		return fmt.Sprint(key.Interface())
	}
	return string(raw)
}

func isStringPrefix(name string) bool {
	switch strings.ToLower(name) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
