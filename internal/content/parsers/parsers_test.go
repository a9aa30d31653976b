// SPDX-License-Identifier: Apache-2.0

package parsers_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/credsniff/internal/content"
	"github.com/gemaraproj/credsniff/internal/content/parsers"
)

func obj(kv ...any) content.Structure {
	var members []content.Member
	for i := 0; i < len(kv); i += 2 {
		members = append(members, content.Member{Key: kv[i].(string), Value: kv[i+1].(content.Structure)})
	}
	return content.NewObject(members...)
}

func arr(items ...content.Structure) content.Structure {
	return content.NewArray(items...)
}

func str(s string) content.Structure {
	return content.NewScalar(s)
}

func num(n string) content.Structure {
	return content.NewScalar(json.Number(n))
}

func i64(n int64) content.Structure {
	return content.NewScalar(n)
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

func TestJSONRecognizer(t *testing.T) {
	r := parsers.NewJSONRecognizer()
	assert.Equal(t, "json", r.Name())

	tests := []struct {
		name    string
		input   string
		gate    bool
		want    content.Structure
		wantErr bool
	}{
		{
			name:  "simple object",
			input: `{"a":"b"}`,
			gate:  true,
			want:  obj("a", str("b")),
		},
		{
			name:  "member order is kept",
			input: `{"zeta": 1, "alpha": {"inner": [true, null, 2.5]}}`,
			gate:  true,
			want: obj(
				"zeta", num("1"),
				"alpha", obj("inner", arr(content.NewScalar(true), content.NewScalar(nil), num("2.5"))),
			),
		},
		{
			name:  "repeated key keeps the last value",
			input: `{"k": "first", "other": 0, "k": "second"}`,
			gate:  true,
			want:  obj("k", str("second"), "other", num("0")),
		},
		{
			name:    "trailing data",
			input:   "{\"a\":1}\n{\"b\":2}",
			gate:    true,
			wantErr: true,
		},
		{
			name:    "single quotes are not json",
			input:   `{"a": 'b'}`,
			gate:    true,
			wantErr: true,
		},
		{
			name:  "array without braces fails the gate",
			input: `["a", "b"]`,
			gate:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.gate, r.CanHandle(tt.input))
			if !tt.gate {
				return
			}
			got, err := r.Recognize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONRecognizer_NestingLimit(t *testing.T) {
	deep := `{"k":` + strings.Repeat("[", 1100) + strings.Repeat("]", 1100) + "}"
	_, err := parsers.NewJSONRecognizer().Recognize(deep)
	assert.Error(t, err)

	shallow := `{"k":` + strings.Repeat("[", 100) + strings.Repeat("]", 100) + "}"
	_, err = parsers.NewJSONRecognizer().Recognize(shallow)
	assert.NoError(t, err)
}

func TestNDJSONRecognizer(t *testing.T) {
	r := parsers.NewNDJSONRecognizer()
	assert.Equal(t, "ndjson", r.Name())

	got, err := r.Recognize("{\"a\":1}\n\n{\"b\":2}\r\n")
	require.NoError(t, err)
	want := arr(obj("a", num("1")), obj("b", num("2")))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
	}

	_, err = r.Recognize("{\"a\":1}\nnot json at all")
	assert.ErrorContains(t, err, "line 2")
}

// ---------------------------------------------------------------------------
// Printed literals
// ---------------------------------------------------------------------------

func TestLiteralRecognizer(t *testing.T) {
	r := parsers.NewLiteralRecognizer()
	assert.Equal(t, "literal", r.Name())

	tests := []struct {
		name    string
		input   string
		want    content.Structure
		wantErr bool
	}{
		{
			name:  "lone dict is returned as is",
			input: `{'a': 'b', "c": [1, 2.5, None, True]};`,
			want:  obj("a", str("b"), "c", arr(i64(1), content.NewScalar(2.5), content.NewScalar(nil), content.NewScalar(true))),
		},
		{
			name:  "lone list is returned as is",
			input: `[{'k': 'v'}, {'k2': 'v2'}];`,
			want:  arr(obj("k", str("v")), obj("k2", str("v2"))),
		},
		{
			name:  "assignments become single member objects",
			input: "x = 'one'\ny = \"two\"\nz = ('a', 'b')\n",
			want:  arr(obj("x", str("one")), obj("y", str("two")), obj("z", arr(str("a"), str("b")))),
		},
		{
			name:  "dotted targets",
			input: "self.user = 'admin'; self.password = 'p4ss'",
			want:  arr(obj("self.user", str("admin")), obj("self.password", str("p4ss"))),
		},
		{
			name:  "string prefixes escapes and implicit concatenation",
			input: `s = 'ab' "cd"; t = r'\d+'; u = '\x41\n'; v = b'raw'`,
			want:  arr(obj("s", str("abcd")), obj("t", str(`\d+`)), obj("u", str("A\n")), obj("v", str("raw"))),
		},
		{
			name:  "triple quoted string spans lines",
			input: "doc = '''line one\nline two'''; k = 'v'",
			want:  arr(obj("doc", str("line one\nline two")), obj("k", str("v"))),
		},
		{
			name:  "multi-line dict with comments",
			input: "conf = {\n  'user': 'admin',  # owner\n  'pass': 'x',\n}\n# trailing comment\n",
			want:  arr(obj("conf", obj("user", str("admin"), "pass", str("x")))),
		},
		{
			name:  "number forms",
			input: "v = [-1, 0x1F, 1_000, 1e3]; w = 'x'",
			want:  arr(obj("v", arr(i64(-1), i64(31), i64(1000), content.NewScalar(1000.0))), obj("w", str("x"))),
		},
		{
			name:  "integer beyond int64",
			input: "big = 123456789012345678901234567890; w = 'x'",
			want:  arr(obj("big", num("123456789012345678901234567890")), obj("w", str("x"))),
		},
		{
			name:  "set and parenthesized value",
			input: "s = {'a', 'b'}; t = (1)",
			want:  arr(obj("s", arr(str("a"), str("b"))), obj("t", i64(1))),
		},
		{
			name:  "non-string dict keys",
			input: "{1: 'one', None: 'n', (1, 2): 'pair'};",
			want:  obj("1", str("one"), "None", str("n"), "[1,2]", str("pair")),
		},
		{
			name:    "code is not a literal",
			input:   "import os\nprint('x')\nfoo()\n",
			wantErr: true,
		},
		{
			name:    "unterminated string",
			input:   "a = 'abc\nb = 'd'\nc = 'e'\n",
			wantErr: true,
		},
		{
			name:    "unbalanced brackets",
			input:   "a = ['x', 'y'; b = 'z'",
			wantErr: true,
		},
		{
			name:    "signed infinity",
			input:   "a = -inf; b = 'x'",
			wantErr: true,
		},
		{
			name:    "signed nan",
			input:   "b = 'x'; c = +nan",
			wantErr: true,
		},
		{
			name:    "float overflow",
			input:   "a = 1e999; b = 'x'",
			wantErr: true,
		},
		{
			name:    "escape beyond unicode range",
			input:   `a = '\U00110000'; b = 'x'`,
			wantErr: true,
		},
		{
			name:  "escape at top of unicode range",
			input: `a = '\U0010FFFF'; b = 'x'`,
			want:  arr(obj("a", str("\U0010FFFF")), obj("b", str("x"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, r.CanHandle(tt.input))
			got, err := r.Recognize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLiteralRecognizer_CanHandle(t *testing.T) {
	r := parsers.NewLiteralRecognizer()
	assert.False(t, r.CanHandle("a = 1; b = 2"), "quotes are required")
	assert.False(t, r.CanHandle("a = 'x'"), "a separator is required")
	assert.True(t, r.CanHandle("a = 'x'; b = 2"))
	assert.True(t, r.CanHandle("a\nb\nc\n'd'"))
}

// ---------------------------------------------------------------------------
// YAML
// ---------------------------------------------------------------------------

func TestYAMLRecognizer(t *testing.T) {
	r := parsers.NewYAMLRecognizer()
	assert.Equal(t, "yaml", r.Name())

	input := "database:\n  user: admin\n  password: s3cr3t\nhosts:\n  - alpha\n  - beta\n"
	require.True(t, r.CanHandle(input))
	got, err := r.Recognize(input)
	require.NoError(t, err)

	require.Equal(t, content.KindObject, got.Kind)
	require.Len(t, got.Members, 2)
	assert.Equal(t, "database", got.Members[0].Key)
	assert.Equal(t, "hosts", got.Members[1].Key)

	db := got.Members[0].Value
	require.Equal(t, content.KindObject, db.Kind)
	assert.Equal(t, []string{"user", "password"}, []string{db.Members[0].Key, db.Members[1].Key})
	password, ok := db.Get("password")
	require.True(t, ok)
	assert.Equal(t, str("s3cr3t"), password)

	hosts, _ := got.Get("hosts")
	assert.Equal(t, arr(str("alpha"), str("beta")), hosts)
}

func TestYAMLRecognizer_Gate(t *testing.T) {
	r := parsers.NewYAMLRecognizer()
	assert.False(t, r.CanHandle("a: 1\nb: 2\n"), "needs more than two line feeds")
	assert.False(t, r.CanHandle("one\ntwo\nthree\nfour\n"), "needs a colon")
	assert.True(t, r.CanHandle("a: 1\nb: 2\nc: 3\n"))
}

func TestYAMLRecognizer_Invalid(t *testing.T) {
	_, err := parsers.NewYAMLRecognizer().Recognize("invalid: [unclosed\nfoo: bar\nbaz: qux\nx: y\n")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// XML
// ---------------------------------------------------------------------------

func TestExtractXML(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantLines   []string
		wantNumbers []int
		wantErr     bool
	}{
		{
			name:        "smallest document",
			input:       "<t>12345678</t>",
			wantLines:   []string{"t : 12345678"},
			wantNumbers: []int{1},
		},
		{
			name:        "nested elements numbered by start tag line",
			input:       "<root>\n  <user>admin</user>\n  <password>s3cr3t</password>\n</root>",
			wantLines:   []string{"user : admin", "password : s3cr3t"},
			wantNumbers: []int{2, 3},
		},
		{
			name:        "direct text only",
			input:       "<a>outer<b>inner</b>tail</a>",
			wantLines:   []string{"a : outertail", "b : inner"},
			wantNumbers: []int{1, 1},
		},
		{
			name:        "entities are decoded",
			input:       "<cfg>\n<key>a&amp;b&nbsp;c</key>\n</cfg>",
			wantLines:   []string{"key : a&b c"},
			wantNumbers: []int{2},
		},
		{
			name:    "no character data",
			input:   "<root><a></a><b/></root>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsers.ExtractXML(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, got.Lines)
			assert.Equal(t, tt.wantNumbers, got.LineNumbers)
		})
	}
}

// ---------------------------------------------------------------------------
// HTML
// ---------------------------------------------------------------------------

func TestExtractHTML_Table(t *testing.T) {
	input := "<table>\n" +
		"<tr><th>Name</th><th>Key</th></tr>\n" +
		"<tr><td>X</td><td>abc123</td></tr>\n" +
		"</table>"

	got, err := parsers.ExtractHTML(input)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"NameKey", "Xabc123",
		"Name", "Key", "Name=Key",
		"Name=X", "Key=abc123", "X=abc123",
	}, got.Lines)
	assert.Equal(t, []int{2, 3, 2, 2, 2, 3, 3, 3}, got.LineNumbers)
	assert.Equal(t, len(got.Lines), len(got.LineNumbers))
}

func TestExtractHTML_HeaderRowOfDataCells(t *testing.T) {
	input := "<table><tr><td>user</td><td>password</td></tr>" +
		"<tr><td>admin</td><td>hunter2</td></tr></table>"

	got, err := parsers.ExtractHTML(input)
	require.NoError(t, err)
	assert.Contains(t, got.Lines, "user=admin")
	assert.Contains(t, got.Lines, "password=hunter2")
	assert.Contains(t, got.Lines, "admin=hunter2")
}

func TestExtractHTML_MultilineCell(t *testing.T) {
	input := "<table><tr><td>line one\nline two</td><td>K</td></tr>\n" +
		"<tr><td>a</td><td>b</td></tr></table>"

	got, err := parsers.ExtractHTML(input)
	require.NoError(t, err)

	assert.Contains(t, got.Lines, "line one")
	assert.Contains(t, got.Lines, "line two")
	assert.Contains(t, got.Lines, "K=b")
	assert.Contains(t, got.Lines, "a=b")
	// the multi-line header cell has no header value
	for _, line := range got.Lines {
		assert.NotContains(t, line, "=a")
	}
}

func TestExtractHTML_Paragraphs(t *testing.T) {
	got, err := parsers.ExtractHTML("<p>first</p><p>second</p><script>var hidden = 1;</script>")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got.Lines)
	assert.Equal(t, []int{1, 2}, got.LineNumbers)
}

func TestExtractHTML_NoText(t *testing.T) {
	_, err := parsers.ExtractHTML("<div>   </div>")
	assert.Error(t, err)
}
