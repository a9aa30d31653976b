// SPDX-License-Identifier: Apache-2.0

package content_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gemaraproj/credsniff/internal/content"
)

// ---------------------------------------------------------------------------
// RawContent
// ---------------------------------------------------------------------------

func TestRawContent_Text(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		encoding string
		want     string
		wantErr  bool
	}{
		{name: "utf-8 by default", data: []byte("pässword"), want: "pässword"},
		{name: "explicit utf8 alias", data: []byte("token"), encoding: "UTF8", want: "token"},
		{name: "invalid utf-8 is a decode error", data: []byte{0x70, 0xff, 0xfe, 0x41}, wantErr: true},
		{name: "declared latin1", data: []byte("caf\xe9"), encoding: "latin1", want: "café"},
		{name: "unknown encoding is a decode error", data: []byte("abc"), encoding: "no-such-charset", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &content.RawContent{Data: tt.data, Encoding: tt.encoding}
			text, err := raw.Text()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, content.ErrDecode), "error must wrap ErrDecode: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestRawContent_TextIsMemoized(t *testing.T) {
	raw := &content.RawContent{Data: []byte("first value")}
	first, err := raw.Text()
	require.NoError(t, err)

	// The memo is taken once; later changes to the buffer are not re-decoded.
	raw.Data = []byte("second value")
	second, err := raw.Text()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateEncoding(t *testing.T) {
	assert.NoError(t, content.ValidateEncoding(""))
	assert.NoError(t, content.ValidateEncoding("utf-8"))
	assert.NoError(t, content.ValidateEncoding("windows-1251"))
	assert.Error(t, content.ValidateEncoding("klingon"))
}

// ---------------------------------------------------------------------------
// Candidates and line splitting
// ---------------------------------------------------------------------------

func TestCandidates_Add(t *testing.T) {
	var c content.Candidates
	c.Add("  user=admin  ", 3)
	c.Add("   ", 4)
	c.Add("", 5)
	c.Add("\tpassword\t", 1)

	assert.Equal(t, []string{"user=admin", "password"}, c.Lines)
	assert.Equal(t, []int{3, 1}, c.LineNumbers)
	assert.Equal(t, 2, c.Len())
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "one", want: []string{"one"}},
		{in: "one\ntwo\n", want: []string{"one", "two"}},
		{in: "one\r\ntwo\rthree", want: []string{"one", "two", "three"}},
		{in: "\n\nx", want: []string{"", "", "x"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, content.SplitLines(tt.in), "input %q", tt.in)
	}
}

// ---------------------------------------------------------------------------
// Structure
// ---------------------------------------------------------------------------

func TestStructure_Populated(t *testing.T) {
	assert.False(t, content.NewScalar("text").Populated())
	assert.False(t, content.NewObject().Populated())
	assert.False(t, content.NewArray().Populated())
	assert.True(t, content.NewArray(content.NewScalar(1)).Populated())
	assert.True(t, content.NewObject(content.Member{Key: "a", Value: content.NewScalar("b")}).Populated())
}

func TestStructure_RepeatedKeyKeepsFirstPosition(t *testing.T) {
	obj := content.NewObject(
		content.Member{Key: "a", Value: content.NewScalar(1)},
		content.Member{Key: "b", Value: content.NewScalar(2)},
		content.Member{Key: "a", Value: content.NewScalar(3)},
	)
	require.Equal(t, 2, obj.Len())
	assert.Equal(t, "a", obj.Members[0].Key)
	got, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, content.NewScalar(3), got)
}

func TestStructure_MarshalJSONKeepsOrder(t *testing.T) {
	obj := content.NewObject(
		content.Member{Key: "zeta", Value: content.NewScalar("z")},
		content.Member{Key: "alpha", Value: content.NewArray(content.NewScalar(json.Number("1")), content.NewScalar(nil))},
	)
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":[1,null]}`, string(raw))
}

func TestFromValue(t *testing.T) {
	got := content.FromValue(map[string]any{
		"b": []any{"x", true},
		"a": map[any]any{1: "one"},
	})
	want := content.NewObject(
		content.Member{Key: "a", Value: content.NewObject(content.Member{Key: "1", Value: content.NewScalar("one")})},
		content.Member{Key: "b", Value: content.NewArray(content.NewScalar("x"), content.NewScalar(true))},
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromValue mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

type fakeRecognizer struct {
	name   string
	gate   bool
	result content.Structure
	err    error
	panics bool
	calls  int
}

func (f *fakeRecognizer) Name() string           { return f.name }
func (f *fakeRecognizer) CanHandle(_ string) bool { return f.gate }
func (f *fakeRecognizer) Recognize(_ string) (content.Structure, error) {
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

var populated = content.NewArray(content.NewScalar("x"))

func TestPipeline_FirstPopulatedResultWins(t *testing.T) {
	failing := &fakeRecognizer{name: "failing", gate: true, err: errors.New("syntax error")}
	gated := &fakeRecognizer{name: "gated", gate: false, result: populated}
	empty := &fakeRecognizer{name: "empty", gate: true, result: content.NewObject()}
	scalar := &fakeRecognizer{name: "scalar", gate: true, result: content.NewScalar("only")}
	panicking := &fakeRecognizer{name: "panicking", gate: true, panics: true}
	winner := &fakeRecognizer{name: "winner", gate: true, result: populated}
	after := &fakeRecognizer{name: "after", gate: true, result: populated}

	p := content.NewPipeline([]content.Recognizer{failing, gated, empty, scalar, panicking, winner, after})
	result, ok := p.RecognizeWithMeta("long enough text")
	require.True(t, ok)
	assert.Equal(t, "winner", result.RecognizerUsed)
	assert.Equal(t, populated, result.Structure)

	assert.Equal(t, 0, gated.calls, "gated recognizer must not run")
	assert.Equal(t, 1, panicking.calls)
	assert.Equal(t, 0, after.calls, "recognizers after the winner must not run")
}

func TestPipeline_ShortTextIsNeverRecognized(t *testing.T) {
	r := &fakeRecognizer{name: "any", gate: true, result: populated}
	p := content.NewPipeline([]content.Recognizer{r})

	_, ok := p.Recognize("1234567")
	assert.False(t, ok)
	assert.Equal(t, 0, r.calls)

	_, ok = p.Recognize("12345678")
	assert.True(t, ok)
}

func TestPipeline_NoMatch(t *testing.T) {
	p := content.NewPipeline([]content.Recognizer{
		&fakeRecognizer{name: "a", gate: true, err: errors.New("nope")},
	})
	s, ok := p.Recognize("nothing recognizable")
	assert.False(t, ok)
	assert.False(t, s.Populated())
}

func TestPipeline_LogsFailuresAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := content.NewPipeline(
		[]content.Recognizer{&fakeRecognizer{name: "broken", gate: true, err: errors.New("bad syntax")}},
		content.WithPipelineLogger(zap.New(core)),
	)
	_, ok := p.Recognize("some text here")
	require.False(t, ok)

	entries := logs.FilterMessage("cannot recognize").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "broken", entries[0].ContextMap()["recognizer"])
}

func TestPipeline_RegisteredRecognizers(t *testing.T) {
	p := content.NewPipeline([]content.Recognizer{
		&fakeRecognizer{name: "json"},
		&fakeRecognizer{name: "yaml"},
	})
	assert.Equal(t, []string{"json", "yaml"}, p.RegisteredRecognizers())
}

// ---------------------------------------------------------------------------
// DecodeBase64
// ---------------------------------------------------------------------------

func TestDecodeBase64_RoundTrip(t *testing.T) {
	for size := 9; size <= 96; size++ {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i*37 + size)
		}
		encoded := []byte(base64.StdEncoding.EncodeToString(data))
		decoded, ok := content.DecodeBase64(encoded)
		require.True(t, ok, "size %d: %s", size, encoded)
		assert.Equal(t, data, decoded, "size %d", size)
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "minimal padded payload", in: "MTIzNDU2Nzg=", want: "12345678", wantOK: true},
		{name: "shorter than 12 bytes", in: "MTIzNDU2Nzg", wantOK: false},
		{name: "whitespace is ignored", in: "MTIz\nNDU2\r\n Nzg=\n", want: "12345678", wantOK: true},
		{name: "stray equals sign is rejected early", in: "MTIzNDU2Nzg=X", wantOK: false},
		{name: "key value pair is not base64", in: "password=hunter2", wantOK: false},
		{name: "character outside the alphabet", in: "MTIzNDU2Nzg*", wantOK: false},
		{name: "url-safe alphabet is rejected", in: "____________", wantOK: false},
		{name: "too much padding", in: "MTIzNDU2Nzg==", wantOK: false},
		{name: "missing padding", in: "MTIzNDU2NzgK1", wantOK: false},
		{name: "non-ascii byte", in: "MTIzNDU2Nzg\xc3\xa9", wantOK: false},
		{name: "zero bytes still count as data", in: "AAAAAAAAAAAA", want: "\x00\x00\x00\x00\x00\x00\x00\x00\x00", wantOK: true},
		{name: "only whitespace", in: "              ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := content.DecodeBase64([]byte(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}
