// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/gemaraproj/credsniff/internal/config"
	"github.com/gemaraproj/credsniff/internal/content"
	"github.com/gemaraproj/credsniff/internal/provider"
	"github.com/gemaraproj/credsniff/internal/token"
)

// Markup formats reported in Layer.Format.
const (
	FormatXML   = "xml"
	FormatHTML  = "html"
	FormatPlain = "plain"
)

// MetadataNormalizeContent describes the normalize_content tool.
var MetadataNormalizeContent = &mcp.Tool{
	Name: "normalize_content",
	Description: "Normalize raw file content for credential detection. " +
		"Recognizes JSON, newline-delimited JSON, printed dict/list literals and YAML as a structure, " +
		"flattens XML and HTML (including table header/value pairs) into numbered candidate lines, " +
		"unwraps base64 payloads layer by layer and reports access key id tokens found in the lines.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Raw content to normalize",
			},
			"base64": map[string]interface{}{
				"type":        "boolean",
				"description": "Set when content is itself base64 of the raw bytes (binary input).",
			},
			"encoding": map[string]interface{}{
				"type":        "string",
				"description": "Declared text encoding of the raw bytes. Defaults to utf-8.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Optional source path, carried through to the report.",
			},
			"kind": map[string]interface{}{
				"type":        "string",
				"description": "Optional declared file type, carried through to the report.",
			},
		},
	},
}

// InputNormalizeContent is the input for the NormalizeContent tool.
type InputNormalizeContent struct {
	Content  string `json:"content"`
	Base64   bool   `json:"base64,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Path     string `json:"path,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// TokenMatch is a token found in a candidate line.
type TokenMatch struct {
	Matcher    string `json:"matcher"`
	LineNumber int    `json:"line_number"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Value      string `json:"value"`
}

// View is one line representation of a layer.
type View struct {
	Format      string       `json:"format"`
	Lines       []string     `json:"lines"`
	LineNumbers []int        `json:"line_numbers"`
	Tokens      []TokenMatch `json:"tokens,omitempty"`
}

// Layer is the normalization of one buffer: the raw input at depth 0 and each
// base64 payload unwrapped from it at the following depths.
type Layer struct {
	Depth int `json:"depth"`
	// Structure is a content.Structure when one was recognized.
	Structure  any    `json:"structure,omitempty"`
	Recognizer string `json:"recognizer,omitempty"`
	Views      []View `json:"views,omitempty"`
	// DecodedSize is the size of the base64 payload passed to the next layer.
	DecodedSize int `json:"decoded_size,omitempty"`
}

// Report is the output of one normalization run.
type Report struct {
	Path   string  `json:"path,omitempty"`
	Kind   string  `json:"kind,omitempty"`
	Info   string  `json:"info,omitempty"`
	Layers []Layer `json:"layers"`
}

// Normalizer drives the provider over a buffer and its nested base64 payloads.
type Normalizer struct {
	maxLayers int
	encoding  string
	matchers  []*token.Matcher
	logger    *zap.Logger
}

// NewNormalizer creates a Normalizer from validated configuration.
func NewNormalizer(cfg config.Config, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	matchers := token.DefaultMatchers()
	if len(cfg.TokenPrefixes) > 0 {
		aws := token.NewAWSKeyIDMatcher()
		aws.Prefixes = cfg.TokenPrefixes
		matchers = []*token.Matcher{aws}
	}
	return &Normalizer{
		maxLayers: cfg.MaxDecodeLayers,
		encoding:  cfg.Encoding,
		matchers:  matchers,
		logger:    logger,
	}
}

// Normalize runs every representation on raw and re-runs them on each decoded
// base64 payload, up to the configured number of layers. ctx is checked
// between layers only.
func (n *Normalizer) Normalize(ctx context.Context, raw *content.RawContent) (Report, error) {
	encoding := raw.Encoding
	if encoding == "" {
		encoding = n.encoding
	}
	report := Report{Path: raw.Path, Kind: raw.Kind, Info: raw.Info}
	current := &content.RawContent{Data: raw.Data, Path: raw.Path, Kind: raw.Kind, Info: raw.Info, Encoding: encoding}
	for depth := 0; ; depth++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p := provider.New(current, provider.WithLogger(n.logger))
		layer := n.layer(p, depth)
		report.Layers = append(report.Layers, layer)

		if depth >= n.maxLayers || !p.RepresentAsEncoded() {
			return report, nil
		}
		report.Layers[depth].DecodedSize = len(p.Decoded)
		n.logger.Debug("unwrapped base64 layer", zap.String("path", raw.Path), zap.Int("depth", depth+1), zap.Int("size", len(p.Decoded)))
		current = &content.RawContent{
			Data:     p.Decoded,
			Path:     raw.Path,
			Kind:     raw.Kind,
			Info:     fmt.Sprintf("base64 layer %d", depth+1),
			Encoding: encoding,
		}
	}
}

// layer keeps every representation that succeeds; markup may be both XML and HTML.
func (n *Normalizer) layer(p *provider.DataProvider, depth int) Layer {
	layer := Layer{Depth: depth}
	if p.RepresentAsStructure() {
		layer.Structure = *p.Structure
		layer.Recognizer = p.RecognizerUsed
	}
	if p.RepresentAsXML() {
		layer.Views = append(layer.Views, n.view(FormatXML, p.Candidates))
	}
	if p.RepresentAsHTML() {
		layer.Views = append(layer.Views, n.view(FormatHTML, p.Candidates))
	}
	if text, err := p.Raw().Text(); err == nil {
		var plain content.Candidates
		for i, line := range content.SplitLines(text) {
			plain.Add(line, i+1)
		}
		if plain.Len() > 0 {
			layer.Views = append(layer.Views, n.view(FormatPlain, plain))
		}
	}
	return layer
}

func (n *Normalizer) view(format string, candidates content.Candidates) View {
	return View{
		Format:      format,
		Lines:       candidates.Lines,
		LineNumbers: candidates.LineNumbers,
		Tokens:      n.findTokens(candidates),
	}
}

func (n *Normalizer) findTokens(candidates content.Candidates) []TokenMatch {
	var found []TokenMatch
	for i, line := range candidates.Lines {
		for _, m := range n.matchers {
			for _, span := range m.FindAll(line) {
				found = append(found, TokenMatch{
					Matcher:    m.Name,
					LineNumber: candidates.LineNumbers[i],
					Start:      span.Start,
					End:        span.End,
					Value:      span.Value,
				})
			}
		}
	}
	return found
}

// NormalizeContentHandler returns the MCP handler of normalize_content bound to n.
func NormalizeContentHandler(n *Normalizer) func(context.Context, *mcp.CallToolRequest, InputNormalizeContent) (*mcp.CallToolResult, Report, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InputNormalizeContent) (*mcp.CallToolResult, Report, error) {
		if input.Content == "" {
			return nil, Report{}, fmt.Errorf("content is required")
		}
		data := []byte(input.Content)
		if input.Base64 {
			decoded, err := base64.StdEncoding.DecodeString(input.Content)
			if err != nil {
				return nil, Report{}, fmt.Errorf("content is not valid base64: %w", err)
			}
			data = decoded
		}
		if input.Encoding != "" {
			if err := content.ValidateEncoding(input.Encoding); err != nil {
				return nil, Report{}, err
			}
		}
		raw := &content.RawContent{
			Data:     data,
			Path:     input.Path,
			Kind:     input.Kind,
			Encoding: input.Encoding,
		}
		report, err := n.Normalize(ctx, raw)
		if err != nil {
			return nil, Report{}, err
		}
		return nil, report, nil
	}
}
