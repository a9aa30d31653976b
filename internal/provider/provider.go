// SPDX-License-Identifier: Apache-2.0

// Package provider keeps one raw buffer and tries to represent it as
// structured data, markup lines or decoded base64 for credential detectors.
package provider

import (
	"strings"

	"go.uber.org/zap"

	"github.com/gemaraproj/credsniff/internal/content"
	"github.com/gemaraproj/credsniff/internal/content/parsers"
)

// DefaultPipeline builds the structure recognizers in priority order.
// Cheap strict notations come first; YAML accepts almost any colon-bearing
// multi-line text and must stay last.
func DefaultPipeline(opts ...content.PipelineOption) *content.Pipeline {
	return content.NewPipeline([]content.Recognizer{
		parsers.NewJSONRecognizer(),
		parsers.NewNDJSONRecognizer(),
		parsers.NewLiteralRecognizer(),
		parsers.NewYAMLRecognizer(),
	}, opts...)
}

// DataProvider holds the buffer of one file and the results of the
// representations tried on it. It is not safe for concurrent use; create one
// per buffer and per goroutine.
type DataProvider struct {
	raw      *content.RawContent
	pipeline *content.Pipeline
	logger   *zap.Logger

	// Structure is set by a successful RepresentAsStructure.
	Structure *content.Structure
	// RecognizerUsed names the recognizer that produced Structure.
	RecognizerUsed string
	// Decoded is set by a successful RepresentAsEncoded.
	Decoded []byte
	// Candidates are set by a successful RepresentAsXML or RepresentAsHTML.
	Candidates content.Candidates
}

// Option configures a DataProvider.
type Option func(*DataProvider)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *DataProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipeline replaces the default structure recognizers.
func WithPipeline(pipeline *content.Pipeline) Option {
	return func(p *DataProvider) {
		p.pipeline = pipeline
	}
}

// New creates a provider for raw. raw must not be shared with other providers.
func New(raw *content.RawContent, opts ...Option) *DataProvider {
	p := &DataProvider{raw: raw, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.pipeline == nil {
		p.pipeline = DefaultPipeline(content.WithPipelineLogger(p.logger))
	}
	return p
}

// NewFromBytes creates a provider for data with the default encoding.
func NewFromBytes(data []byte, opts ...Option) *DataProvider {
	return New(&content.RawContent{Data: data}, opts...)
}

// Raw returns the wrapped content.
func (p *DataProvider) Raw() *content.RawContent {
	return p.raw
}

// Lines returns the current candidate lines.
func (p *DataProvider) Lines() []string {
	return p.Candidates.Lines
}

// LineNumbers returns the line numbers parallel to Lines.
func (p *DataProvider) LineNumbers() []int {
	return p.Candidates.LineNumbers
}

func (p *DataProvider) text() (string, bool) {
	text, err := p.raw.Text()
	if err != nil {
		p.logger.Debug("cannot decode text", zap.String("path", p.raw.Path), zap.Error(err))
		return "", false
	}
	return text, true
}

// RepresentAsStructure tries the recognizers in order and stores the first
// non-empty object or array. It reports whether a structure was found.
func (p *DataProvider) RepresentAsStructure() bool {
	text, ok := p.text()
	if !ok {
		return false
	}
	result, ok := p.pipeline.RecognizeWithMeta(text)
	if !ok {
		return false
	}
	p.Structure = &result.Structure
	p.RecognizerUsed = result.RecognizerUsed
	return true
}

// RepresentAsXML flattens XML into candidate lines numbered by source line.
func (p *DataProvider) RepresentAsXML() bool {
	if len(p.raw.Data) < content.MinXMLLen {
		return false
	}
	text, ok := p.text()
	if !ok {
		return false
	}
	if !strings.Contains(text, "<") || !strings.Contains(text, ">") || !strings.Contains(text, "</") {
		p.logger.Debug("weak data to parse as XML", zap.String("path", p.raw.Path))
		return false
	}
	candidates, err := parsers.ExtractXML(text)
	if err != nil {
		p.logger.Debug("cannot parse as XML", zap.String("path", p.raw.Path), zap.Error(err))
		return false
	}
	p.Candidates = candidates
	return true
}

// RepresentAsHTML renders markup into candidate lines, adding header and
// chain pairs reconstructed from tables.
func (p *DataProvider) RepresentAsHTML() bool {
	text, ok := p.text()
	if !ok {
		return false
	}
	if !strings.Contains(text, "</") || !strings.Contains(text, ">") {
		p.logger.Debug("weak data to parse as HTML", zap.String("path", p.raw.Path))
		return false
	}
	candidates, err := parsers.ExtractHTML(text)
	if err != nil {
		p.logger.Debug("cannot parse as HTML", zap.String("path", p.raw.Path), zap.Error(err))
		return false
	}
	p.logger.Debug("converted from HTML", zap.String("path", p.raw.Path), zap.Int("lines", candidates.Len()))
	p.Candidates = candidates
	return true
}

// RepresentAsEncoded decodes the raw bytes as base64. It does not depend on
// the declared text encoding.
func (p *DataProvider) RepresentAsEncoded() bool {
	decoded, ok := content.DecodeBase64(p.raw.Data)
	if !ok {
		p.logger.Debug("cannot decode as base64", zap.String("path", p.raw.Path))
		return false
	}
	p.Decoded = decoded
	return true
}
