// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"

	"go.uber.org/zap"
)

// Recognizer is a best-effort try-parser for one notation.
type Recognizer interface {
	// Name identifies the notation in logs.
	Name() string
	// CanHandle is a cheap gate that rules out clearly non-matching text.
	CanHandle(text string) bool
	// Recognize parses text. Any error is a format mismatch.
	Recognize(text string) (Structure, error)
}

// Pipeline runs recognizers strictly in order and keeps the first populated result.
type Pipeline struct {
	recognizers []Recognizer
	logger      *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger used for recognizer failures.
func WithPipelineLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a Pipeline with the provided recognizers in priority order.
func NewPipeline(recognizers []Recognizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		recognizers: recognizers,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RecognizeResult is the output of a successful recognition.
type RecognizeResult struct {
	Structure      Structure
	RecognizerUsed string
}

// Recognize returns the structure found by the first recognizer that yields a
// populated object or array. Text shorter than MinDataLen is never recognized.
func (p *Pipeline) Recognize(text string) (Structure, bool) {
	result, ok := p.RecognizeWithMeta(text)
	return result.Structure, ok
}

func (p *Pipeline) RecognizeWithMeta(text string) (RecognizeResult, bool) {
	if len(text) < MinDataLen {
		return RecognizeResult{}, false
	}
	for _, r := range p.recognizers {
		if !r.CanHandle(text) {
			p.logger.Debug("weak data for recognizer", zap.String("recognizer", r.Name()))
			continue
		}
		structure, err := p.try(r, text)
		if err != nil {
			p.logger.Debug("cannot recognize", zap.String("recognizer", r.Name()), zap.Error(err))
			continue
		}
		if !structure.Populated() {
			p.logger.Debug("empty result", zap.String("recognizer", r.Name()), zap.Stringer("kind", structure.Kind))
			continue
		}
		p.logger.Debug("converted", zap.String("recognizer", r.Name()))
		return RecognizeResult{Structure: structure, RecognizerUsed: r.Name()}, true
	}
	return RecognizeResult{}, false
}

// try isolates a recognizer so that a panic on hostile input is a mismatch.
func (p *Pipeline) try(r Recognizer, text string) (structure Structure, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			structure = Structure{}
			err = fmt.Errorf("recognizer %q panicked: %v", r.Name(), rec)
		}
	}()
	return r.Recognize(text)
}

// RegisteredRecognizers returns the names of all recognizers in priority order.
func (p *Pipeline) RegisteredRecognizers() []string {
	names := make([]string, len(p.recognizers))
	for i, r := range p.recognizers {
		names[i] = r.Name()
	}
	return names
}
