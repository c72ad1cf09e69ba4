// Package pipeline implements the Processing Pipeline: an ordered list of
// Processors, each applying to a subset of parser kinds, that narrows a
// column-oriented extraction frame down to the rows worth handing to the
// Sink Gateway.
package pipeline

import (
	"context"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// Processor is one stage of the pipeline. Process never mutates frame in
// place; it returns the next frame.
type Processor interface {
	Applies(kind model.ParserKind) bool
	Process(ctx context.Context, frame model.RawExtraction, cfg model.SiteConfig) (model.RawExtraction, error)
}

// Applicability is the whitelist-over-blacklist predicate shared by every
// Processor. A non-nil Include is authoritative: only listed kinds apply.
// Otherwise every kind not named in Exclude applies. The zero value
// applies to everything.
type Applicability struct {
	Include []model.ParserKind
	Exclude []model.ParserKind
}

func (a Applicability) Applies(kind model.ParserKind) bool {
	if a.Include != nil {
		for _, k := range a.Include {
			if k == kind {
				return true
			}
		}
		return false
	}
	for _, k := range a.Exclude {
		if k == kind {
			return false
		}
	}
	return true
}

// Pipeline is an ordered sequence of Processors.
type Pipeline struct {
	Stages []Processor
}

func New(stages ...Processor) Pipeline {
	return Pipeline{Stages: stages}
}

// Run applies each applicable Processor in order, short-circuiting as soon
// as the working frame becomes empty.
func (p Pipeline) Run(ctx context.Context, frame model.RawExtraction, cfg model.SiteConfig) (model.RawExtraction, error) {
	for _, stage := range p.Stages {
		if !stage.Applies(cfg.ParserKind) {
			continue
		}
		next, err := stage.Process(ctx, frame, cfg)
		if err != nil {
			return nil, err
		}
		frame = next
		if frame.Empty() {
			return frame, nil
		}
	}
	return frame, nil
}
