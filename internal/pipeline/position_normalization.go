package pipeline

import (
	"context"
	"strings"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// commaVariants replaces the three comma variants sources use (ASCII
// comma, fullwidth comma, ideographic comma) with " -", the separator the
// downstream sink expects between a role and its level/qualifier.
var commaVariants = strings.NewReplacer(
	",", " -",
	"，", " -",
	"、", " -",
)

// PositionNormalization rewrites the position column's comma variants. A
// missing column is a pass-through, not an error.
type PositionNormalization struct {
	Applicability
}

func NewPositionNormalization() PositionNormalization { return PositionNormalization{} }

func (PositionNormalization) Process(ctx context.Context, frame model.RawExtraction, cfg model.SiteConfig) (model.RawExtraction, error) {
	col, ok := frame[model.FieldPosition]
	if !ok {
		return frame, nil
	}

	out := make(model.RawExtraction, len(frame))
	for field, values := range frame {
		out[field] = values
	}
	normalized := make([]string, len(col))
	for i, v := range col {
		normalized[i] = commaVariants.Replace(v)
	}
	out[model.FieldPosition] = normalized
	return out, nil
}
