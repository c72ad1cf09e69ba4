package pipeline

import (
	"context"
	"strings"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// FilterProcessor applies the ignore and scrub strategies, in that order,
// against filter lists resolved additively: Global defaults unioned with
// the site's own overrides, deduplicated and lower-cased per column.
type FilterProcessor struct {
	Applicability
	Global model.FilterSet
}

func NewFilterProcessor(global model.FilterSet) FilterProcessor {
	return FilterProcessor{Global: global}
}

func (f FilterProcessor) Process(ctx context.Context, frame model.RawExtraction, cfg model.SiteConfig) (model.RawExtraction, error) {
	if frame.Empty() {
		return frame, nil
	}

	merged := mergeFilterSet(f.Global, cfg.Filters)

	frame = applyIgnore(frame, merged.Ignore)
	if frame.Empty() {
		return frame, nil
	}
	return applyScrub(frame, merged.Scrub), nil
}

func mergeFilterSet(global, site model.FilterSet) model.FilterSet {
	return model.FilterSet{
		Ignore: mergeTermMap(global.Ignore, site.Ignore),
		Scrub:  mergeTermMap(global.Scrub, site.Scrub),
	}
}

func mergeTermMap(maps ...map[model.Field][]string) map[model.Field][]string {
	out := make(map[model.Field][]string)
	seen := make(map[model.Field]map[string]bool)
	for _, m := range maps {
		for field, terms := range m {
			if seen[field] == nil {
				seen[field] = make(map[string]bool)
			}
			for _, t := range terms {
				lower := strings.ToLower(t)
				if !seen[field][lower] {
					seen[field][lower] = true
					out[field] = append(out[field], lower)
				}
			}
		}
	}
	return out
}

// applyIgnore drops whole rows: if any listed field's value (case
// insensitive) contains a listed term, the row is dropped regardless of
// the other fields' values.
func applyIgnore(frame model.RawExtraction, ignore map[model.Field][]string) model.RawExtraction {
	n := frame.Len()
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	for field, terms := range ignore {
		if len(terms) == 0 {
			continue
		}
		col, ok := frame[field]
		if !ok {
			continue
		}
		for i, value := range col {
			if i >= len(keep) || !keep[i] {
				continue
			}
			lower := strings.ToLower(value)
			for _, term := range terms {
				if strings.Contains(lower, term) {
					keep[i] = false
					break
				}
			}
		}
	}
	return filterRows(frame, keep)
}

// applyScrub replaces listed tokens with the empty string then
// forward-fills down the column, propagating the last non-scrubbed value
// (e.g. a grouped listing's company name repeated across its rows).
func applyScrub(frame model.RawExtraction, scrub map[model.Field][]string) model.RawExtraction {
	out := make(model.RawExtraction, len(frame))
	for field, col := range frame {
		out[field] = append([]string(nil), col...)
	}
	for field, tokens := range scrub {
		if len(tokens) == 0 {
			continue
		}
		col, ok := out[field]
		if !ok {
			continue
		}
		tokenSet := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			tokenSet[strings.ToLower(t)] = true
		}
		last := ""
		for i, value := range col {
			if tokenSet[strings.ToLower(value)] {
				col[i] = last
			} else {
				last = value
			}
		}
	}
	return out
}
