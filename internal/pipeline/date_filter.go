package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

const relativeMarker = "--relative"

var whitespaceRE = regexp.MustCompile(`\s+`)

// DateFilter keeps only rows whose date column resolves to today or
// yesterday. config.DateFormat selects the mode:
//   - relative: DateFormat contains "--relative"; the remainder is a
//     template with exactly one {n} placeholder (e.g. "Posted {n} days
//     ago") compiled into a regexp that extracts the offset.
//   - absolute: DateFormat is a Go reference-time layout (e.g.
//     "2006-01-02") applied directly to the date column.
type DateFilter struct {
	Applicability
}

func NewDateFilter() DateFilter { return DateFilter{} }

func (f DateFilter) Process(ctx context.Context, frame model.RawExtraction, cfg model.SiteConfig) (model.RawExtraction, error) {
	if frame.Empty() {
		return frame, nil
	}

	col, ok := frame[model.FieldDate]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, model.FieldDate)
	}

	keep, err := dateKeepFunc(cfg.DateFormat)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, len(col))
	for i, raw := range col {
		mask[i] = keep(raw)
	}
	return filterRows(frame, mask), nil
}

func dateKeepFunc(dateFormat string) (func(string) bool, error) {
	if strings.Contains(dateFormat, relativeMarker) {
		template := strings.TrimSpace(strings.Replace(dateFormat, relativeMarker, "", 1))
		pattern, err := compileRelativeTemplate(template)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDateTemplate, err.Error())
		}
		return func(raw string) bool {
			n, ok := extractOffset(pattern, raw)
			return ok && (n == 0 || n == 1)
		}, nil
	}

	now := time.Now().Local()
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	return func(raw string) bool {
		parsed, err := time.ParseInLocation(dateFormat, raw, time.Local)
		if err != nil {
			return false
		}
		d := parsed.Format("2006-01-02")
		return d == today || d == yesterday
	}, nil
}

// compileRelativeTemplate turns a template like "Posted {n} days ago"
// into an anchored regexp capturing the integer offset, escaping the
// literal portions and letting whitespace stretch to match arbitrary
// runs of whitespace in the source text.
func compileRelativeTemplate(template string) (*regexp.Regexp, error) {
	parts := strings.SplitN(template, "{n}", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("template %q missing {n} placeholder", template)
	}
	escape := func(s string) string {
		return whitespaceRE.ReplaceAllString(regexp.QuoteMeta(s), `\s*`)
	}
	pattern := "^" + escape(parts[0]) + `(\d+)` + escape(parts[1]) + "$"
	return regexp.Compile(pattern)
}

func extractOffset(pattern *regexp.Regexp, raw string) (int, bool) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func filterRows(frame model.RawExtraction, keep []bool) model.RawExtraction {
	out := make(model.RawExtraction, len(frame))
	for field, col := range frame {
		filtered := make([]string, 0, len(col))
		for i, v := range col {
			if i < len(keep) && keep[i] {
				filtered = append(filtered, v)
			}
		}
		out[field] = filtered
	}
	return out
}
