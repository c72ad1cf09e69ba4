package sink

import (
	"net/url"
	"strings"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// Field-length caps the Gateway applies when shaping a Row into the
// record the sink API accepts.
const (
	titleCap = 2000
	linkCap  = 2000
	optionCap = 100
	descChunkCap = 2000
)

var commaVariants = strings.NewReplacer(
	",", " -",
	"，", " -",
	"、", " -",
)

// ToSinkRecord validates and caps one Row. ok is false when the row
// fails validation (company_name or position missing / shorter than 2
// characters) and must be dropped before reaching the sink.
func ToSinkRecord(row model.Row) (model.SinkRecord, bool) {
	companyName := strings.TrimSpace(row[model.FieldCompanyName])
	position := strings.TrimSpace(row[model.FieldPosition])
	if len([]rune(companyName)) < 2 || len([]rune(position)) < 2 {
		return model.SinkRecord{}, false
	}

	return model.SinkRecord{
		CompanyName:       capRunes(companyName, titleCap),
		Position:          capRunes(commaVariants.Replace(position), titleCap),
		CompanySize:       capRunes(commaVariants.Replace(row[model.FieldCompanySize]), optionCap),
		ApplicationLink:   capLink(row[model.FieldApplicationLink]),
		DescriptionChunks: chunkDescription(row[model.FieldDescription]),
	}, true
}

func capRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// capLink enforces the 2000-character cap on application_link: an
// over-length value is replaced by its scheme://host, or dropped
// entirely if it does not parse as an absolute URL.
func capLink(raw string) string {
	if raw == "" {
		return ""
	}
	if len([]rune(raw)) <= linkCap {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// chunkDescription splits description into chunks of at most
// descChunkCap characters, dropping any chunk that is empty after
// trimming whitespace.
func chunkDescription(desc string) []string {
	if desc == "" {
		return nil
	}
	runes := []rune(desc)
	var chunks []string
	for start := 0; start < len(runes); start += descChunkCap {
		end := start + descChunkCap
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
