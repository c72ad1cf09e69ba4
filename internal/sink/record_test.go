package sink

import (
	"strings"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

func TestToSinkRecordDropsShortCompanyNameOrPosition(t *testing.T) {
	_, ok := ToSinkRecord(model.Row{model.FieldCompanyName: "A", model.FieldPosition: "Engineer"})
	if ok {
		t.Fatalf("expected a single-character company_name to be dropped")
	}
	_, ok = ToSinkRecord(model.Row{model.FieldCompanyName: "Acme", model.FieldPosition: ""})
	if ok {
		t.Fatalf("expected a missing position to be dropped")
	}
}

func TestToSinkRecordReplacesCommaVariantsInPositionAndSize(t *testing.T) {
	row := model.Row{
		model.FieldCompanyName: "Acme",
		model.FieldPosition:    "Engineer,Backend",
		model.FieldCompanySize: "100，500",
	}
	record, ok := ToSinkRecord(row)
	if !ok {
		t.Fatalf("expected the row to validate")
	}
	if strings.ContainsAny(record.Position, ",，、") {
		t.Fatalf("expected no comma variants in position, got %q", record.Position)
	}
	if strings.ContainsAny(record.CompanySize, ",，、") {
		t.Fatalf("expected no comma variants in company_size, got %q", record.CompanySize)
	}
}

func TestToSinkRecordCapsApplicationLinkToOrigin(t *testing.T) {
	longPath := strings.Repeat("a", linkCap+1)
	row := model.Row{
		model.FieldCompanyName:     "Acme",
		model.FieldPosition:        "Engineer",
		model.FieldApplicationLink: "https://example.com/" + longPath,
	}
	record, ok := ToSinkRecord(row)
	if !ok {
		t.Fatalf("expected the row to validate")
	}
	if record.ApplicationLink != "https://example.com" {
		t.Fatalf("expected the over-length link to collapse to its origin, got %q", record.ApplicationLink)
	}
}

func TestToSinkRecordKeepsShortApplicationLinkAsIs(t *testing.T) {
	row := model.Row{
		model.FieldCompanyName:     "Acme",
		model.FieldPosition:        "Engineer",
		model.FieldApplicationLink: "https://example.com/jobs/1",
	}
	record, ok := ToSinkRecord(row)
	if !ok {
		t.Fatalf("expected the row to validate")
	}
	if record.ApplicationLink != "https://example.com/jobs/1" {
		t.Fatalf("expected the short link to pass through unchanged, got %q", record.ApplicationLink)
	}
}

func TestToSinkRecordChunksDescriptionAndDropsEmptyChunks(t *testing.T) {
	desc := strings.Repeat("x", descChunkCap) + "   " + strings.Repeat("y", 10)
	row := model.Row{
		model.FieldCompanyName: "Acme",
		model.FieldPosition:    "Engineer",
		model.FieldDescription: desc,
	}
	record, ok := ToSinkRecord(row)
	if !ok {
		t.Fatalf("expected the row to validate")
	}
	if len(record.DescriptionChunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(record.DescriptionChunks), record.DescriptionChunks)
	}
	for _, c := range record.DescriptionChunks {
		if len([]rune(c)) > descChunkCap {
			t.Fatalf("chunk exceeds cap: %d runes", len([]rune(c)))
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("expected no empty chunks")
		}
	}
}

func TestToSinkRecordMissingDescriptionYieldsNilChunks(t *testing.T) {
	row := model.Row{model.FieldCompanyName: "Acme", model.FieldPosition: "Engineer"}
	record, ok := ToSinkRecord(row)
	if !ok {
		t.Fatalf("expected the row to validate")
	}
	if record.DescriptionChunks != nil {
		t.Fatalf("expected nil chunks for a missing description, got %v", record.DescriptionChunks)
	}
}
