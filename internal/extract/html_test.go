package extract

import (
	"context"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

const sampleHTML = `
<html><body>
<div class="job">
  <span class="company">Acme Corp</span>
  <a class="title" href="/jobs/1">Engineer</a>
</div>
<div class="job">
  <span class="company">Globex</span>
  <a class="title" href="/jobs/2">Designer</a>
</div>
</body></html>`

func TestHTMLExtractorPrefersHrefForApplicationLink(t *testing.T) {
	e := NewHTMLExtractor()
	selectors := map[model.Field]string{
		model.FieldCompanyName:      ".company",
		model.FieldApplicationLink: ".title",
	}

	ext, err := e.Extract(context.Background(), Payload{HTML: sampleHTML}, selectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ext[model.FieldCompanyName]; len(got) != 2 || got[0] != "Acme Corp" || got[1] != "Globex" {
		t.Fatalf("unexpected company_name values: %v", got)
	}
	if got := ext[model.FieldApplicationLink]; len(got) != 2 || got[0] != "/jobs/1" || got[1] != "/jobs/2" {
		t.Fatalf("unexpected application_link values: %v", got)
	}
}

func TestHTMLExtractorStripsInlineScriptFromFieldText(t *testing.T) {
	html := `<html><body><div class="job">
  <span class="company">Acme Corp<script>trackClick();</script><style>.x{color:red}</style></span>
</div></body></html>`
	e := NewHTMLExtractor()
	ext, err := e.Extract(context.Background(), Payload{HTML: html}, map[model.Field]string{model.FieldCompanyName: ".company"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ext[model.FieldCompanyName]; len(got) != 1 || got[0] != "Acme Corp" {
		t.Fatalf("expected script/style text stripped, got %v", got)
	}
}

func TestHTMLExtractorFallsBackToTextWithoutHref(t *testing.T) {
	html := `<html><body><span class="title">Text Only</span></body></html>`
	e := NewHTMLExtractor()
	ext, err := e.Extract(context.Background(), Payload{HTML: html}, map[model.Field]string{model.FieldApplicationLink: ".title"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ext[model.FieldApplicationLink]; len(got) != 1 || got[0] != "Text Only" {
		t.Fatalf("expected fallback to trimmed text, got %v", got)
	}
}
