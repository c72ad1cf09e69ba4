// Package model holds the data shapes shared across the pipeline: the
// site catalog entry, the column-oriented extraction frame, the row
// view over it, and the record shape handed to the sink.
package model

import "time"

// Field is one of the logical columns a Parser can produce.
type Field string

const (
	FieldCompanyName      Field = "company_name"
	FieldPosition         Field = "position"
	FieldApplicationLink  Field = "application_link"
	FieldDescription      Field = "description"
	FieldCompanySize      Field = "company_size"
	FieldDate             Field = "date"
)

// ParserKind is the closed set of recognized parser_type values.
type ParserKind string

const (
	ParserHTTPHTML   ParserKind = "STATIC"
	ParserHTTPCSV    ParserKind = "DOWNLOAD"
	ParserBrowserPage ParserKind = "JS"
	ParserBrowserCSV ParserKind = "SEL_DOWNLOAD"
	ParserJSONAPI    ParserKind = "HIRE_BASE"
)

// FilterSet is the ignore/scrub term lists for one column.
type FilterSet struct {
	Ignore map[Field][]string
	Scrub  map[Field][]string
}

// SiteConfig is immutable after construction and shared read-only by a
// single Worker for the life of the process.
type SiteConfig struct {
	SiteID            string
	URL               string
	ParserKind        ParserKind
	BaseURL           string
	RobotsURL         string
	AcceptMIME        string
	DateFormat        string
	Selectors         map[Field]string
	Filters           FilterSet
	CadenceSeconds    int
	FeedURL           string
	JSONAPIDailyCap   int
	JSONAPIQuerySet   []string
}

// RawExtraction is the column-oriented output of an Extractor: ordered
// sequences of strings keyed by logical field. Columns are not
// guaranteed to be of equal length (a CSV header that is missing yields
// an empty column, and HTML selectors may match different counts).
type RawExtraction map[Field][]string

// Len returns the number of rows implied by the extraction (the length
// of its longest column), or 0 if the extraction has no columns.
func (r RawExtraction) Len() int {
	n := 0
	for _, col := range r {
		if len(col) > n {
			n = len(col)
		}
	}
	return n
}

// Empty reports whether every column is empty or there are no columns.
func (r RawExtraction) Empty() bool {
	for _, col := range r {
		if len(col) > 0 {
			return false
		}
	}
	return true
}

// Row is one horizontal slice across RawExtraction's columns. Source
// order is preserved and must be newest-first.
type Row map[Field]string

// RowsFromExtraction materializes a column-oriented frame into a row
// sequence, preserving source order. Columns shorter than Len are
// padded with "".
func RowsFromExtraction(ext RawExtraction) []Row {
	n := ext.Len()
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		row := make(Row, len(ext))
		for field, col := range ext {
			if i < len(col) {
				row[field] = col[i]
			} else {
				row[field] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// RobotsRules is immutable once produced by the Advisor.
type RobotsRules struct {
	CanFetch    bool
	CrawlDelay  time.Duration
	UserAgent   string
}

// SinkRecord is the shape required by the downstream document database,
// derived from a Row with field-length caps applied by the Gateway.
type SinkRecord struct {
	CompanyName      string
	Position         string
	ApplicationLink  string
	CompanySize      string
	DescriptionChunks []string
}

// SinkQueryRecord is one page returned by the sink's query endpoint, as
// read by the Housekeeper's two periodic tasks.
type SinkQueryRecord struct {
	ID          string
	CreatedTime time.Time
	CompanyName string
	Position    string
}
