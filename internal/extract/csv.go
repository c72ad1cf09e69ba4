package extract

import (
	"context"
	"encoding/csv"
	"strings"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// CSVExtractor implements the CSV extractor variant: parse CSV text
// and project logical fields by header name. selectors maps each
// logical field to the CSV column header it corresponds to.
type CSVExtractor struct{}

func NewCSVExtractor() CSVExtractor { return CSVExtractor{} }

func (CSVExtractor) Extract(ctx context.Context, payload Payload, selectors map[model.Field]string) (model.RawExtraction, error) {
	reader := csv.NewReader(strings.NewReader(payload.CSV))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return model.RawExtraction{}, nil
	}

	header := rows[0]
	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(name)] = i
	}

	result := make(model.RawExtraction, len(selectors))
	for field, headerName := range selectors {
		idx, ok := columnIndex[headerName]
		if !ok {
			result[field] = []string{}
			continue
		}
		var values []string
		for _, row := range rows[1:] {
			if idx < len(row) {
				values = append(values, strings.TrimSpace(row[idx]))
			} else {
				values = append(values, "")
			}
		}
		result[field] = values
	}
	return result, nil
}
