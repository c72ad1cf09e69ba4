package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// notionVersion is the wire version every request to the downstream
// document database must pin, per its Notion-Version header contract.
const notionVersion = "2025-09-03"

// setNotionHeaders applies the three headers every sink request needs:
// bearer auth, JSON body, and the pinned API version.
func setNotionHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)
}

// WriteClient is the Gateway's dependency on the downstream document
// database. A non-nil error is always a *SinkError.
type WriteClient interface {
	Write(ctx context.Context, record model.SinkRecord) error
}

// HTTPWriteClient POSTs one page-creation request per record against a
// Notion-shaped pages API: a "properties" object for the scalar fields
// and, when present, a "children" array of paragraph blocks for the
// chunked description.
type HTTPWriteClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	parentID   string
}

func NewHTTPWriteClient(httpClient *http.Client, endpoint, apiKey, parentID string) *HTTPWriteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPWriteClient{httpClient: httpClient, endpoint: endpoint, apiKey: apiKey, parentID: parentID}
}

func (c *HTTPWriteClient) Write(ctx context.Context, record model.SinkRecord) error {
	body, err := json.Marshal(c.requestBody(record))
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	setNotionHeaders(req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return &SinkError{Message: "conflict", Retryable: true, Cause: ErrCauseConflict}
	case resp.StatusCode >= 500:
		return &SinkError{Message: fmt.Sprintf("write failed: %d", resp.StatusCode), Retryable: true, Cause: ErrCauseWriteFailure}
	case resp.StatusCode >= 400:
		return &SinkError{Message: fmt.Sprintf("write failed: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	return nil
}

// requestBody builds a create-page request. A record with no
// description chunks omits "children" entirely. "Status" is set on
// every request; "Application Link" and "Company Size" are the only
// optional properties.
func (c *HTTPWriteClient) requestBody(r model.SinkRecord) map[string]any {
	properties := map[string]any{
		"Company Name": titleProperty(r.CompanyName),
		"Position":     multiSelectProperty(r.Position),
		"Status":       statusProperty("Pending"),
	}
	if r.ApplicationLink != "" {
		properties["Application Link"] = urlProperty(r.ApplicationLink)
	}
	if r.CompanySize != "" {
		properties["Company Size"] = multiSelectProperty(r.CompanySize)
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": c.parentID},
		"properties": properties,
	}
	if len(r.DescriptionChunks) > 0 {
		body["children"] = paragraphBlocks(r.DescriptionChunks)
	}
	return body
}

func titleProperty(text string) map[string]any {
	return map[string]any{"title": []map[string]any{{"text": map[string]any{"content": text}}}}
}

func urlProperty(u string) map[string]any {
	return map[string]any{"url": u}
}

func multiSelectProperty(option string) map[string]any {
	return map[string]any{"multi_select": []map[string]any{{"name": option}}}
}

func statusProperty(name string) map[string]any {
	return map[string]any{"status": map[string]any{"name": name}}
}

func paragraphBlocks(chunks []string) []map[string]any {
	blocks := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []map[string]any{{"text": map[string]any{"content": chunk}}},
			},
		}
	}
	return blocks
}
