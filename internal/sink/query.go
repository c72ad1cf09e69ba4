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

// QueryClient enumerates every page currently stored in the sink. The
// Housekeeper is the only caller; both of its periodic tasks start by
// pulling the full record set.
type QueryClient interface {
	QueryAll(ctx context.Context) ([]model.SinkQueryRecord, error)
}

// DeleteClient removes one page by ID.
type DeleteClient interface {
	Delete(ctx context.Context, id string) error
}

// HTTPQueryClient pages through a Notion-shaped database query endpoint,
// following start_cursor/has_more until the result set is exhausted.
type HTTPQueryClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func NewHTTPQueryClient(httpClient *http.Client, endpoint, apiKey string) *HTTPQueryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPQueryClient{httpClient: httpClient, endpoint: endpoint, apiKey: apiKey}
}

type queryPage struct {
	Results []struct {
		ID          string `json:"id"`
		CreatedTime string `json:"created_time"`
		Properties  struct {
			CompanyName struct {
				Title []struct {
					PlainText string `json:"plain_text"`
				} `json:"title"`
			} `json:"Company Name"`
			Position struct {
				MultiSelect []struct {
					Name string `json:"name"`
				} `json:"multi_select"`
			} `json:"Position"`
		} `json:"properties"`
	} `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

func (c *HTTPQueryClient) QueryAll(ctx context.Context) ([]model.SinkQueryRecord, error) {
	var out []model.SinkQueryRecord
	cursor := ""
	for {
		page, err := c.queryOnce(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Results {
			created, _ := time.Parse(time.RFC3339, r.CreatedTime)
			rec := model.SinkQueryRecord{ID: r.ID, CreatedTime: created}
			if len(r.Properties.CompanyName.Title) > 0 {
				rec.CompanyName = r.Properties.CompanyName.Title[0].PlainText
			}
			if len(r.Properties.Position.MultiSelect) > 0 {
				rec.Position = r.Properties.Position.MultiSelect[0].Name
			}
			out = append(out, rec)
		}
		if !page.HasMore || page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

func (c *HTTPQueryClient) queryOnce(ctx context.Context, cursor string) (*queryPage, error) {
	body := map[string]any{}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseQueryFailure}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseQueryFailure}
	}
	setNotionHeaders(req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SinkError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &SinkError{Message: fmt.Sprintf("query failed: %d", resp.StatusCode), Retryable: resp.StatusCode >= 500, Cause: ErrCauseQueryFailure}
	}

	var page queryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseQueryFailure}
	}
	return &page, nil
}

// HTTPDeleteClient archives (Notion's soft-delete) one page by ID.
type HTTPDeleteClient struct {
	httpClient  *http.Client
	pagesPrefix string
	apiKey      string
}

func NewHTTPDeleteClient(httpClient *http.Client, pagesPrefix, apiKey string) *HTTPDeleteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPDeleteClient{httpClient: httpClient, pagesPrefix: pagesPrefix, apiKey: apiKey}
}

func (c *HTTPDeleteClient) Delete(ctx context.Context, id string) error {
	body, err := json.Marshal(map[string]any{"archived": true})
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.pagesPrefix+"/"+id, bytes.NewReader(body))
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	setNotionHeaders(req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SinkError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &SinkError{Message: fmt.Sprintf("delete failed: %d", resp.StatusCode), Retryable: resp.StatusCode >= 500, Cause: ErrCauseWriteFailure}
	}
	return nil
}
