package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

const jsonAPIMinInterval = time.Second

// JSONAPIFetcher implements JSON_API: runs one HTTP GET per query in
// the configured query set (already capped to json_api_daily_query_cap
// by the catalog loader), rate-limited to at least one second between
// requests, continuing past individual query failures rather than
// aborting the whole cycle.
type JSONAPIFetcher struct {
	httpClient   *http.Client
	apiKey       string
	minInterval  time.Duration
	metadataSink metadata.MetadataSink
}

func NewJSONAPIFetcher(httpClient *http.Client, apiKey string, metadataSink metadata.MetadataSink) *JSONAPIFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &JSONAPIFetcher{httpClient: httpClient, apiKey: apiKey, minInterval: jsonAPIMinInterval, metadataSink: metadataSink}
}

// WithMinInterval overrides the default 1s pace between queries; tests
// use this to avoid waiting in real time.
func (j *JSONAPIFetcher) WithMinInterval(d time.Duration) *JSONAPIFetcher {
	j.minInterval = d
	return j
}

// FetchQuerySet runs every query in querySet against baseURL (one
// query per request, substituted as the "q" parameter) and returns the
// successfully parsed documents. Individual failures are recorded and
// skipped; only a canceled context stops the whole run early.
func (j *JSONAPIFetcher) FetchQuerySet(ctx context.Context, baseURL string, querySet []string) []map[string]any {
	var documents []map[string]any

	for i, query := range querySet {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return documents
			case <-time.After(j.minInterval):
			}
		}

		doc, err := j.fetchOne(ctx, baseURL, query)
		if err != nil {
			j.recordError(baseURL, query, err)
			continue
		}
		if doc != nil {
			documents = append(documents, doc)
		}
	}

	return documents
}

func (j *JSONAPIFetcher) fetchOne(ctx context.Context, baseURL, query string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("q", query)
	req.URL.RawQuery = q.Encode()

	if j.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	startedAt := time.Now()
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if j.metadataSink != nil {
		j.metadataSink.RecordFetch(req.URL.String(), resp.StatusCode, time.Since(startedAt), "application/json", 0, 0)
	}

	if resp.StatusCode >= 400 {
		return nil, &FetchError{Message: "json api request failed", Retryable: resp.StatusCode >= 500, Cause: ErrCauseNetworkFailure}
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseContentTypeInvalid}
	}

	return doc, nil
}

func (j *JSONAPIFetcher) recordError(baseURL, query string, err error) {
	if j.metadataSink == nil {
		return
	}
	j.metadataSink.RecordError(
		time.Now(),
		"fetch",
		"JSONAPIFetcher.FetchQuerySet",
		metadata.CauseNetworkFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, baseURL),
			metadata.NewAttr(metadata.AttrMessage, query),
		},
	)
}
