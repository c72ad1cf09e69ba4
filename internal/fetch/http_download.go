package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

// HTTPDownloadFetcher implements HTTP_DOWNLOAD: a vendor-approved CSV
// export endpoint. Robots is not consulted — per spec, this variant
// exists precisely because the site has already approved the access.
type HTTPDownloadFetcher struct {
	httpClient   *http.Client
	metadataSink metadata.MetadataSink
}

func NewHTTPDownloadFetcher(httpClient *http.Client, metadataSink metadata.MetadataSink) *HTTPDownloadFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPDownloadFetcher{httpClient: httpClient, metadataSink: metadataSink}
}

func (h *HTTPDownloadFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (*Payload, error) {
	accept := opts.Accept
	if accept == "" {
		accept = "text/csv"
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = randomUserAgent()
	}

	startedAt := time.Now()
	body, statusCode, err := h.do(ctx, targetURL, userAgent, accept)
	duration := time.Since(startedAt)

	if h.metadataSink != nil {
		h.metadataSink.RecordFetch(targetURL, statusCode, duration, accept, 0, 0)
	}

	if err != nil {
		h.recordError(targetURL, err)
		return nil, nil
	}

	return &Payload{CSV: body}, nil
}

func (h *HTTPDownloadFetcher) do(ctx context.Context, targetURL, userAgent, accept string) (string, int, *FetchError) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if reqErr != nil {
		return "", 0, &FetchError{Message: reqErr.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, doErr := h.httpClient.Do(req)
	if doErr != nil {
		return "", 0, &FetchError{Message: doErr.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", resp.StatusCode, &FetchError{Message: fmt.Sprintf("download endpoint returned %d", resp.StatusCode), Retryable: resp.StatusCode >= 500, Cause: ErrCauseNetworkFailure}
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", resp.StatusCode, &FetchError{Message: readErr.Error(), Retryable: true, Cause: ErrCauseReadBodyFailure}
	}

	return string(body), resp.StatusCode, nil
}

func (h *HTTPDownloadFetcher) recordError(targetURL string, err *FetchError) {
	if h.metadataSink == nil {
		return
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetch",
		"HTTPDownloadFetcher.Fetch",
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, targetURL)},
	)
}
