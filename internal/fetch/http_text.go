package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// robotsGate is the subset of the Robots Advisor an HTTP-backed
// fetcher needs: whether it may fetch, and how long to wait first.
type robotsGate interface {
	GetRules(ctx context.Context, requestURL, baseURL, userAgent string) model.RobotsRules
}

// HTTPTextFetcher implements HTTP_TEXT: plain HTML over HTTP, gated by
// robots.txt and the per-host crawl delay.
type HTTPTextFetcher struct {
	httpClient   *http.Client
	advisor      robotsGate
	rateLimiter  limiter.RateLimiter
	metadataSink metadata.MetadataSink
	retryParam   retry.RetryParam
}

func NewHTTPTextFetcher(httpClient *http.Client, advisor robotsGate, rateLimiter limiter.RateLimiter, metadataSink metadata.MetadataSink) *HTTPTextFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTextFetcher{
		httpClient:   httpClient,
		advisor:      advisor,
		rateLimiter:  rateLimiter,
		metadataSink: metadataSink,
		retryParam:   defaultRetryParam(),
	}
}

// SetRetryParam overrides the retry policy used for transient failures
// in do; NewHTTPTextFetcher seeds a sane default so this is optional.
func (h *HTTPTextFetcher) SetRetryParam(p retry.RetryParam) {
	h.retryParam = p
}

func (h *HTTPTextFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (*Payload, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = randomUserAgent()
	}

	rules := h.advisor.GetRules(ctx, targetURL, opts.BaseURL, userAgent)
	if !rules.CanFetch {
		return nil, nil
	}

	host := hostOf(targetURL)
	if h.rateLimiter != nil {
		h.rateLimiter.SetCrawlDelay(host, rules.CrawlDelay)
		delay := h.rateLimiter.ResolveDelay(host)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, nil
			case <-time.After(delay):
			}
		}
	}

	accept := opts.Accept
	if accept == "" {
		accept = "text/html"
	}

	startedAt := time.Now()
	body, statusCode, fetchErr := h.doWithRetry(ctx, targetURL, userAgent, accept)
	if h.rateLimiter != nil {
		h.rateLimiter.MarkLastFetchAsNow(host)
	}
	duration := time.Since(startedAt)

	if h.metadataSink != nil {
		h.metadataSink.RecordFetch(targetURL, statusCode, duration, accept, 0, 0)
	}

	if fetchErr != nil {
		if h.rateLimiter != nil {
			h.rateLimiter.Backoff(host)
		}
		h.recordError(targetURL, fetchErr)
		return nil, nil
	}

	if h.rateLimiter != nil {
		h.rateLimiter.ResetBackoff(host)
	}

	return &Payload{HTML: body}, nil
}

// httpTextResult bundles do's three return values into one type so it
// can flow through retry.Retry's single-value generic result.
type httpTextResult struct {
	body       string
	statusCode int
}

func defaultRetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		0,
		0,
		time.Now().UnixNano(),
		3,
		timeutil.NewBackoffParam(200*time.Millisecond, 2.0, 10*time.Second),
	)
}

// doWithRetry retries do on transient failures (network errors, 5xx,
// 429) per h.retryParam, using pkg/retry's exponential backoff. Non-
// retryable failures (403, bad content type, ...) return immediately.
func (h *HTTPTextFetcher) doWithRetry(ctx context.Context, targetURL, userAgent, accept string) (string, int, *FetchError) {
	result := retry.Retry(h.retryParam, func() (httpTextResult, failure.ClassifiedError) {
		body, statusCode, fetchErr := h.do(ctx, targetURL, userAgent, accept)
		if fetchErr != nil {
			return httpTextResult{statusCode: statusCode}, fetchErr
		}
		return httpTextResult{body: body, statusCode: statusCode}, nil
	})

	if result.Err() != nil {
		var fetchErr *FetchError
		if errors.As(result.Err(), &fetchErr) {
			return "", result.Value().statusCode, fetchErr
		}
		return "", result.Value().statusCode, &FetchError{Message: result.Err().Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	return result.Value().body, result.Value().statusCode, nil
}

func (h *HTTPTextFetcher) do(ctx context.Context, targetURL, userAgent, accept string) (string, int, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", 0, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", 0, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", resp.StatusCode, &FetchError{Message: fmt.Sprintf("server error %d", resp.StatusCode), Retryable: true, Cause: ErrCauseRequest5xx}
	case resp.StatusCode == 429:
		return "", resp.StatusCode, &FetchError{Message: "rate limited", Retryable: true, Cause: ErrCauseRequestTooMany}
	case resp.StatusCode == 403:
		return "", resp.StatusCode, &FetchError{Message: "forbidden", Retryable: false, Cause: ErrCauseRequestForbidden}
	case resp.StatusCode >= 400:
		return "", resp.StatusCode, &FetchError{Message: fmt.Sprintf("client error %d", resp.StatusCode), Retryable: false, Cause: ErrCauseRequestForbidden}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text") {
		return "", resp.StatusCode, &FetchError{Message: fmt.Sprintf("unexpected content type %q", contentType), Retryable: false, Cause: ErrCauseContentTypeInvalid}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseReadBodyFailure}
	}

	return string(body), resp.StatusCode, nil
}

func (h *HTTPTextFetcher) recordError(targetURL string, err *FetchError) {
	if h.metadataSink == nil {
		return
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetch",
		"HTTPTextFetcher.Fetch",
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, targetURL)},
	)
}

func hostOf(rawURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	if idx := strings.IndexAny(trimmed, "/?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

var _ failure.ClassifiedError = (*FetchError)(nil)
