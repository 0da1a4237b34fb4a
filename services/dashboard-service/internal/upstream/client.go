package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/pkg/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout = 5 * time.Second

	maxBodySize = 10 << 20
)

// Service identifies one upstream by name and base URL.
type Service struct {
	Name    string
	BaseURL string
}

type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	log        logger.Logger
}

// NewHTTPClient builds the traced HTTP client used for upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}),
	}
}

func NewClient(httpClient *http.Client, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}
	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
		log:        log,
	}
}

// Fetch issues a single GET against svc and returns the raw JSON body. The
// credential is forwarded verbatim as the Authorization header. Failures are
// returned as *Error.
func (c *Client) Fetch(ctx context.Context, svc Service, path, credential string) (json.RawMessage, error) {
	start := time.Now()
	log := c.log.WithField("upstream", svc.Name)

	body, err := c.fetch(ctx, log, svc, path, credential)
	if err == nil {
		requestDuration.WithLabelValues(svc.Name, "success").Observe(time.Since(start).Seconds())
		return body, nil
	}

	upErr := &Error{Upstream: svc.Name, Kind: Classify(err), Err: err}

	// The caller gave up, usually because a sibling fetch already failed.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		requestDuration.WithLabelValues(svc.Name, "cancelled").Observe(time.Since(start).Seconds())
		log.Debug("Upstream request cancelled", logger.Field{Key: "path", Value: path})
		return nil, upErr
	}

	outcome := upErr.Kind.String()
	requestFailures.WithLabelValues(svc.Name, outcome).Inc()
	requestDuration.WithLabelValues(svc.Name, outcome).Observe(time.Since(start).Seconds())

	log.WithError(err).Error("Upstream request failed",
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "kind", Value: outcome},
	)
	return nil, upErr
}

func (c *Client) fetch(ctx context.Context, log logger.Logger, svc Service, path, credential string) (json.RawMessage, error) {
	target, err := buildTargetURL(svc.BaseURL, path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", credential)
	if id, ok := middleware.RequestIDFromContext(ctx); ok {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	log.Debug("Fetching data from upstream", logger.Field{Key: "url", Value: target})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: request failed with status code %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if !json.Valid(data) {
		return nil, ErrInvalidBody
	}

	return json.RawMessage(data), nil
}

func buildTargetURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid service URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String(), nil
}
