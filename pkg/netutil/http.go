package netutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/rate"
	"github.com/solagent/solagent-go/pkg/retry"
	"github.com/solagent/solagent-go/pkg/retry/backoff"
)

const (
	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 4 << 20

	defaultGetAttempts = 3
	retryBaseDelay     = 100 * time.Millisecond
	retryMaxDelay      = 2 * time.Second
)

// HTTPError is returned when a remote service responds with a non 2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("received http status %d: %s", e.StatusCode, e.Body)
}

// IsHTTPStatus reports whether err is an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

// Request describes a single call to a remote JSON service.
type Request struct {
	Method string
	Url    string

	// Body, when set, is encoded as JSON.
	Body interface{}

	// RateLimitKey partitions the limiter. Calls without a limiter, or with
	// an empty key, are not limited.
	RateLimitKey string

	// Attempts bounds how many times the request is made when it fails with a
	// transient error. GETs default to a few attempts, everything else to one.
	Attempts uint
}

func (r Request) attempts() uint {
	if r.Attempts > 0 {
		return r.Attempts
	}
	if r.Method == http.MethodGet {
		return defaultGetAttempts
	}
	return 1
}

// Do executes the request and returns the raw response body. Transport
// failures, throttling and gateway errors are retried with exponential
// backoff, up to the request's attempt limit.
func Do(ctx context.Context, httpClient *http.Client, limiter rate.Limiter, req Request) ([]byte, error) {
	var encoded []byte
	if req.Body != nil {
		var err error
		encoded, err = json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "error marshalling json request")
		}
	}

	var respBody []byte
	_, err := retry.Retry(
		func() error {
			var err error
			respBody, err = do(ctx, httpClient, limiter, req, encoded)
			return err
		},
		retry.Limit(req.attempts()),
		retry.Context(ctx),
		retry.If(isTransient),
		retry.ContextBackoff(ctx, backoff.BinaryExponential(retryBaseDelay), retryMaxDelay),
	)
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func do(ctx context.Context, httpClient *http.Client, limiter rate.Limiter, req Request, encoded []byte) ([]byte, error) {
	if limiter != nil && len(req.RateLimitKey) > 0 {
		if err := limiter.Wait(ctx, req.RateLimitKey); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if encoded != nil {
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Url, body)
	if err != nil {
		return nil, errors.Wrap(err, "error creating http request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if encoded != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &transportError{cause: errors.Wrap(err, "error reading response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return "error executing http request: " + e.cause.Error()
}

func (e *transportError) Unwrap() error {
	return e.cause
}

func isTransient(err error) bool {
	var transportErr *transportError
	if errors.As(err, &transportErr) {
		return true
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// DoJSON executes the request and decodes the JSON response into out.
func DoJSON(ctx context.Context, httpClient *http.Client, limiter rate.Limiter, req Request, out interface{}) error {
	respBody, err := Do(ctx, httpClient, limiter, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "error unmarshalling json response")
	}
	return nil
}
