// Package httpjson issues GET requests against a discovered instance and
// decodes JSON bodies, classifying every failure into a typed error.
package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/salim16/microservices-kaushik/pkg/discovery"
)

// maxErrorBody caps how much of a non-2xx body is kept for diagnostics.
const maxErrorBody = 4 << 10

// ConnectionError is returned when the instance could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError is returned when the request did not complete in time.
type TimeoutError struct {
	Addr string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout calling %s: %v", e.Addr, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx response: %d %s", e.Code, strings.TrimSpace(string(e.Body)))
}

// DecodeError is returned when the body does not match the expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client performs single GET requests with a fixed timeout. It never retries.
type Client struct {
	hc *http.Client
}

// NewClient creates a client whose requests are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// Get fetches path from the instance and decodes the JSON body into T.
func Get[T any](ctx context.Context, c *Client, instance discovery.Instance, path string) (T, error) {
	var v T
	addr := instance.Addr()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return v, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.hc.Do(req)
	if err != nil {
		return v, classify(ctx, addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return v, &StatusError{Code: resp.StatusCode, Body: body}
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return v, cerr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return v, &TimeoutError{Addr: addr, Err: err}
		}
		return v, &DecodeError{Err: err}
	}
	return v, nil
}

func classify(ctx context.Context, addr string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Addr: addr, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Addr: addr, Err: err}
	}
	return &ConnectionError{Addr: addr, Err: err}
}

// Retryable reports whether err is a transient transport failure.
func Retryable(err error) bool {
	var (
		connErr    *ConnectionError
		timeoutErr *TimeoutError
		statusErr  *StatusError
	)
	switch {
	case errors.As(err, &connErr), errors.As(err, &timeoutErr):
		return true
	case errors.As(err, &statusErr):
		return statusErr.Code >= 500
	}
	return false
}
