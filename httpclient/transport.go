package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/gaborage/go-bricks-speech/logger"
	"github.com/gaborage/go-bricks-speech/trace"
)

// executor is one built generation of the connector. Each Build replaces
// it; requests already running keep the generation they started with.
type executor struct {
	pool            *Pool
	client          *nethttp.Client
	policy          *RetryPolicy
	log             logger.Logger
	requestIDHeader string
	socketTimeout   time.Duration
	logPayloads     bool
	maxPayloadBytes int
}

func newExecutor(pool *Pool, cfg *Config) *executor {
	rt := cfg.Transport
	if rt == nil {
		rt = pool.Transport()
	}

	var policy *RetryPolicy
	if cfg.RetryCount > 0 {
		policy = NewRetryPolicy(cfg.RetryCount, cfg.Logger)
	}

	return &executor{
		pool: pool,
		client: &nethttp.Client{
			Transport: rt,
			// redirects are reported as non-200 responses
			CheckRedirect: func(*nethttp.Request, []*nethttp.Request) error {
				return nethttp.ErrUseLastResponse
			},
		},
		policy:          policy,
		log:             cfg.Logger,
		requestIDHeader: cfg.RequestIDHeader,
		socketTimeout:   cfg.SocketTimeout,
		logPayloads:     cfg.LogPayloads,
		maxPayloadBytes: cfg.MaxPayloadLogBytes,
	}
}

// result carries what one attempt or one logical request produced
type result struct {
	body       string
	statusCode int
	attempts   int
}

// execute sends p to rawURL, retrying per the policy, and decodes a 200
// body with charset unless the response names its own.
func (e *executor) execute(ctx context.Context, rawURL string, p payload, charset string) (string, error) {
	u, route, err := parseTarget(rawURL)
	if err != nil {
		return "", err
	}

	requestID := trace.EnsureRequestID(ctx)
	ctx = trace.WithRequestID(ctx, requestID)

	ctx, span := startSpan(ctx, rawURL, u.Hostname(), p.encoding)
	start := time.Now()
	e.logRequest(rawURL, requestID, p)

	res, err := e.run(ctx, u, route, p, requestID, charset)
	elapsed := time.Since(start)

	endSpan(span, res.attempts, res.statusCode, err)
	recordRequest(ctx, p.encoding, elapsed, res.statusCode, err)

	if err != nil {
		e.logFailure(rawURL, requestID, res.attempts, elapsed, err)
		return "", err
	}

	e.logResponse(requestID, res.statusCode, elapsed, res.attempts, res.body)
	return res.body, nil
}

// run is the retry loop. Errors that are already a ClientError are final;
// raw dispatch errors go through the retry policy.
func (e *executor) run(ctx context.Context, u *url.URL, route string, p payload, requestID, charset string) (result, error) {
	for executionCount := 1; ; executionCount++ {
		res, err := e.attempt(ctx, u, route, p, requestID, charset)
		res.attempts = executionCount
		if err == nil {
			return res, nil
		}

		var clientErr ClientError
		if errors.As(err, &clientErr) {
			return res, err
		}

		if !e.policy.ShouldRetry(ctx, err, executionCount) {
			return res, e.finalError(err)
		}
	}
}

// attempt dispatches once. The lease is held until the body is drained.
func (e *executor) attempt(ctx context.Context, u *url.URL, route string, p payload, requestID, charset string) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, err
	}

	lease, err := e.pool.Acquire(ctx, route)
	if err != nil {
		if errors.Is(err, ErrPoolClosed) {
			return result{}, NewNetworkError("connector has been released", err)
		}
		return result{}, err
	}
	defer lease.Release()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, u.String(), bytes.NewReader(p.body))
	if err != nil {
		return result{}, NewValidationError(fmt.Sprintf("invalid request: %v", err), "url")
	}
	req.Header.Set("Content-Type", p.contentType)
	trace.Inject(ctx, req.Header, e.requestIDHeader, requestID)

	resp, err := e.client.Do(req)
	if err != nil {
		return result{}, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != nethttp.StatusOK {
		e.logStatusFailure(u.String(), requestID, resp.StatusCode)
		return result{statusCode: resp.StatusCode}, NewHTTPError(u.String(), resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{statusCode: resp.StatusCode}, e.bodyReadError(err)
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Type"), charset)
	if err != nil {
		return result{statusCode: resp.StatusCode}, err
	}
	return result{body: body, statusCode: resp.StatusCode}, nil
}

func (e *executor) bodyReadError(err error) error {
	if ClassifyFailure(err) == FailureInterrupted {
		return NewTimeoutError("reading response body timed out", e.socketTimeout, err)
	}
	return NewNetworkError("failed to read response body", err)
}

// finalError wraps a dispatch error the policy gave up on
func (e *executor) finalError(err error) error {
	if ClassifyFailure(err) != FailureInterrupted {
		return NewNetworkError("request execution failed", err)
	}
	if errors.Is(err, ErrAcquireTimeout) {
		return NewTimeoutError("no pooled connection available", DefaultAcquireTimeout, err)
	}
	return NewTimeoutError("request interrupted", e.socketTimeout, err)
}

// parseTarget validates rawURL and derives its pool route scheme://host:port
func parseTarget(rawURL string) (*url.URL, string, error) {
	if rawURL == "" {
		return nil, "", NewValidationError("URL cannot be empty", "url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", NewValidationError(fmt.Sprintf("invalid URL: %v", err), "url")
	}
	if u.Host == "" {
		return nil, "", NewValidationError("URL must be absolute", "url")
	}

	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
	default:
		return nil, "", NewValidationError(fmt.Sprintf("unsupported scheme %q", u.Scheme), "url")
	}

	return u, u.Scheme + "://" + net.JoinHostPort(u.Hostname(), port), nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
