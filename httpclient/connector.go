package httpclient

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gaborage/go-bricks-speech/config"
	"github.com/gaborage/go-bricks-speech/logger"
	"github.com/gaborage/go-bricks-speech/trace"
)

// Config holds everything BuildWithConfig applies to the connector.
type Config struct {
	// MaxConnections caps concurrent leases across all routes.
	MaxConnections int `validate:"min=1"`
	// ConnectTimeout bounds dialing. Zero means no timeout.
	ConnectTimeout time.Duration `validate:"min=0s"`
	// SocketTimeout bounds each read on a connection. Zero means no timeout.
	SocketTimeout time.Duration `validate:"min=0s"`
	// RetryCount is the number of automatic retries after transient failures.
	RetryCount int `validate:"min=0"`

	// RateLimit throttles dispatches per second; zero disables it.
	RateLimit float64 `validate:"min=0"`
	RateBurst int     `validate:"min=0"`

	LogPayloads        bool
	MaxPayloadLogBytes int `validate:"min=0"`

	// RequestIDHeader defaults to trace.HeaderXRequestID.
	RequestIDHeader string

	// Logger defaults to a no-op logger.
	Logger logger.Logger
	// Transport replaces the pooled round tripper, mainly in tests.
	Transport nethttp.RoundTripper
}

// FromConfig converts loaded configuration into a connector Config
func FromConfig(cfg *config.Config, log logger.Logger) Config {
	c := cfg.Connector
	return Config{
		MaxConnections:     c.Max.Connections,
		ConnectTimeout:     c.Timeout.Connect,
		SocketTimeout:      c.Timeout.Socket,
		RetryCount:         c.Retry.Count,
		RateLimit:          c.Rate.Limit,
		RateBurst:          c.Rate.Burst,
		LogPayloads:        c.Log.Payloads,
		MaxPayloadLogBytes: c.Log.MaxBytes,
		RequestIDHeader:    c.Trace.Header,
		Logger:             log,
	}
}

var configValidator = validator.New()

func (c *Config) validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(
			fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value()),
			fe.Field(),
		)
	}
	return NewValidationError(err.Error(), "config")
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.RequestIDHeader == "" {
		c.RequestIDHeader = trace.HeaderXRequestID
	}
	if c.MaxPayloadLogBytes == 0 {
		c.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
}

// Connector is the process-wide pooled speech API client
type Connector struct {
	mu             sync.Mutex
	pool           *Pool
	unregisterPool func() error
	exec           atomic.Pointer[executor]
}

var (
	instanceOnce sync.Once
	instance     atomic.Pointer[Connector]
)

// Build configures the process-wide connector with pool limits, timeouts in
// milliseconds and a retry budget, and returns it. Every call returns the
// same connector; later calls replace its limits.
func Build(maxConnections, connectTimeoutMs, socketTimeoutMs, retryCount int) (*Connector, error) {
	return BuildWithConfig(Config{
		MaxConnections: maxConnections,
		ConnectTimeout: time.Duration(connectTimeoutMs) * time.Millisecond,
		SocketTimeout:  time.Duration(socketTimeoutMs) * time.Millisecond,
		RetryCount:     retryCount,
	})
}

// BuildWithConfig is Build with the full set of options. An invalid cfg
// returns a ValidationError and leaves the connector as it was.
func BuildWithConfig(cfg Config) (*Connector, error) {
	instanceOnce.Do(func() {
		instance.Store(newConnector())
	})

	c := instance.Load()
	if err := c.configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the connector built by Build, or nil before the first build
func Default() *Connector {
	return instance.Load()
}

// Release releases the process-wide connector, if one was built
func Release() {
	if c := Default(); c != nil {
		c.Release()
	}
}

func newConnector() *Connector {
	return &Connector{}
}

func (c *Connector) configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg.applyDefaults()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil || c.pool.Closed() {
		c.pool = NewPool(cfg.MaxConnections)
		c.unregisterPool = registerPoolMetrics(c.pool)
	}
	c.pool.SetLimits(cfg.MaxConnections, DefaultMaxPerRoute)
	c.pool.SetTimeouts(cfg.ConnectTimeout, cfg.SocketTimeout)
	c.pool.SetRateLimit(cfg.RateLimit, cfg.RateBurst)

	c.exec.Store(newExecutor(c.pool, &cfg))

	cfg.Logger.Info().
		Int("max_connections", cfg.MaxConnections).
		Int("max_per_route", DefaultMaxPerRoute).
		Dur("connect_timeout", cfg.ConnectTimeout).
		Dur("socket_timeout", cfg.SocketTimeout).
		Int("retry_count", cfg.RetryCount).
		Msg("Speech connector built")
	return nil
}

// Post sends params form encoded and returns the UTF-8 decoded 200 body
func (c *Connector) Post(ctx context.Context, url string, params map[string]string) (string, error) {
	exec, err := c.executor()
	if err != nil {
		return "", err
	}
	return exec.execute(ctx, url, encodeForm(params), DefaultCharset)
}

// PostMultipart sends payload as the "content" part, named after
// params["slice_id"], with every parameter as a text part.
func (c *Connector) PostMultipart(ctx context.Context, url string, params map[string]string, payload []byte) (string, error) {
	exec, err := c.executor()
	if err != nil {
		return "", err
	}
	p, err := encodeMultipart(params, payload)
	if err != nil {
		return "", err
	}
	return exec.execute(ctx, url, p, DefaultCharset)
}

// Stats reports the pool limits and the leases currently held
func (c *Connector) Stats() PoolStats {
	exec := c.exec.Load()
	if exec == nil {
		return PoolStats{}
	}
	return exec.pool.Stats()
}

// Release closes the pool. Errors are logged, never returned.
// Releasing an unbuilt or already released connector does nothing.
func (c *Connector) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	exec := c.exec.Load()
	if c.pool == nil || c.pool.Closed() || exec == nil {
		return
	}

	if err := c.pool.Close(); err != nil {
		exec.log.Error().Err(err).Msg("Failed to close speech connection pool")
	}
	if c.unregisterPool != nil {
		if err := c.unregisterPool(); err != nil {
			exec.log.Error().Err(err).Msg("Failed to unregister speech pool metrics")
		}
		c.unregisterPool = nil
	}
	exec.log.Info().Msg("Speech connector released")
}

func (c *Connector) executor() (*executor, error) {
	exec := c.exec.Load()
	if exec == nil {
		return nil, NewValidationError("connector has not been built", "connector")
	}
	return exec, nil
}
