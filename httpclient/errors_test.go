package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypes(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      ClientError
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "network with cause",
			err:      NewNetworkError("request execution failed", cause),
			wantType: NetworkError,
			wantMsg:  "network error: request execution failed: dial tcp: connection refused",
		},
		{
			name:     "network without cause",
			err:      NewNetworkError("pool gone", nil),
			wantType: NetworkError,
			wantMsg:  "network error: pool gone",
		},
		{
			name:     "timeout",
			err:      NewTimeoutError("request interrupted", 5*time.Second, nil),
			wantType: TimeoutError,
			wantMsg:  "timeout error: request interrupted (timeout: 5s)",
		},
		{
			name:     "http",
			err:      NewHTTPError("http://api/v1/tts", 503),
			wantType: HTTPError,
			wantMsg:  "HTTP error: request to http://api/v1/tts failed (status: 503)",
		},
		{
			name:     "validation",
			err:      NewValidationError("URL cannot be empty", "url"),
			wantType: ValidationError,
			wantMsg:  "validation error: URL cannot be empty (field: url)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type())
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, IsErrorType(tt.err, tt.wantType))
		})
	}
}

func TestHTTPErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("iat call: %w", NewHTTPError("http://api/v1/iat", 404))

	assert.True(t, errors.Is(err, ErrHTTPRequestFailed))
	assert.True(t, IsHTTPStatusError(err, 404))
	assert.False(t, IsHTTPStatusError(err, 500))

	var statusErr StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "http://api/v1/iat", statusErr.URI())
	assert.Equal(t, 404, statusErr.StatusCode())

	assert.False(t, errors.Is(NewNetworkError("x", nil), ErrHTTPRequestFailed))
}

func TestWrappedCausesAreReachable(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}

	netErr := NewNetworkError("request execution failed", dnsErr)
	var gotDNS *net.DNSError
	require.True(t, errors.As(netErr, &gotDNS))
	assert.Equal(t, "nowhere.invalid", gotDNS.Name)

	timeoutErr := NewTimeoutError("request interrupted", time.Second, context.DeadlineExceeded)
	assert.True(t, errors.Is(timeoutErr, context.DeadlineExceeded))
	assert.Contains(t, timeoutErr.Error(), context.DeadlineExceeded.Error())
}

func TestIsErrorTypeNil(t *testing.T) {
	assert.False(t, IsErrorType(nil, NetworkError))
	assert.False(t, IsErrorType(errors.New("plain"), NetworkError))
	assert.False(t, IsHTTPStatusError(nil, 500))
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(204))
	assert.False(t, IsSuccessStatus(302))
	assert.False(t, IsSuccessStatus(503))
}
