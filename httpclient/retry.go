package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"

	"github.com/gaborage/go-bricks-speech/logger"
)

// FailureKind classifies a dispatch failure for the retry decision
type FailureKind int

const (
	// FailureTransient covers refused, reset and prematurely closed connections
	FailureTransient FailureKind = iota
	// FailureInterrupted covers cancellation and every kind of timeout
	FailureInterrupted
	// FailureUnknownHost means the host name did not resolve
	FailureUnknownHost
	// FailureTLS means the TLS handshake or certificate check failed
	FailureTLS
)

func (k FailureKind) String() string {
	switch k {
	case FailureInterrupted:
		return "interrupted"
	case FailureUnknownHost:
		return "unknown_host"
	case FailureTLS:
		return "tls"
	default:
		return "transient"
	}
}

// Decision is the outcome of a retry evaluation
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionAbort
)

func (d Decision) String() string {
	if d == DecisionRetry {
		return "retry"
	}
	return "abort"
}

// Decide returns DecisionAbort once executionCount exceeds budget or when
// the failure is interrupted, an unknown host or a TLS failure.
// executionCount is 1 on the first failure of a logical request.
func Decide(kind FailureKind, executionCount, budget int) Decision {
	if executionCount > budget {
		return DecisionAbort
	}
	switch kind {
	case FailureInterrupted, FailureUnknownHost, FailureTLS:
		return DecisionAbort
	default:
		return DecisionRetry
	}
}

// ClassifyFailure maps a dispatch error to its FailureKind
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureUnknownHost
	}

	if isTLSFailure(err) {
		return FailureTLS
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrAcquireTimeout) {
		return FailureInterrupted
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureInterrupted
	}

	return FailureTransient
}

func isTLSFailure(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		headerErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &headerErr),
		errors.As(err, &alertErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	}
	// crypto/tls reports most handshake failures as plain errors
	return strings.Contains(err.Error(), "tls: ")
}

// RetryPolicy decides whether a failed dispatch is attempted again.
// A nil policy never retries.
type RetryPolicy struct {
	budget int
	log    logger.Logger
}

// NewRetryPolicy returns a policy allowing up to budget retries
func NewRetryPolicy(budget int, log logger.Logger) *RetryPolicy {
	if log == nil {
		log = logger.Nop()
	}
	return &RetryPolicy{budget: budget, log: log}
}

// Budget returns the maximum number of retries
func (p *RetryPolicy) Budget() int {
	if p == nil {
		return 0
	}
	return p.budget
}

// ShouldRetry evaluates the failure of execution executionCount
func (p *RetryPolicy) ShouldRetry(ctx context.Context, err error, executionCount int) bool {
	if p == nil {
		return false
	}

	kind := ClassifyFailure(err)
	if Decide(kind, executionCount, p.budget) == DecisionAbort {
		return false
	}

	p.log.Info().
		Int("attempt", executionCount).
		Int("budget", p.budget).
		Str("failure", kind.String()).
		Err(err).
		Msg("Retrying speech API request")
	recordRetry(ctx, kind)

	return true
}
