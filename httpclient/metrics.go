package httpclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Meter and tracer name for connector instrumentation
	instrumentationName = "go-bricks-speech/httpclient"

	metricRequestDuration = "speech.client.request.duration" // Histogram in seconds
	metricRequests        = "speech.client.requests"         // Counter
	metricRetries         = "speech.client.retries"          // Counter
	metricPoolLeased      = "speech.client.pool.leased"      // Observable UpDownCounter

	attrEncoding     = "speech.request.encoding"
	attrAttempts     = "speech.request.attempts"
	attrFailure      = "speech.failure.kind"
	attrErrorType    = "error.type"
	attrPoolMaxTotal = "speech.pool.max_total"
)

// Speech API calls are long-running synthesis/recognition requests
var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

var (
	// Singleton meter initialization
	clientMeter metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	// Metric instruments
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	retryCounter    metric.Int64Counter
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize speech client metric %s: %v\n", metricName, err)
	}
}

func initClientMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if clientMeter != nil {
		return
	}

	clientMeter = otel.Meter(instrumentationName)

	var err error
	requestDuration, err = clientMeter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of speech API requests including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(metricRequestDuration, err)

	requestCounter, err = clientMeter.Int64Counter(
		metricRequests,
		metric.WithDescription("Number of speech API requests by outcome"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricRequests, err)

	retryCounter, err = clientMeter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of automatic retries after transient failures"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)
}

func ensureMeterInitialized() {
	meterOnce.Do(initClientMeter)
}

// recordRequest records duration and outcome of one logical request.
// statusCode is 0 when no response was received.
func recordRequest(ctx context.Context, enc Encoding, elapsed time.Duration, statusCode int, err error) {
	ensureMeterInitialized()

	attrs := []attribute.KeyValue{attribute.String(attrEncoding, string(enc))}
	if statusCode > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(statusCode))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, errorTypeOf(err)))
	}

	if requestDuration != nil {
		requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
	if requestCounter != nil {
		requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRetry(ctx context.Context, kind FailureKind) {
	ensureMeterInitialized()

	if retryCounter != nil {
		retryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(attrFailure, kind.String())))
	}
}

// registerPoolMetrics observes the leased count of pool until the returned
// cleanup function runs.
func registerPoolMetrics(pool *Pool) func() error {
	ensureMeterInitialized()

	noop := func() error { return nil }
	if clientMeter == nil {
		return noop
	}

	leased, err := clientMeter.Int64ObservableUpDownCounter(
		metricPoolLeased,
		metric.WithDescription("Connection leases currently held"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		logMetricError(metricPoolLeased, err)
		return noop
	}

	registration, err := clientMeter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := pool.Stats()
		o.ObserveInt64(leased, stats.Leased,
			metric.WithAttributes(attribute.Int(attrPoolMaxTotal, stats.MaxTotal)))
		return nil
	}, leased)
	if err != nil {
		logMetricError("pool_metrics_callback", err)
		return noop
	}

	return registration.Unregister
}

func errorTypeOf(err error) string {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return string(clientErr.Type())
	}
	return "_OTHER"
}

// startSpan opens the client span for one logical request
func startSpan(ctx context.Context, uri, host string, enc Encoding) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "POST",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodPost,
			semconv.URLFull(uri),
			semconv.ServerAddress(host),
			attribute.String(attrEncoding, string(enc)),
		),
	)
}

// endSpan records the outcome on span and ends it
func endSpan(span trace.Span, attempts, statusCode int, err error) {
	span.SetAttributes(attribute.Int(attrAttempts, attempts))
	if statusCode > 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(attrErrorType, errorTypeOf(err)))
	}
	span.End()
}
