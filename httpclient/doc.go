// Package httpclient provides a pooled, process-wide connector that POSTs
// form encoded or multipart requests to a speech API and returns the
// decoded 200 response body.
//
// Lifecycle
//   - Build / BuildWithConfig create the connector once and reconfigure it
//     on every later call; all calls return the same *Connector.
//   - Release closes the pool. A later Build opens a fresh one.
//
// Pooling
//   - At most MaxConnections leases overall and DefaultMaxPerRoute per
//     scheme://host:port. Waiting for a lease is bounded by
//     DefaultAcquireTimeout.
//   - ConnectTimeout bounds dialing, SocketTimeout bounds every read.
//
// Retries
//   - Only dispatch failures are retried, at most RetryCount times and
//     without delay.
//   - Timeouts, cancellation, unknown hosts and TLS failures are never
//     retried, and neither is a response with a status other than 200.
//
// Errors
//   - Every failure is a ClientError; non-200 responses also match
//     ErrHTTPRequestFailed and expose URI and StatusCode via StatusError.
package httpclient
