package httpclient

import (
	"net/url"
	"time"
)

// DefaultMaxPayloadLogBytes caps body previews logged at debug level
const DefaultMaxPayloadLogBytes = 1024

// logRequest logs the outgoing request
func (e *executor) logRequest(uri, requestID string, p payload) {
	e.log.Info().
		Str("direction", "outbound").
		Str("method", "POST").
		Str("url", uri).
		Str("request_id", requestID).
		Int("body_size", len(p.body)).
		Str("encoding", string(p.encoding)).
		Msg("Speech API request")

	// multipart bodies carry binary audio; only form bodies are previewed.
	// Params go through the logger's sensitive field filter.
	if e.logPayloads && p.encoding == EncodingForm && len(p.body) > 0 {
		params, err := url.ParseQuery(string(p.body))
		if err != nil {
			return
		}
		e.log.Debug().
			Str("request_id", requestID).
			Interface("params", params).
			Msg("Speech API request body")
	}
}

// logResponse logs the incoming response
func (e *executor) logResponse(requestID string, status int, elapsed time.Duration, attempts int, body string) {
	e.log.Info().
		Str("direction", "inbound").
		Str("request_id", requestID).
		Int("status", status).
		Dur("elapsed", elapsed).
		Int("attempts", attempts).
		Msg("Speech API response")

	if e.logPayloads && body != "" {
		e.log.Debug().
			Str("request_id", requestID).
			Bytes("body", truncate([]byte(body), e.maxPayloadBytes)).
			Msg("Speech API response body")
	}
}

// logStatusFailure logs a non-200 response before it is turned into an error
func (e *executor) logStatusFailure(uri, requestID string, status int) {
	e.log.Warn().
		Str("url", uri).
		Str("request_id", requestID).
		Int("status", status).
		Msg("Speech API request failed")
}

// logFailure logs the final error of a logical request
func (e *executor) logFailure(uri, requestID string, attempts int, elapsed time.Duration, err error) {
	e.log.Error().
		Err(err).
		Str("url", uri).
		Str("request_id", requestID).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("Speech API request error")
}

func truncate(b []byte, limit int) []byte {
	if limit <= 0 || len(b) <= limit {
		return b
	}
	return b[:limit]
}
