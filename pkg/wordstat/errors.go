package wordstat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies an API failure so the UI can render a targeted message
// instead of a generic one.
type Kind string

const (
	KindInvalidToken Kind = "invalid-token"  // 401
	KindPermission   Kind = "permission"     // 403
	KindQuota        Kind = "quota-exceeded" // 429
	KindUnavailable  Kind = "unavailable"    // 503
	KindHTTP         Kind = "http"           // any other non-2xx
)

// APIError carries the classified reason for a failed API call.
type APIError struct {
	Status     int
	Kind       Kind
	Message    string
	RetryAfter time.Duration // only set for quota errors when the API reports it
	Body       string
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("wordstat api: %s (status %d, retry after %s)", e.Message, e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("wordstat api: %s (status %d)", e.Message, e.Status)
}

// errorEnvelope is the error shape the statistics API puts in response
// bodies. Fields are optional; absent ones just leave the message generic.
type errorEnvelope struct {
	Error struct {
		Message           string `json:"message"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
	} `json:"error"`
}

// classifyError maps a non-2xx response to an APIError per status code.
func classifyError(status int, header http.Header, body []byte) *APIError {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env) // best effort, body may not be JSON

	apiErr := &APIError{Status: status, Body: string(body)}

	switch status {
	case http.StatusUnauthorized:
		apiErr.Kind = KindInvalidToken
		apiErr.Message = "invalid or expired access token"
	case http.StatusForbidden:
		apiErr.Kind = KindPermission
		apiErr.Message = "access denied: the token may belong to a different account, " +
			"the application may not be approved for this API, or access was revoked"
	case http.StatusTooManyRequests:
		apiErr.Kind = KindQuota
		apiErr.Message = "request quota exceeded"
		apiErr.RetryAfter = retryAfter(header, env)
	case http.StatusServiceUnavailable:
		apiErr.Kind = KindUnavailable
		apiErr.Message = "service temporarily unavailable, retry later"
	default:
		apiErr.Kind = KindHTTP
		apiErr.Message = fmt.Sprintf("unexpected HTTP status %d", status)
	}

	if env.Error.Message != "" {
		apiErr.Message = fmt.Sprintf("%s: %s", apiErr.Message, env.Error.Message)
	}
	return apiErr
}

// retryAfter pulls a retry delay from the Retry-After header or the error
// body, whichever is present.
func retryAfter(header http.Header, env errorEnvelope) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if env.Error.RetryAfterSeconds > 0 {
		return time.Duration(env.Error.RetryAfterSeconds) * time.Second
	}
	return 0
}
