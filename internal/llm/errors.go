package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamError is a failed call to the AI provider, carrying enough shape
// for the fallback classifier.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return "upstream error: " + e.Message
}

var quotaMarkers = []string{
	"quota",
	"rate limit",
	"rate-limit",
	"too many requests",
	"rpd",
	"rpm",
	"exceeded",
}

var technicalMarkers = []string{
	"not found",
	"not supported",
	"connection",
	"timeout",
	"socket",
	"websocket",
}

func upstreamStatus(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

func messageContainsAny(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsQuotaError reports whether the upstream failure looks like rate limiting
// or quota exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if upstreamStatus(err) == http.StatusTooManyRequests {
		return true
	}
	return messageContainsAny(err, quotaMarkers)
}

// IsTechnicalError reports whether the upstream failure is a transport or
// availability problem worth retrying on a different model.
func IsTechnicalError(err error) bool {
	if err == nil {
		return false
	}
	switch upstreamStatus(err) {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable:
		return true
	}
	return messageContainsAny(err, technicalMarkers)
}
