package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	ErrEmptyChoices        = errors.New("empty llm choices")
	ErrGeminiNotConfigured = errors.New("gemini api key is not configured")
)

// StatusError is a provider failure normalized to an HTTP-like status.
type StatusError struct {
	Provider   Provider
	StatusCode int
	// Code is the provider's own error code when it differs from the HTTP status.
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s response status %d (code %d): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s response status %d: %s", e.Provider, e.StatusCode, e.Message)
}

var (
	transientMarkers = []string{"resource_exhausted", "resource exhausted", "quota"}
	// Numeric codes count only when they read as a status, e.g. "Error 429" or "status: 503".
	transientStatusPattern = regexp.MustCompile(`\b(?:error|status|code|http)\b[\s:=]*(?:429|500|503)\b`)
	quotaStatusPattern     = regexp.MustCompile(`\b(?:error|status|code|http)\b[\s:=]*429\b`)
)

// IsTransient reports rate-limit, quota and server-unavailable failures worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return containsAny(msg, transientMarkers) || transientStatusPattern.MatchString(msg)
}

// IsQuotaExhausted is the narrower condition that moves the reasoning model down a tier.
func IsQuotaExhausted(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return containsAny(msg, transientMarkers) || quotaStatusPattern.MatchString(msg)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
