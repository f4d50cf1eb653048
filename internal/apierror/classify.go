package apierror

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

var retryInPattern = regexp.MustCompile(`(?i)retry in ([\d.]+s)`)

// Classify maps any error to an *Error. A nil error yields nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(Timeout, "The request timed out. Please try again.", err)
	case errors.Is(err, context.Canceled):
		return Wrap(Canceled, "request cancelled", err)
	}

	if apiErr, ok := asAPIError(err); ok {
		if e := classifyAPIError(apiErr, err); e != nil {
			return e
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		log.Debug().Err(err).Msg("Transport error from generation backend")
		return Wrap(NetworkError, err.Error(), err)
	}

	return classifyMessage(err)
}

// asAPIError extracts a genai.APIError whether it was returned by value or
// by pointer.
func asAPIError(err error) (genai.APIError, bool) {
	var byValue genai.APIError
	if errors.As(err, &byValue) {
		return byValue, true
	}
	var byPtr *genai.APIError
	if errors.As(err, &byPtr) && byPtr != nil {
		return *byPtr, true
	}
	return genai.APIError{}, false
}

// classifyAPIError uses the HTTP code and RPC status. It returns nil when the
// code carries no useful signal so the message heuristic can run.
func classifyAPIError(apiErr genai.APIError, err error) *Error {
	lower := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
		log.Warn().Int("code", apiErr.Code).Msg("Generation quota exceeded")
		return &Error{Kind: QuotaExceeded, Detail: apiErr.Message, RetryAfter: retryAfter(apiErr.Message), Err: err}
	case apiErr.Code == 401 || apiErr.Code == 403 || apiErr.Status == "PERMISSION_DENIED" || apiErr.Status == "UNAUTHENTICATED":
		log.Error().Int("code", apiErr.Code).Msg("Authentication failed - invalid API key")
		return Wrap(InvalidAPIKey, apiErr.Message, err)
	case apiErr.Code == 400 && strings.Contains(lower, "api key"):
		log.Error().Int("code", apiErr.Code).Msg("Bad request - API key rejected")
		return Wrap(InvalidAPIKey, apiErr.Message, err)
	case apiErr.Code == 404 && strings.Contains(lower, "requested entity was not found"):
		return Wrap(InvalidAPIKey, apiErr.Message, err)
	case apiErr.Code >= 500 && apiErr.Code <= 599:
		log.Error().Int("code", apiErr.Code).Msg("Generation backend server error")
		return Wrap(NetworkError, apiErr.Message, err)
	}
	return nil
}

// classifyMessage is the substring fallback for opaque errors. The order of
// checks matters: a quota message that mentions an API key is still a quota
// failure.
func classifyMessage(err error) *Error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "resource_exhausted"):
		return &Error{Kind: QuotaExceeded, Detail: msg, RetryAfter: retryAfter(msg), Err: err}
	case strings.Contains(lower, "requested entity was not found"):
		return Wrap(InvalidAPIKey, msg, err)
	case strings.Contains(lower, "no image was generated"):
		return Wrap(NoImageGenerated, msg, err)
	case strings.Contains(lower, "safety") || strings.Contains(lower, "blocked"):
		return Wrap(SafetyBlocked, msg, err)
	case strings.Contains(lower, "fetch") || strings.Contains(lower, "network"):
		return Wrap(NetworkError, msg, err)
	case strings.Contains(lower, "api key"):
		return Wrap(ConfigurationError, msg, err)
	default:
		log.Debug().Err(err).Msg("Unclassified generation error")
		return Wrap(Unknown, msg, err)
	}
}

func retryAfter(msg string) string {
	if m := retryInPattern.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}
	return ""
}
