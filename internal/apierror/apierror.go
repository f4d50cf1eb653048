// Package apierror classifies failures from the generation backend into a
// small taxonomy and turns them into messages a person can act on.
//
// Classify is the only place that inspects upstream error text. Structured
// signals (typed errors, genai.APIError codes and statuses, context and net
// errors) are consulted first; substring matching is the fallback for opaque
// upstream messages.
package apierror

import "fmt"

// Kind categorizes a failure.
type Kind int

const (
	// Unknown is the fallback; the upstream message is passed through verbatim.
	Unknown Kind = iota
	// QuotaExceeded indicates rate limiting or an exhausted quota.
	QuotaExceeded
	// InvalidAPIKey indicates the key is missing upstream, invalid or revoked.
	InvalidAPIKey
	// NoImageGenerated indicates a response without an image part.
	NoImageGenerated
	// SafetyBlocked indicates the request or response was blocked by safety filters.
	SafetyBlocked
	// NetworkError indicates the backend could not be reached.
	NetworkError
	// ConfigurationError is an API-key-shaped failure distinct from an invalid key.
	ConfigurationError
	// Timeout indicates a long-running job did not finish in time.
	Timeout
	// MissingDownloadLink indicates a finished video job without a result URI.
	MissingDownloadLink
	// Busy indicates another generation is still outstanding.
	Busy
	// Canceled indicates the caller abandoned the request.
	Canceled
)

var kindNames = map[Kind]string{
	Unknown:             "unknown",
	QuotaExceeded:       "quota_exceeded",
	InvalidAPIKey:       "invalid_api_key",
	NoImageGenerated:    "no_image_generated",
	SafetyBlocked:       "safety_blocked",
	NetworkError:        "network_error",
	ConfigurationError:  "configuration_error",
	Timeout:             "timeout",
	MissingDownloadLink: "missing_download_link",
	Busy:                "busy",
	Canceled:            "canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Detail is the raw message from the client or the upstream service.
	Detail string
	// RetryAfter is the wait hint parsed from a quota message (e.g. "12.5s").
	RetryAfter string
	Err        error
}

// New creates an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap creates an Error of the given kind around err.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail != e.Err.Error() {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind: errors.Is(err, apierror.New(apierror.Busy, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Message returns the text shown to the user for this failure.
func (e *Error) Message() string {
	switch e.Kind {
	case QuotaExceeded:
		if e.RetryAfter != "" {
			return fmt.Sprintf("The AI is temporarily busy. Please try again in about %s.", e.RetryAfter)
		}
		return "You've exceeded the API usage quota. Please check your plan, billing details (ai.google.dev/gemini-api/docs/billing), and rate limits (ai.google.dev/gemini-api/docs/rate-limits)."
	case InvalidAPIKey:
		return "API Key not found or invalid. Please check your key and ensure your project has billing enabled. See: ai.google.dev/gemini-api/docs/billing"
	case NoImageGenerated:
		return "The AI couldn't create an image. This might be due to our safety filters or an unclear request. Please try a different image or style combination."
	case SafetyBlocked:
		return "Your request was blocked for safety reasons. Please try a different image or prompt."
	case NetworkError:
		return "Couldn't connect to the AI. Please check your internet connection and try again."
	case ConfigurationError:
		return "There's a problem with the application's configuration. Please try again later."
	case Busy:
		return "Another creation is still in progress. Please wait for it to finish."
	case Canceled:
		return "The request was cancelled."
	case Timeout, MissingDownloadLink:
		return e.Detail
	default:
		return "An unexpected error occurred: " + e.Error()
	}
}

// Message classifies err and returns its user-facing text.
func Message(err error) string {
	if err == nil {
		return "An unknown error occurred. Please try again."
	}
	return Classify(err).Message()
}
