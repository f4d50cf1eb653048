package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"google.golang.org/genai"
)

func TestClassifyMessages(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		want  Kind
		retry string
	}{
		{"quota with retry", "Quota exceeded for metric. Please retry in 12.5s.", QuotaExceeded, "12.5s"},
		{"resource exhausted", "RESOURCE_EXHAUSTED: too many requests", QuotaExceeded, ""},
		{"quota beats api key", "quota exceeded for api key", QuotaExceeded, ""},
		{"entity not found", "Requested entity was not found.", InvalidAPIKey, ""},
		{"no image", "No image was generated by the AI.", NoImageGenerated, ""},
		{"safety", "Response blocked due to SAFETY", SafetyBlocked, ""},
		{"blocked", "prompt was blocked", SafetyBlocked, ""},
		{"fetch", "Failed to fetch", NetworkError, ""},
		{"network", "network unreachable", NetworkError, ""},
		{"api key", "API key missing from request", ConfigurationError, ""},
		{"unknown", "something odd happened", Unknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.msg))
			if got.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.msg, got.Kind, tt.want)
			}
			if got.RetryAfter != tt.retry {
				t.Errorf("RetryAfter = %q, want %q", got.RetryAfter, tt.retry)
			}
		})
	}
}

func TestQuotaRetryMessageVerbatim(t *testing.T) {
	err := errors.New("You exceeded your current quota. Please retry in 12.5s.")
	want := "The AI is temporarily busy. Please try again in about 12.5s."
	if got := Message(err); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestClassifyAPIErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  genai.APIError
		want Kind
	}{
		{"429", genai.APIError{Code: 429, Message: "retry in 3s"}, QuotaExceeded},
		{"resource exhausted status", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, QuotaExceeded},
		{"401", genai.APIError{Code: 401, Message: "unauthorized"}, InvalidAPIKey},
		{"403", genai.APIError{Code: 403}, InvalidAPIKey},
		{"400 api key", genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}, InvalidAPIKey},
		{"404 entity", genai.APIError{Code: 404, Message: "Requested entity was not found."}, InvalidAPIKey},
		{"503", genai.APIError{Code: 503, Message: "overloaded"}, NetworkError},
		{"400 safety falls through", genai.APIError{Code: 400, Message: "request blocked by safety filters"}, SafetyBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("stylize: %w", tt.err)
			if got := Classify(wrapped).Kind; got != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyAPIErrorPointer(t *testing.T) {
	err := fmt.Errorf("call: %w", &genai.APIError{Code: 429, Message: "Please retry in 7s"})
	got := Classify(err)
	if got.Kind != QuotaExceeded || got.RetryAfter != "7s" {
		t.Errorf("got %v retry %q", got.Kind, got.RetryAfter)
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := New(MissingDownloadLink, "Video generation failed to produce a download link.")
	got := Classify(fmt.Errorf("animate: %w", orig))
	if got != orig {
		t.Fatalf("expected the original *Error, got %#v", got)
	}
	if got.Message() != "Video generation failed to produce a download link." {
		t.Errorf("Message() = %q", got.Message())
	}
}

func TestClassifyContextAndTransport(t *testing.T) {
	if got := Classify(context.DeadlineExceeded).Kind; got != Timeout {
		t.Errorf("deadline: got %v", got)
	}
	if got := Classify(fmt.Errorf("wrapped: %w", context.Canceled)).Kind; got != Canceled {
		t.Errorf("canceled: got %v", got)
	}
	uerr := &url.Error{Op: "Get", URL: "https://example.invalid", Err: errors.New("dial tcp: lookup failed")}
	if got := Classify(uerr).Kind; got != NetworkError {
		t.Errorf("url error: got %v", got)
	}
}

func TestMessageFallbacks(t *testing.T) {
	if got := Message(nil); got != "An unknown error occurred. Please try again." {
		t.Errorf("nil message = %q", got)
	}
	if got := Message(errors.New("boom")); got != "An unexpected error occurred: boom" {
		t.Errorf("unknown message = %q", got)
	}
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v", got)
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("studio: %w", New(Busy, "generation already in progress"))
	if !errors.Is(err, New(Busy, "")) {
		t.Error("expected errors.Is to match on Busy kind")
	}
	if errors.Is(err, New(Timeout, "")) {
		t.Error("did not expect a Timeout match")
	}
}

func TestKindString(t *testing.T) {
	if QuotaExceeded.String() != "quota_exceeded" {
		t.Errorf("got %q", QuotaExceeded.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("got %q", Kind(99).String())
	}
}
