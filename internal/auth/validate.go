package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/metrics"
)

// ValidateAPIKey verifies the key with a minimal text request against model.
// It returns nil if the key works, or an *apierror.Error describing why not.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	if err == nil && (resp == nil || len(resp.Candidates) == 0) {
		log.Warn().Msg("API key validation returned empty response")
		err = apierror.New(apierror.Unknown, "API returned empty response")
	}

	result := "success"
	if err != nil {
		result = apierror.Classify(err).Kind.String()
	}
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()

	log.Debug().Str("result", result).Dur("duration", elapsed).Msg("API key validation result")
	if err != nil {
		return apierror.Classify(err)
	}

	log.Info().Msg("API key validated successfully")
	return nil
}
