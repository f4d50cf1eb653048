// Package gemini wraps the Gemini and Veo APIs for the studio: stylize a
// photo, generate from a prompt, edit, face swap, upscale, caption and
// animate.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/assets"
	"github.com/fpang/toon-nation/internal/metrics"
	"github.com/fpang/toon-nation/internal/styles"
)

// Defaults for the video poll loop: 30 checks 10s apart.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 30
)

// errNoImage is the message returned when a response carries no image part.
const errNoImage = "No image was generated by the AI."

// ContentGenerator is the part of genai.Models used for image and text
// generation. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// AdvancedOptions are the free-text modifiers passed through to the prompt.
type AdvancedOptions struct {
	Emotion    string `json:"emotion,omitempty"`
	Pose       string `json:"pose,omitempty"`
	Outfit     string `json:"outfit,omitempty"`
	Background string `json:"background,omitempty"`
	Lighting   string `json:"lighting,omitempty"`
}

// StylizeOptions parameterise Stylize and GenerateFromPrompt. Styles holds
// catalog keys; unknown keys are sent verbatim.
type StylizeOptions struct {
	Styles       []string
	ShotType     string
	Intensity    int
	FaceFidelity int
	Advanced     AdvancedOptions
}

// Options configure a Client. Zero values select the defaults.
type Options struct {
	ImageModel   string
	TextModel    string
	VideoModel   string
	PollInterval time.Duration
	MaxPolls     int
	// HTTPClient is used for video downloads.
	HTTPClient *http.Client
}

// Client issues generation requests. It is safe for concurrent use.
type Client struct {
	content    ContentGenerator
	videos     VideoBackend
	httpClient *http.Client
	apiKey     string

	ImageModel string
	TextModel  string
	VideoModel string

	// PollInterval and MaxPolls bound the Animate poll loop.
	PollInterval time.Duration
	MaxPolls     int
}

// NewClient creates a Gemini API backed client.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewClientWith(gc.Models, NewVideoBackend(gc), apiKey, opts), nil
}

// NewClientWith builds a Client over explicit backends.
func NewClientWith(content ContentGenerator, videos VideoBackend, apiKey string, opts Options) *Client {
	c := &Client{
		content:      content,
		videos:       videos,
		httpClient:   opts.HTTPClient,
		apiKey:       apiKey,
		ImageModel:   opts.ImageModel,
		TextModel:    opts.TextModel,
		VideoModel:   opts.VideoModel,
		PollInterval: opts.PollInterval,
		MaxPolls:     opts.MaxPolls,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.ImageModel == "" {
		c.ImageModel = ModelImage
	}
	if c.TextModel == "" {
		c.TextModel = ModelText
	}
	if c.VideoModel == "" {
		c.VideoModel = ModelVideo
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	return c
}

// Stylize renders the photo in the selected styles.
func (c *Client) Stylize(ctx context.Context, image []byte, mimeType string, opts StylizeOptions) ([]byte, error) {
	prompt := assets.RenderToonifyPrompt(stylizeData("", opts))
	return c.generateImage(ctx, "stylize", []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	})
}

// GenerateFromPrompt creates a character portrait from text alone.
func (c *Client) GenerateFromPrompt(ctx context.Context, prompt string, opts StylizeOptions) ([]byte, error) {
	text := assets.RenderScratchPrompt(stylizeData(prompt, opts))
	return c.generateImage(ctx, "generateFromPrompt", []*genai.Part{genai.NewPartFromText(text)})
}

// EditImage applies a free-text instruction to an image.
func (c *Client) EditImage(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, error) {
	return c.generateImage(ctx, "editImage", []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(instruction),
	})
}

// FaceSwap places the face from source onto the person in target. The
// target goes first; the instruction refers to the images by position.
func (c *Client) FaceSwap(ctx context.Context, source []byte, sourceMIME string, target []byte, targetMIME string) ([]byte, error) {
	return c.generateImage(ctx, "faceSwap", []*genai.Part{
		genai.NewPartFromBytes(target, targetMIME),
		genai.NewPartFromBytes(source, sourceMIME),
		genai.NewPartFromText(assets.FaceSwapPrompt),
	})
}

// Upscale asks for a high-resolution rendition of image.
func (c *Client) Upscale(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	return c.generateImage(ctx, "upscale", []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(assets.UpscalePrompt),
	})
}

// Caption writes a one-line caption for a result. styleNames are display
// names. Quotes are removed from the reply.
func (c *Client) Caption(ctx context.Context, styleNames []string, emotion, outfit string) (string, error) {
	prompt := assets.RenderCaptionPrompt(styleNames, emotion, outfit)

	start := time.Now()
	resp, err := c.content.GenerateContent(ctx, c.TextModel, genai.Text(prompt), nil)
	c.record("caption", c.TextModel, start, err)
	if err != nil {
		log.Warn().Err(err).Msg("Caption generation failed")
		return "", fmt.Errorf("failed to generate caption: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("received empty response from Gemini API")
	}
	return strings.TrimSpace(strings.ReplaceAll(resp.Text(), `"`, "")), nil
}

func (c *Client) generateImage(ctx context.Context, op string, parts []*genai.Part) ([]byte, error) {
	log.Debug().
		Str("operation", op).
		Str("model", c.ImageModel).
		Int("parts", len(parts)).
		Msg("Sending image generation request")

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.content.GenerateContent(ctx, c.ImageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage)},
	})
	if err == nil {
		var data []byte
		data, err = extractImage(resp)
		if err == nil {
			c.record(op, c.ImageModel, start, nil)
			log.Info().
				Str("operation", op).
				Int("output_bytes", len(data)).
				Dur("duration", time.Since(start)).
				Msg("Image generated")
			return data, nil
		}
	}

	c.record(op, c.ImageModel, start, err)
	log.Error().Err(err).Str("operation", op).Dur("duration", time.Since(start)).Msg("Image generation failed")
	return nil, err
}

// extractImage returns the first inline image of the first candidate.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil {
		return nil, apierror.New(apierror.NoImageGenerated, errNoImage)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return nil, apierror.New(apierror.SafetyBlocked, "prompt blocked: "+string(fb.BlockReason))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, apierror.New(apierror.NoImageGenerated, errNoImage)
	}

	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonImageSafety, genai.FinishReasonBlocklist:
		return nil, apierror.New(apierror.SafetyBlocked, "response blocked: "+string(cand.FinishReason))
	}
	return nil, apierror.New(apierror.NoImageGenerated, errNoImage)
}

func stylizeData(prompt string, opts StylizeOptions) assets.StylizeData {
	return assets.StylizeData{
		Prompt:       prompt,
		Styles:       styles.Names(opts.Styles),
		ShotType:     opts.ShotType,
		Intensity:    opts.Intensity,
		FaceFidelity: opts.FaceFidelity,
		Emotion:      opts.Advanced.Emotion,
		Pose:         opts.Advanced.Pose,
		Outfit:       opts.Advanced.Outfit,
		Background:   opts.Advanced.Background,
		Lighting:     opts.Advanced.Lighting,
	}
}

// record emits latency and outcome for one API call.
func (c *Client) record(op, model string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = apierror.Classify(err).Kind.String()
	}
	metrics.New(metrics.Namespace).
		Dimension("Operation", op).
		Dimension("Result", result).
		Property("Model", model).
		Duration("GeminiApiLatencyMs", time.Since(start)).
		Count("GeminiApiCalls").
		Flush()
}
