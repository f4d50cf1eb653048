package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/assets"
	"github.com/fpang/toon-nation/internal/metrics"
	"github.com/fpang/toon-nation/internal/styles"
)

// User-facing video errors.
const (
	errVideoTimeout  = "Video generation timed out. Please try again."
	errVideoNoLink   = "Video generation failed to produce a download link."
	errVideoDownload = "Failed to download the generated video. Status: %d"
)

// fallbackAnimationStyle is used when the key is not in the catalog.
const fallbackAnimationStyle = "subtle"

// pollMessages rotate every third check while the video renders.
var pollMessages = []string{
	"Rendering frames...",
	"Compositing layers...",
	"Applying AI magic...",
	"This can take a few minutes...",
	"Almost there...",
	"Adding final touches...",
}

// ProgressFunc receives a 0-100 progress value and a status message.
type ProgressFunc func(progress int, message string)

// VideoJob is the state of a long-running video generation.
type VideoJob struct {
	Name string
	Done bool
	// URI is the download link of the first generated video, if any.
	URI string
	// Failure is the error reported by the service for a finished job.
	Failure string

	op *genai.GenerateVideosOperation
}

// VideoBackend submits and polls video generation jobs.
type VideoBackend interface {
	Submit(ctx context.Context, model, prompt string, image []byte, mimeType string) (*VideoJob, error)
	Poll(ctx context.Context, job *VideoJob) (*VideoJob, error)
}

// Animate turns image into a short looping video and returns the video
// bytes. onProgress may be nil.
func (c *Client) Animate(ctx context.Context, image []byte, mimeType, styleKey string, onProgress ProgressFunc) ([]byte, error) {
	if onProgress == nil {
		onProgress = func(int, string) {}
	}
	styleName := fallbackAnimationStyle
	if s, ok := styles.Lookup(styleKey); ok {
		styleName = s.Name
	}

	start := time.Now()
	video, checks, err := c.animate(ctx, image, mimeType, styleName, onProgress)

	result := "success"
	if err != nil {
		result = apierror.Classify(err).Kind.String()
	}
	metrics.New(metrics.Namespace).
		Dimension("Operation", "animate").
		Dimension("Result", result).
		Property("Model", c.VideoModel).
		Duration("VideoGenerationMs", time.Since(start)).
		Metric("VideoPollChecks", float64(checks), metrics.UnitCount).
		Count("GeminiApiCalls").
		Flush()

	if err != nil {
		log.Error().Err(err).Int("checks", checks).Dur("duration", time.Since(start)).Msg("Animation failed")
		return nil, err
	}
	log.Info().
		Str("style", styleName).
		Int("checks", checks).
		Int("video_bytes", len(video)).
		Dur("duration", time.Since(start)).
		Msg("Animation complete")
	return video, nil
}

func (c *Client) animate(ctx context.Context, image []byte, mimeType, styleName string, onProgress ProgressFunc) ([]byte, int, error) {
	onProgress(10, "Warming up the animation engine...")

	job, err := c.videos.Submit(ctx, c.VideoModel, assets.RenderAnimatePrompt(styleName), image, mimeType)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to start video generation: %w", err)
	}
	log.Debug().Str("operation", job.Name).Str("style", styleName).Msg("Video generation submitted")

	onProgress(20, "Casting the animation spell...")

	checks, messageIndex := 0, 0
	for !job.Done {
		if checks >= c.MaxPolls {
			return nil, checks, apierror.New(apierror.Timeout, errVideoTimeout)
		}
		if err := wait(ctx, c.PollInterval); err != nil {
			return nil, checks, err
		}
		checks++

		if checks%3 == 0 {
			messageIndex = (messageIndex + 1) % len(pollMessages)
		}
		onProgress(pollProgress(checks, c.MaxPolls), pollMessages[messageIndex])

		job, err = c.videos.Poll(ctx, job)
		if err != nil {
			return nil, checks, fmt.Errorf("failed to poll video generation: %w", err)
		}
		log.Debug().Int("check", checks).Bool("done", job.Done).Msg("Video generation polled")
	}

	onProgress(98, "Finalizing video...")

	if job.URI == "" {
		if job.Failure != "" {
			return nil, checks, fmt.Errorf("video generation failed: %s", job.Failure)
		}
		return nil, checks, apierror.New(apierror.MissingDownloadLink, errVideoNoLink)
	}

	video, err := c.download(ctx, job.URI)
	if err != nil {
		return nil, checks, err
	}
	onProgress(100, "Done!")
	return video, checks, nil
}

// pollProgress maps a check count onto 20..95.
func pollProgress(checks, maxChecks int) int {
	return min(95, 20+checks*75/maxChecks)
}

// download fetches the rendered video. The API key goes in the query
// string; the URI already carries its own parameters.
func (c *Client) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+"&key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download the generated video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf(errVideoDownload, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read video body: %w", err)
	}
	return data, nil
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewVideoBackend returns the Veo implementation of VideoBackend.
func NewVideoBackend(gc *genai.Client) VideoBackend {
	return &genaiVideos{models: gc.Models, operations: gc.Operations}
}

type genaiVideos struct {
	models     *genai.Models
	operations *genai.Operations
}

func (g *genaiVideos) Submit(ctx context.Context, model, prompt string, image []byte, mimeType string) (*VideoJob, error) {
	op, err := g.models.GenerateVideos(ctx, model, prompt, &genai.Image{
		ImageBytes: image,
		MIMEType:   mimeType,
	}, &genai.GenerateVideosConfig{
		NumberOfVideos: videoCount,
		Resolution:     videoResolution,
		AspectRatio:    videoAspectRatio,
	})
	if err != nil {
		return nil, err
	}
	return jobFromOperation(op), nil
}

func (g *genaiVideos) Poll(ctx context.Context, job *VideoJob) (*VideoJob, error) {
	op, err := g.operations.GetVideosOperation(ctx, job.op, nil)
	if err != nil {
		return nil, err
	}
	return jobFromOperation(op), nil
}

func jobFromOperation(op *genai.GenerateVideosOperation) *VideoJob {
	job := &VideoJob{Name: op.Name, Done: op.Done, op: op}
	if op.Error != nil {
		job.Failure = fmt.Sprint(op.Error["message"])
	}
	if r := op.Response; r != nil && len(r.GeneratedVideos) > 0 {
		if v := r.GeneratedVideos[0]; v != nil && v.Video != nil {
			job.URI = v.Video.URI
		}
	}
	return job
}
