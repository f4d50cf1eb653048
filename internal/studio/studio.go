// Package studio is the orchestration state machine behind both front ends.
//
// A Studio owns the session: the uploaded photo, the result history, the
// style parameters and the current phase. Generation calls run outside the
// studio's lock; a single-slot job lock rejects a second generation while
// one is outstanding, and Reset cancels the outstanding job and discards
// whatever it eventually returns.
package studio

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/styles"
)

// Loading messages.
const (
	msgToonify  = "Toonifying your image..."
	msgScratch  = "Bringing your idea to life..."
	msgFaceSwap = "Performing AI face swap..."
	msgAnimate  = "Preparing animation..."
	msgUpscale  = "Upscaling to High-Definition..."
	msgAIEdit   = "Applying your magic touch..."
	msgFilter   = "Applying filter..."
	msgAdjust   = "Applying adjustments..."
	msgCrop     = "Cropping image..."

	msgUploadFailed   = "Could not process the image. Please try another one."
	msgFaceSwapUpload = "Could not process image. Please try another."

	faceSwapCaption = "The old switcheroo!"
)

// Shot types.
const (
	ShotFullBody = "full-body"
	ShotHeadShot = "head-shot"
)

// Download file names.
const (
	DownloadName   = "toon-nation.png"
	DownloadNameHD = "toon-nation-hd.png"
)

// resultMIME is the MIME type assumed for every generated image.
const resultMIME = imaging.MIMEPNG

// captionTimeout bounds the best-effort caption request.
const captionTimeout = 30 * time.Second

var (
	// ErrBusy is returned when a generation is already running.
	ErrBusy = apierror.New(apierror.Busy, "a generation is already in progress")
	// ErrCanceled is returned to a caller whose result was discarded by Reset.
	ErrCanceled = apierror.New(apierror.Canceled, "generation discarded by reset")

	ErrNoImage       = fmt.Errorf("no image selected")
	ErrNoResult      = fmt.Errorf("no result to work on")
	ErrEmptyPrompt   = fmt.Errorf("prompt is empty")
	ErrProRequired   = styles.ErrProRequired
	ErrNothingToSave = fmt.Errorf("nothing to save: an original image and a result are required")
)

// Generator is the generation backend. *gemini.Client implements it.
type Generator interface {
	Stylize(ctx context.Context, image []byte, mimeType string, opts gemini.StylizeOptions) ([]byte, error)
	GenerateFromPrompt(ctx context.Context, prompt string, opts gemini.StylizeOptions) ([]byte, error)
	EditImage(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, error)
	FaceSwap(ctx context.Context, source []byte, sourceMIME string, target []byte, targetMIME string) ([]byte, error)
	Upscale(ctx context.Context, image []byte, mimeType string) ([]byte, error)
	Caption(ctx context.Context, styleNames []string, emotion, outfit string) (string, error)
	Animate(ctx context.Context, image []byte, mimeType, styleKey string, onProgress gemini.ProgressFunc) ([]byte, error)
}

var _ Generator = (*gemini.Client)(nil)

// Image is an uploaded or restored photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// DisplayURI returns the image as a data: URI.
func (i Image) DisplayURI() string {
	return imaging.DataURI(i.MIMEType, i.Data)
}

// Base64 returns the base64 payload without the data: prefix.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Options configure a Studio.
type Options struct {
	// MaxDimension bounds uploads; zero means 1024.
	MaxDimension int
	// Pro unlocks pro styles, animation and HD downloads.
	Pro bool
	// OnChange is called with a fresh View after every transition. It runs
	// on the goroutine that made the change and must not call back into
	// the Studio synchronously.
	OnChange func(View)
}

// Studio is safe for concurrent use.
type Studio struct {
	gen       Generator
	store     store.CreationStore
	opts      Options
	sessionID string

	mu             sync.Mutex
	state          State
	mode           Mode
	media          MediaType
	original       *Image
	history        History
	editSnapshot   History
	editing        bool
	video          []byte
	caption        string
	loadingMessage string
	progress       *int
	errMsg         string

	selection    styles.Selection
	shotType     string
	intensity    int
	faceFidelity int
	advanced     gemini.AdvancedOptions

	faceSource *Image
	faceTarget *Image

	// Job lock. epoch increases on every Reset; a job whose epoch no longer
	// matches has been discarded.
	busy   bool
	cancel context.CancelFunc
	epoch  uint64

	// resultSeq increases whenever the history is replaced wholesale. A
	// caption is only applied to the result it was requested for.
	resultSeq uint64

	captions sync.WaitGroup
}

// New creates a studio in the Idle state with default parameters. st may be
// nil when the gallery is not used; its lifecycle belongs to the caller.
func New(gen Generator, st store.CreationStore, opts Options) *Studio {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 1024
	}
	s := &Studio{
		gen:          gen,
		store:        st,
		opts:         opts,
		sessionID:    uuid.NewString(),
		selection:    styles.NewSelection(),
		shotType:     ShotFullBody,
		intensity:    50,
		faceFidelity: 50,
	}
	log.Debug().Str("session_id", s.sessionID).Bool("pro", opts.Pro).Msg("Studio session started")
	return s
}

// SessionID identifies this studio in logs.
func (s *Studio) SessionID() string {
	return s.sessionID
}

// job is one outstanding generation.
type job struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	epoch  uint64
	start  time.Time
}

// beginLocked takes the job lock and enters Loading. progress < 0 means
// the operation reports no progress.
func (s *Studio) beginLocked(ctx context.Context, message string, progress int) (*job, error) {
	if s.busy {
		return nil, ErrBusy
	}
	jctx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	s.state = StateLoading
	s.loadingMessage = message
	s.errMsg = ""
	s.progress = nil
	if progress >= 0 {
		s.progress = &progress
	}

	j := &job{id: uuid.NewString(), ctx: jctx, cancel: cancel, epoch: s.epoch, start: time.Now()}
	log.Debug().
		Str("session_id", s.sessionID).
		Str("job_id", j.id).
		Str("message", message).
		Msg("Job started")
	return j, nil
}

// endLocked releases the job lock. It returns false if Reset discarded
// the job in the meantime; the caller must then leave state untouched.
func (s *Studio) endLocked(j *job) bool {
	j.cancel()
	if j.epoch != s.epoch {
		log.Debug().Str("job_id", j.id).Msg("Discarding result of a reset job")
		return false
	}
	s.busy = false
	s.cancel = nil
	s.progress = nil
	log.Debug().Str("job_id", j.id).Dur("duration", time.Since(j.start)).Msg("Job finished")
	return true
}

// failLocked records err for display and enters the Error state, or stays
// in Success when keepSuccess is set (failures inside the editor).
func (s *Studio) failLocked(err error, keepSuccess bool) {
	s.errMsg = apierror.Message(err)
	if keepSuccess {
		s.state = StateSuccess
	} else {
		s.state = StateError
	}
	log.Warn().Err(err).Str("session_id", s.sessionID).Str("state", s.state.String()).Msg("Operation failed")
}

// notify publishes the current view. Must be called without the lock.
func (s *Studio) notify() {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(s.View())
}

func (s *Studio) stylizeOptionsLocked() gemini.StylizeOptions {
	return gemini.StylizeOptions{
		Styles:       s.selection.Keys(),
		ShotType:     s.shotType,
		Intensity:    s.intensity,
		FaceFidelity: s.faceFidelity,
		Advanced:     s.advanced,
	}
}

// replaceResultLocked makes out the only history entry and ends any edit
// session.
func (s *Studio) replaceResultLocked(out []byte) {
	s.history.Reset(out)
	s.leaveEditingLocked()
	s.resultSeq++
}

func (s *Studio) leaveEditingLocked() {
	s.editing = false
	s.editSnapshot = History{}
}

// SelectImage resizes raw image bytes and makes them the original photo.
// Any previous result is dropped.
func (s *Studio) SelectImage(data []byte) error {
	resized, err := imaging.Resize(data, s.opts.MaxDimension)

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if err != nil {
		s.errMsg = msgUploadFailed
		s.state = StateError
		s.mu.Unlock()
		log.Warn().Err(err).Msg("Failed to process uploaded image")
		s.notify()
		return fmt.Errorf("failed to process image: %w", err)
	}
	s.original = &Image{Data: resized, MIMEType: imaging.MIMEJPEG}
	s.history.Clear()
	s.leaveEditingLocked()
	s.resultSeq++
	s.video = nil
	s.caption = ""
	s.errMsg = ""
	s.media = MediaImage
	s.state = StateImageSelected
	s.mu.Unlock()

	log.Info().Str("session_id", s.sessionID).Int("bytes", len(resized)).Msg("Image selected")
	s.notify()
	return nil
}

// SetMode switches the creation flow.
func (s *Studio) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	s.notify()
}

// ToggleStyle adds or removes a style from the selection.
func (s *Studio) ToggleStyle(key string) error {
	s.mu.Lock()
	err := s.selection.Toggle(key, s.opts.Pro)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// SetShotType selects full-body or head-shot framing.
func (s *Studio) SetShotType(shot string) error {
	if shot != ShotFullBody && shot != ShotHeadShot {
		return fmt.Errorf("unknown shot type %q", shot)
	}
	s.mu.Lock()
	s.shotType = shot
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetIntensity sets the stylization intensity percentage.
func (s *Studio) SetIntensity(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("intensity %d out of range 0-100", v)
	}
	s.mu.Lock()
	s.intensity = v
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetFaceFidelity sets how closely the result should keep the face.
func (s *Studio) SetFaceFidelity(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("face fidelity %d out of range 0-100", v)
	}
	s.mu.Lock()
	s.faceFidelity = v
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetAdvancedOptions replaces the free-text modifiers.
func (s *Studio) SetAdvancedOptions(o gemini.AdvancedOptions) {
	s.mu.Lock()
	s.advanced = o
	s.mu.Unlock()
	s.notify()
}

// Toonify stylizes the original photo. The result becomes a fresh
// single-entry history and a caption is requested in the background.
func (s *Studio) Toonify(ctx context.Context) error {
	s.mu.Lock()
	if s.original == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	img := *s.original
	opts := s.stylizeOptionsLocked()
	j, err := s.beginLocked(ctx, msgToonify, -1)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.leaveEditingLocked()
	s.video = nil
	s.media = MediaImage
	s.mu.Unlock()
	s.notify()

	out, err := s.gen.Stylize(j.ctx, img.Data, img.MIMEType, opts)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.failLocked(err, false)
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.replaceResultLocked(out)
	s.state = StateSuccess
	seq := s.resultSeq
	s.mu.Unlock()
	s.notify()

	s.requestCaption(ctx, seq, opts)
	return nil
}

// requestCaption fetches a caption without blocking. Failures are logged
// and ignored; a caption arriving after the result was replaced is dropped.
func (s *Studio) requestCaption(ctx context.Context, seq uint64, opts gemini.StylizeOptions) {
	s.captions.Add(1)
	go func() {
		defer s.captions.Done()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captionTimeout)
		defer cancel()

		caption, err := s.gen.Caption(cctx, styles.Names(opts.Styles), opts.Advanced.Emotion, opts.Advanced.Outfit)
		if err != nil {
			log.Warn().Err(err).Msg("Caption request failed")
			return
		}
		s.mu.Lock()
		if s.resultSeq != seq {
			s.mu.Unlock()
			log.Debug().Str("session_id", s.sessionID).Msg("Dropping caption for a replaced result")
			return
		}
		s.caption = caption
		s.mu.Unlock()
		s.notify()
	}()
}

// GenerateFromScratch creates an image from a text prompt. A blank prompt
// is rejected without any state change. The original photo is cleared.
func (s *Studio) GenerateFromScratch(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	opts := s.stylizeOptionsLocked()
	j, err := s.beginLocked(ctx, msgScratch, -1)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.leaveEditingLocked()
	s.video = nil
	s.media = MediaImage
	s.original = nil
	s.mu.Unlock()
	s.notify()

	out, err := s.gen.GenerateFromPrompt(j.ctx, prompt, opts)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.failLocked(err, false)
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.replaceResultLocked(out)
	s.caption = prompt
	s.state = StateSuccess
	s.mu.Unlock()
	s.notify()
	return nil
}

// FaceRole names one of the two face swap inputs.
type FaceRole int

const (
	FaceSource FaceRole = iota
	FaceTarget
)

// SetFaceSwapImage resizes data and stores it as the source face or the
// target image.
func (s *Studio) SetFaceSwapImage(role FaceRole, data []byte) error {
	resized, err := imaging.Resize(data, s.opts.MaxDimension)

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if err != nil {
		s.errMsg = msgFaceSwapUpload
		s.state = StateError
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("failed to process image: %w", err)
	}
	img := &Image{Data: resized, MIMEType: imaging.MIMEJPEG}
	switch role {
	case FaceSource:
		s.faceSource = img
	case FaceTarget:
		s.faceTarget = img
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown face swap role %d", role)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// FaceSwap moves the source face onto the target image.
func (s *Studio) FaceSwap(ctx context.Context) error {
	s.mu.Lock()
	if s.faceSource == nil || s.faceTarget == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: face swap needs a source face and a target image", ErrNoImage)
	}
	source, target := *s.faceSource, *s.faceTarget
	j, err := s.beginLocked(ctx, msgFaceSwap, -1)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.leaveEditingLocked()
	s.video = nil
	s.media = MediaFaceSwapResult
	s.mu.Unlock()
	s.notify()

	out, err := s.gen.FaceSwap(j.ctx, source.Data, source.MIMEType, target.Data, target.MIMEType)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.failLocked(err, false)
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.replaceResultLocked(out)
	s.caption = faceSwapCaption
	s.state = StateSuccess
	s.mu.Unlock()
	s.notify()
	return nil
}

// Animate renders the current result as a short video. Progress updates
// are published through OnChange. The history is left unchanged.
func (s *Studio) Animate(ctx context.Context, styleKey string) error {
	s.mu.Lock()
	if !s.opts.Pro {
		s.mu.Unlock()
		return ErrProRequired
	}
	current := s.history.Current()
	if current == nil {
		s.mu.Unlock()
		return ErrNoResult
	}
	j, err := s.beginLocked(ctx, msgAnimate, 0)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.media = MediaVideo
	s.video = nil
	s.mu.Unlock()
	s.notify()

	onProgress := func(progress int, message string) {
		s.mu.Lock()
		if s.epoch != j.epoch || s.state != StateLoading {
			s.mu.Unlock()
			return
		}
		s.progress = &progress
		s.loadingMessage = message
		s.mu.Unlock()
		s.notify()
	}
	video, err := s.gen.Animate(j.ctx, current, resultMIME, styleKey, onProgress)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.failLocked(err, false)
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.video = video
	s.state = StateSuccess
	s.mu.Unlock()
	s.notify()
	return nil
}

// Download is a file ready to be written by the front end.
type Download struct {
	Name string
	Data []byte
}

// Download returns the current result. With hd set it is upscaled first,
// which requires pro and goes through Loading.
func (s *Studio) Download(ctx context.Context, hd bool) (*Download, error) {
	s.mu.Lock()
	current := s.history.Current()
	if current == nil {
		s.mu.Unlock()
		return nil, ErrNoResult
	}
	if !hd {
		s.mu.Unlock()
		return &Download{Name: DownloadName, Data: current}, nil
	}
	if !s.opts.Pro {
		s.mu.Unlock()
		return nil, ErrProRequired
	}
	j, err := s.beginLocked(ctx, msgUpscale, -1)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	s.notify()

	out, err := s.gen.Upscale(j.ctx, current, resultMIME)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return nil, ErrCanceled
	}
	if err != nil {
		s.failLocked(err, false)
		s.mu.Unlock()
		s.notify()
		return nil, err
	}
	s.state = StateSuccess
	s.mu.Unlock()
	s.notify()
	return &Download{Name: DownloadNameHD, Data: out}, nil
}

// Reset returns to Idle, cancelling any outstanding job. A result that
// arrives for the cancelled job is discarded.
func (s *Studio) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.busy = false

	s.state = StateIdle
	s.mode = ModeToonify
	s.media = MediaImage
	s.original = nil
	s.history.Clear()
	s.leaveEditingLocked()
	s.resultSeq++
	s.video = nil
	s.caption = ""
	s.errMsg = ""
	s.progress = nil
	s.loadingMessage = ""
	s.faceSource, s.faceTarget = nil, nil
	s.mu.Unlock()

	log.Debug().Str("session_id", s.sessionID).Msg("Studio reset")
	s.notify()
}

// WaitCaptions blocks until background caption requests have finished.
func (s *Studio) WaitCaptions() {
	s.captions.Wait()
}
