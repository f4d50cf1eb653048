package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/store"
)

// fakeGen returns canned results. When gate is non-nil every call blocks
// until gate is closed or the context ends.
type fakeGen struct {
	mu      sync.Mutex
	gate    chan struct{}
	started chan struct{}
	err     error
	result  []byte
	caption string
	// captionGate, when set, holds Caption until it is closed.
	captionGate chan struct{}
	calls       []string
	lastOps     gemini.StylizeOptions
	swapIn      [2][]byte
}

func (f *fakeGen) call(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate, started, err := f.gate, f.started, f.err
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeGen) out(name string) ([]byte, error) {
	if f.result != nil {
		return f.result, nil
	}
	return []byte(name), nil
}

func (f *fakeGen) Stylize(ctx context.Context, _ []byte, _ string, opts gemini.StylizeOptions) ([]byte, error) {
	f.mu.Lock()
	f.lastOps = opts
	f.mu.Unlock()
	if err := f.call(ctx, "stylize"); err != nil {
		return nil, err
	}
	return f.out("stylized")
}

func (f *fakeGen) GenerateFromPrompt(ctx context.Context, _ string, _ gemini.StylizeOptions) ([]byte, error) {
	if err := f.call(ctx, "scratch"); err != nil {
		return nil, err
	}
	return f.out("scratch")
}

func (f *fakeGen) EditImage(ctx context.Context, image []byte, _, instruction string) ([]byte, error) {
	if err := f.call(ctx, "edit"); err != nil {
		return nil, err
	}
	return append(append([]byte{}, image...), []byte("+"+instruction)...), nil
}

func (f *fakeGen) FaceSwap(ctx context.Context, source []byte, _ string, target []byte, _ string) ([]byte, error) {
	f.mu.Lock()
	f.swapIn = [2][]byte{source, target}
	f.mu.Unlock()
	if err := f.call(ctx, "swap"); err != nil {
		return nil, err
	}
	return f.out("swapped")
}

func (f *fakeGen) Upscale(ctx context.Context, image []byte, _ string) ([]byte, error) {
	if err := f.call(ctx, "upscale"); err != nil {
		return nil, err
	}
	return append([]byte("hd:"), image...), nil
}

func (f *fakeGen) Caption(ctx context.Context, _ []string, _, _ string) (string, error) {
	f.mu.Lock()
	caption, gate := f.caption, f.captionGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if caption == "" {
		return "", errors.New("caption unavailable")
	}
	return caption, nil
}

func (f *fakeGen) Animate(ctx context.Context, _ []byte, _, _ string, onProgress gemini.ProgressFunc) ([]byte, error) {
	onProgress(10, "Warming up the animation engine...")
	if err := f.call(ctx, "animate"); err != nil {
		return nil, err
	}
	onProgress(100, "Done!")
	return []byte("video"), nil
}

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newStudio(t *testing.T, gen *fakeGen) *Studio {
	t.Helper()
	return New(gen, nil, Options{Pro: true})
}

func selected(t *testing.T, gen *fakeGen) *Studio {
	t.Helper()
	s := newStudio(t, gen)
	if err := s.SelectImage(photo(t, 2000, 1000)); err != nil {
		t.Fatalf("SelectImage: %v", err)
	}
	return s
}

func TestDefaults(t *testing.T) {
	v := newStudio(t, &fakeGen{}).View()
	if v.State != StateIdle || v.Mode != ModeToonify {
		t.Errorf("initial state %v mode %v", v.State, v.Mode)
	}
	if len(v.Styles) != 1 || v.Styles[0] != "cartoon" {
		t.Errorf("styles = %v", v.Styles)
	}
	if v.ShotType != ShotFullBody || v.Intensity != 50 || v.FaceFidelity != 50 {
		t.Errorf("defaults = %+v", v)
	}
}

func TestSelectImageResizes(t *testing.T) {
	s := selected(t, &fakeGen{})
	if s.View().State != StateImageSelected {
		t.Fatalf("state = %v", s.View().State)
	}
	orig := s.Original()
	if orig.MIMEType != imaging.MIMEJPEG {
		t.Errorf("MIME = %s", orig.MIMEType)
	}
	w, h, err := imaging.Dimensions(orig.Data)
	if err != nil || w != 1024 || h != 512 {
		t.Errorf("dimensions %dx%d err %v", w, h, err)
	}
}

func TestSelectImageFailure(t *testing.T) {
	s := newStudio(t, &fakeGen{})
	if err := s.SelectImage([]byte("not an image")); err == nil {
		t.Fatal("expected error")
	}
	v := s.View()
	if v.State != StateError || v.Error != "Could not process the image. Please try another one." {
		t.Errorf("state %v error %q", v.State, v.Error)
	}
}

func TestToonifySuccessAndCaption(t *testing.T) {
	gen := &fakeGen{caption: "Looking sharp!"}
	s := selected(t, gen)
	if err := s.ToggleStyle("shonen"); err != nil {
		t.Fatal(err)
	}

	if err := s.Toonify(context.Background()); err != nil {
		t.Fatalf("Toonify: %v", err)
	}
	s.WaitCaptions()

	v := s.View()
	if v.State != StateSuccess || v.HistoryLength != 1 || v.Pointer != 0 || v.MediaType != MediaImage {
		t.Errorf("view after toonify: %+v", v)
	}
	if v.Caption != "Looking sharp!" {
		t.Errorf("caption = %q", v.Caption)
	}
	if string(s.Current()) != "stylized" {
		t.Errorf("current = %q", s.Current())
	}
	if len(gen.lastOps.Styles) != 2 || gen.lastOps.ShotType != ShotFullBody {
		t.Errorf("options = %+v", gen.lastOps)
	}
}

func TestToonifyWithoutImage(t *testing.T) {
	s := newStudio(t, &fakeGen{})
	if err := s.Toonify(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v", err)
	}
	if s.View().State != StateIdle {
		t.Error("state must not change")
	}
}

func TestToonifyFailureSetsMessage(t *testing.T) {
	gen := &fakeGen{err: errors.New("Quota exceeded. Please retry in 12.5s.")}
	s := selected(t, gen)

	if err := s.Toonify(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	v := s.View()
	if v.State != StateError {
		t.Errorf("state = %v", v.State)
	}
	if v.Error != "The AI is temporarily busy. Please try again in about 12.5s." {
		t.Errorf("error = %q", v.Error)
	}
	if v.Busy {
		t.Error("job lock not released")
	}
}

func TestGenerateFromScratch(t *testing.T) {
	gen := &fakeGen{}
	s := selected(t, gen)

	if err := s.GenerateFromScratch(context.Background(), "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("blank prompt: %v", err)
	}
	if len(gen.calls) != 0 || s.View().State != StateImageSelected {
		t.Fatal("blank prompt must not start a job")
	}

	if err := s.GenerateFromScratch(context.Background(), "a knight made of cheese"); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if v.Caption != "a knight made of cheese" || v.HasOriginal || v.State != StateSuccess {
		t.Errorf("view = %+v", v)
	}
}

func TestFaceSwap(t *testing.T) {
	gen := &fakeGen{}
	s := newStudio(t, gen)

	if err := s.FaceSwap(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if err := s.SetFaceSwapImage(FaceSource, photo(t, 10, 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFaceSwapImage(FaceTarget, photo(t, 20, 20)); err != nil {
		t.Fatal(err)
	}
	if err := s.FaceSwap(context.Background()); err != nil {
		t.Fatal(err)
	}

	v := s.View()
	if v.MediaType != MediaFaceSwapResult || v.Caption != "The old switcheroo!" || v.HistoryLength != 1 {
		t.Errorf("view = %+v", v)
	}
	if w, _, _ := imaging.Dimensions(gen.swapIn[0]); w != 10 {
		t.Errorf("source passed in wrong position")
	}
}

func TestAnimateKeepsHistory(t *testing.T) {
	var mu sync.Mutex
	var progress []int
	gen := &fakeGen{}
	s := New(gen, nil, Options{Pro: true, OnChange: func(v View) {
		if v.Progress != nil {
			mu.Lock()
			progress = append(progress, *v.Progress)
			mu.Unlock()
		}
	}})

	if err := s.Animate(context.Background(), "subtleAnimation"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("animate without result: %v", err)
	}
	if err := s.SelectImage(photo(t, 8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.WaitCaptions()

	if err := s.Animate(context.Background(), "subtleAnimation"); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if v.MediaType != MediaVideo || !v.HasVideo || v.HistoryLength != 1 {
		t.Errorf("view = %+v", v)
	}
	if string(s.Video()) != "video" {
		t.Errorf("video = %q", s.Video())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(progress) < 3 || progress[0] != 0 || progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v", progress)
	}
}

func TestProGating(t *testing.T) {
	gen := &fakeGen{}
	s := New(gen, nil, Options{Pro: false})
	if err := s.SelectImage(photo(t, 8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Download(context.Background(), true); !errors.Is(err, ErrProRequired) {
		t.Errorf("HD download: %v", err)
	}
	if err := s.Animate(context.Background(), "subtleAnimation"); !errors.Is(err, ErrProRequired) {
		t.Errorf("animate: %v", err)
	}
	if err := s.ToggleStyle("subtleAnimation"); !errors.Is(err, ErrProRequired) {
		t.Errorf("pro style: %v", err)
	}
}

func TestDownload(t *testing.T) {
	gen := &fakeGen{}
	s := selected(t, gen)
	if _, err := s.Download(context.Background(), false); !errors.Is(err, ErrNoResult) {
		t.Fatalf("download without result: %v", err)
	}
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}

	d, err := s.Download(context.Background(), false)
	if err != nil || d.Name != "toon-nation.png" || string(d.Data) != "stylized" {
		t.Fatalf("standard download %+v %v", d, err)
	}

	d, err = s.Download(context.Background(), true)
	if err != nil || d.Name != "toon-nation-hd.png" || string(d.Data) != "hd:stylized" {
		t.Fatalf("HD download %+v %v", d, err)
	}
	if s.View().State != StateSuccess {
		t.Errorf("state after HD download = %v", s.View().State)
	}

	gen.err = errors.New("upstream exploded")
	if _, err := s.Download(context.Background(), true); err == nil {
		t.Fatal("expected upscale error")
	}
	if s.View().State != StateError {
		t.Errorf("state after failed upscale = %v", s.View().State)
	}
}

func TestBusyLockRejectsSecondJob(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := selected(t, gen)

	done := make(chan error, 1)
	go func() { done <- s.Toonify(context.Background()) }()
	<-gen.started

	if v := s.View(); v.State != StateLoading || v.LoadingMessage != "Toonifying your image..." || !v.Busy {
		t.Errorf("view while loading = %+v", v)
	}
	err := s.GenerateFromScratch(context.Background(), "another")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second job: %v", err)
	}
	if apierror.Message(err) != "Another creation is still in progress. Please wait for it to finish." {
		t.Errorf("busy message = %q", apierror.Message(err))
	}
	if s.Undo() {
		t.Error("undo while busy must be ignored")
	}

	close(gen.gate)
	if err := <-done; err != nil {
		t.Fatalf("first job: %v", err)
	}
	if s.View().Busy {
		t.Error("lock not released")
	}
}

func TestResetDiscardsOutstandingJob(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := selected(t, gen)

	done := make(chan error, 1)
	go func() { done <- s.Toonify(context.Background()) }()
	<-gen.started

	s.Reset()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("cancelled job returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job not cancelled by Reset")
	}

	v := s.View()
	if v.State != StateIdle || v.HistoryLength != 0 || v.HasOriginal || v.Error != "" || v.Busy {
		t.Errorf("view after reset = %+v", v)
	}

	// A new job may start right away.
	gen.mu.Lock()
	gen.gate, gen.started = nil, nil
	gen.mu.Unlock()
	if err := s.GenerateFromScratch(context.Background(), "fresh start"); err != nil {
		t.Fatalf("job after reset: %v", err)
	}
}

func TestResetDiscardsLateResult(t *testing.T) {
	// The generator ignores cancellation and returns after Reset.
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	gen := &stubbornGen{fakeGen: &fakeGen{}, release: release, started: started}
	s := New(gen, nil, Options{Pro: true})
	if err := s.SelectImage(photo(t, 8, 8)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Toonify(context.Background()) }()
	<-started
	s.Reset()
	close(release)

	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Errorf("late job returned %v", err)
	}
	if v := s.View(); v.HistoryLength != 0 || v.State != StateIdle {
		t.Errorf("late result leaked into view: %+v", v)
	}
}

type stubbornGen struct {
	*fakeGen
	release chan struct{}
	started chan struct{}
}

func (g *stubbornGen) Stylize(context.Context, []byte, string, gemini.StylizeOptions) ([]byte, error) {
	g.started <- struct{}{}
	<-g.release
	return []byte("late"), nil
}

func TestSaveAndReEdit(t *testing.T) {
	st := store.NewFileStore(t.TempDir())
	if err := st.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	gen := &fakeGen{caption: "Saved!"}
	s := New(gen, st, Options{Pro: true})

	if _, err := s.SaveCreation(context.Background()); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("save with nothing: %v", err)
	}
	if err := s.SelectImage(photo(t, 8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.WaitCaptions()

	id, err := s.SaveCreation(context.Background())
	if err != nil {
		t.Fatalf("SaveCreation: %v", err)
	}
	list, err := s.ListCreations(context.Background())
	if err != nil || len(list) != 1 || list[0].ID != id || list[0].Caption != "Saved!" {
		t.Fatalf("list = %+v err %v", list, err)
	}

	s.Reset()
	if err := s.ReEdit(list[0]); err != nil {
		t.Fatalf("ReEdit: %v", err)
	}
	v := s.View()
	if v.State != StateSuccess || v.HistoryLength != 1 || v.Pointer != 0 || v.Caption != "Saved!" || !v.HasOriginal {
		t.Errorf("view after re-edit = %+v", v)
	}
	if string(s.Current()) != "stylized" {
		t.Errorf("current = %q", s.Current())
	}

	if err := s.DeleteCreation(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.ListCreations(context.Background()); len(list) != 0 {
		t.Errorf("creation not deleted")
	}
}

func TestLateCaptionIgnoredAfterReEdit(t *testing.T) {
	gen := &fakeGen{caption: "stale caption", captionGate: make(chan struct{})}
	s := selected(t, gen)
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}

	saved := store.Creation{
		ID:                    7,
		OriginalImageBase64:   "b3JpZ2luYWw=",
		OriginalImageMIMEType: imaging.MIMEJPEG,
		ToonifiedImageBase64:  "cmVzdWx0",
		Caption:               "saved caption",
	}
	if err := s.ReEdit(saved); err != nil {
		t.Fatal(err)
	}
	close(gen.captionGate)
	s.WaitCaptions()

	if v := s.View(); v.Caption != "saved caption" {
		t.Errorf("caption = %q, want the reopened creation's", v.Caption)
	}
}

func TestLateCaptionIgnoredAfterScratch(t *testing.T) {
	gate := make(chan struct{})
	gen := &fakeGen{caption: "first caption", captionGate: gate}
	s := selected(t, gen)
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.GenerateFromScratch(context.Background(), "a dragon"); err != nil {
		t.Fatal(err)
	}
	close(gate)
	s.WaitCaptions()

	if v := s.View(); v.Caption != "a dragon" {
		t.Errorf("caption = %q", v.Caption)
	}
}

func TestToonifyEndsEditSession(t *testing.T) {
	gen := &fakeGen{}
	s := selected(t, gen)
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.StartEditing(); err != nil {
		t.Fatal(err)
	}

	gen.result = []byte("second")
	if err := s.Toonify(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v := s.View(); v.Editing || v.HistoryLength != 1 {
		t.Errorf("view after toonify = %+v", v)
	}
	if err := s.CancelEditing(); err != nil {
		t.Fatal(err)
	}
	if string(s.Current()) != "second" {
		t.Errorf("current after cancel = %q, want the new result", s.Current())
	}
}

func TestSetFaceSwapImageWhileBusy(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := selected(t, gen)

	done := make(chan error, 1)
	go func() { done <- s.Toonify(context.Background()) }()
	<-gen.started

	if err := s.SetFaceSwapImage(FaceSource, []byte("not an image")); !errors.Is(err, ErrBusy) {
		t.Errorf("upload while busy: %v", err)
	}
	if v := s.View(); v.State != StateLoading || v.Error != "" {
		t.Errorf("view while busy = %+v", v)
	}

	close(gen.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestStateNames(t *testing.T) {
	if StateImageSelected.String() != "imageSelected" || MediaFaceSwapResult.String() != "faceSwapResult" {
		t.Error("unexpected names")
	}
	m, err := ParseMode("fromScratch")
	if err != nil || m != ModeFromScratch {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
