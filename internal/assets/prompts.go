// Package assets provides the embedded prompt templates sent to the
// generation backend.
//
// Templates live under prompts/ and are parsed once at startup; a malformed
// template panics at init rather than at call time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// FaceSwapPrompt instructs the model to move the face of the second image
// onto the person in the first image. Part order matters.
//
//go:embed prompts/faceswap.txt
var FaceSwapPrompt string

// UpscalePrompt asks for a high-resolution rendition that keeps the style.
//
//go:embed prompts/upscale.txt
var UpscalePrompt string

//go:embed prompts/toonify.txt
var toonifyTemplate string

//go:embed prompts/scratch.txt
var scratchTemplate string

//go:embed prompts/animate.txt
var animateTemplate string

//go:embed prompts/caption.txt
var captionTemplate string

var funcs = template.FuncMap{
	"blend": func(styles []string) string { return strings.Join(styles, " × ") },
	"join":  strings.Join,
}

var (
	toonifyTmpl = template.Must(template.New("toonify").Funcs(funcs).Parse(toonifyTemplate))
	scratchTmpl = template.Must(template.New("scratch").Funcs(funcs).Parse(scratchTemplate))
	animateTmpl = template.Must(template.New("animate").Funcs(funcs).Parse(animateTemplate))
	captionTmpl = template.Must(template.New("caption").Funcs(funcs).Parse(captionTemplate))
)

// StylizeData holds the parameters injected into the toonify and scratch
// templates. Styles are display names, not keys.
type StylizeData struct {
	Prompt       string
	Styles       []string
	ShotType     string
	Intensity    int
	FaceFidelity int

	Emotion    string
	Pose       string
	Outfit     string
	Background string
	Lighting   string
}

// RenderToonifyPrompt renders the photo stylization instruction.
func RenderToonifyPrompt(d StylizeData) string {
	return render(toonifyTmpl, d)
}

// RenderScratchPrompt renders the text-only generation instruction.
func RenderScratchPrompt(d StylizeData) string {
	return render(scratchTmpl, d)
}

// RenderAnimatePrompt renders the video instruction for an animation style name.
func RenderAnimatePrompt(style string) string {
	return render(animateTmpl, struct{ Style string }{style})
}

// RenderCaptionPrompt renders the caption request.
func RenderCaptionPrompt(styles []string, emotion, outfit string) string {
	return render(captionTmpl, struct {
		Styles  []string
		Emotion string
		Outfit  string
	}{styles, emotion, outfit})
}

// render executes tmpl and drops whitespace-only lines so that unset
// optional modifiers leave no gaps.
func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution errors are not expected with these templates; whatever was
	// rendered is still usable.
	_ = tmpl.Execute(&buf, data)

	lines := strings.Split(buf.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
