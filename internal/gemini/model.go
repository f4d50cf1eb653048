package gemini

// Model IDs used by the studio.
//
// | Model                         | Use                                   |
// |-------------------------------|---------------------------------------|
// | gemini-2.5-flash-image        | stylize, scratch, edit, swap, upscale |
// | gemini-2.5-flash              | captions, API key validation          |
// | veo-3.1-fast-generate-preview | animation                             |
const (
	// ModelImage produces image output (response modality IMAGE).
	ModelImage = "gemini-2.5-flash-image"

	// ModelText is the text model used for captions.
	ModelText = "gemini-2.5-flash"

	// ModelVideo is the Veo model used by Animate.
	ModelVideo = "veo-3.1-fast-generate-preview"
)

// Video generation parameters.
const (
	videoResolution  = "720p"
	videoAspectRatio = "1:1"
	videoCount       = 1
)
