// Package styles holds the fixed catalog of art styles and the bounded
// style selection a user builds from it.
package styles

const previewBase = "https://storage.googleapis.com/maker-suite-project-files-prod/ai-studio-colab-notebooks/b5608b4e-e59e-49b3-b18c-ca2b3236398d/assets/toon-me/"

// DefaultKey is selected when a session starts.
const DefaultKey = "cartoon"

// Style is one entry of the catalog.
type Style struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preview     string `json:"preview"`
	Pro         bool   `json:"isPro,omitempty"`
}

// Category groups styles for display.
type Category struct {
	Name   string  `json:"name"`
	Styles []Style `json:"styles"`
}

func previewURL(name string) string {
	return previewBase + name + ".png"
}

var categories = []Category{
	{
		Name: "Animation & Cartoon",
		Styles: []Style{
			{Key: "cartoon", Name: "Vibrant Cartoon", Description: "Bold outlines and bright, flat colors for a modern animated look.", Preview: previewURL("Vibrant_Cartoon")},
			{Key: "shonen", Name: "Shōnen Anime", Description: "Clean cel-shading and motion-line action, inspired by series like Dragon Ball & Naruto.", Preview: previewURL("Dragon_Ball_Z")},
			{Key: "seinen", Name: "Seinen Anime", Description: "Gritty ink, realistic anatomy, and heavy contrast, inspired by series like Attack on Titan.", Preview: previewURL("Pencil_Sketch")},
			{Key: "shojo", Name: "Shōjo Anime", Description: "Softer palette and delicate lighting for romance, inspired by series like Sailor Moon.", Preview: previewURL("Watercolor")},
			{Key: "anime3d", Name: "Modern 3D Anime", Description: "Crisp toon-shader depth and realistic materials for a CGI hybrid look.", Preview: previewURL("3D_Render")},
			{Key: "vintageCartoon", Name: "Vintage Cartoon", Description: "1930s style with rubber hose limbs and pie eyes in black & white.", Preview: previewURL("Vintage_Cartoon")},
			{Key: "render3d", Name: "3D Render", Description: "A polished, cinematic look with soft lighting and detailed textures.", Preview: previewURL("3D_Render")},
			{Key: "pixarRender", Name: "Pixar-style 3D Render", Description: "Iconic, family-friendly style with expressive, stylized features.", Preview: previewURL("Pixar-style_3D_Render")},
			{Key: "claymation", Name: "Claymation", Description: "Hand-crafted, stop-motion look with visible fingerprints.", Preview: previewURL("Claymation")},
			{Key: "chibi", Name: "Chibi", Description: "Cute, super-deformed style with a large head and small body.", Preview: previewURL("Chibi")},
		},
	},
	{
		Name: "Artistic & Abstract",
		Styles: []Style{
			{Key: "watercolor", Name: "Watercolor", Description: "Soft, blended colors with a gentle, hand-painted texture.", Preview: previewURL("Watercolor")},
			{Key: "bronzeSculpture", Name: "Bronze Sculpture", Description: "A powerful, classic look with a metallic sheen.", Preview: previewURL("Bronze_Sculpture")},
			{Key: "popArt", Name: "Pop Art", Description: "Bold, graphic style with halftone dots and vibrant colors.", Preview: previewURL("Pop_Art")},
			{Key: "stickerArt", Name: "Sticker Art", Description: "Glossy, die-cut sticker effect with a thick white border.", Preview: previewURL("Sticker_Art")},
			{Key: "graffitiArt", Name: "Graffiti Art", Description: "Bold, spray-painted look with drips and vibrant colors.", Preview: previewURL("Graffiti_Art")},
			{Key: "ukiyoE", Name: "Ukiyo-e", Description: "Japanese woodblock print style with flowing lines.", Preview: previewURL("Ukiyo-e")},
			{Key: "artDeco", Name: "Art Deco", Description: "Elegant, geometric style from the 1920s with bold lines.", Preview: previewURL("Art_Deco")},
			{Key: "paperCutout", Name: "Paper Cutout", Description: "A charming, layered papercraft look with visible depth.", Preview: previewURL("Paper_Cutout")},
			{Key: "hologram", Name: "Hologram", Description: "A glowing, semi-transparent futuristic hologram effect.", Preview: previewURL("Hologram")},
			{Key: "tribalArt", Name: "Tribal Art", Description: "Bold, symbolic patterns and earthy tones inspired by indigenous art.", Preview: previewURL("Tribal_Art")},
		},
	},
	{
		Name: "Gaming & Digital Art",
		Styles: []Style{
			{Key: "pixelArt", Name: "Pixel Art", Description: "Retro 8-bit or 16-bit video game aesthetic.", Preview: previewURL("Pixel_Art")},
			{Key: "lowPoly", Name: "Low Poly", Description: "A stylized, faceted look from early 3D video games.", Preview: previewURL("Low_Poly")},
			{Key: "glitchArt", Name: "Glitch Art", Description: "A distorted, digital error effect for a futuristic vibe.", Preview: previewURL("Glitch_Art")},
		},
	},
	{
		Name: "Pop Culture & Comics (Pro)",
		Styles: []Style{
			{Key: "marvel", Name: "Marvel Comic", Description: "Dynamic \"Kirby\" energy with high-contrast inks.", Preview: previewURL("Marvel_Comic"), Pro: true},
			{Key: "dc", Name: "DC Comic", Description: "A modern, gritty comic style with cinematic lighting.", Preview: previewURL("DC_Comic"), Pro: true},
			{Key: "simpsons", Name: "The Simpsons", Description: "The iconic Springfield look with an overbite.", Preview: previewURL("The_Simpsons"), Pro: true},
			{Key: "ghibli", Name: "Studio Ghibli", Description: "The enchanting, hand-painted anime style.", Preview: previewURL("Studio_Ghibli"), Pro: true},
			{Key: "southPark", Name: "South Park", Description: "The classic, construction-paper cutout look.", Preview: previewURL("South_Park"), Pro: true},
			{Key: "burton", Name: "Tim Burton Style", Description: "A spooky, gothic look with exaggerated features.", Preview: previewURL("Tim_Burton_Style"), Pro: true},
			{Key: "futurama", Name: "Futurama Style", Description: "Retro-futuristic \"Bender\" cartoon style.", Preview: previewURL("Futurama_Style"), Pro: true},
		},
	},
	{
		Name: "Animation Styles (Pro)",
		Styles: []Style{
			{Key: "subtleAnimation", Name: "Subtle Animation", Description: "Gentle, looping motions like breathing or hair blowing.", Preview: previewURL("Subtle_Animation"), Pro: true},
			{Key: "characterLoop", Name: "Character Loop", Description: "A short, repeating animation of a simple action.", Preview: previewURL("Character_Loop"), Pro: true},
		},
	},
}

var byKey = func() map[string]Style {
	m := make(map[string]Style)
	for _, c := range categories {
		for _, s := range c.Styles {
			m[s.Key] = s
		}
	}
	return m
}()

// animationCategory names the category whose styles drive video generation.
const animationCategory = "Animation Styles (Pro)"

// Categories returns the catalog grouped for display.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{Name: c.Name, Styles: append([]Style(nil), c.Styles...)}
	}
	return out
}

// All returns every style in catalog order.
func All() []Style {
	var out []Style
	for _, c := range categories {
		out = append(out, c.Styles...)
	}
	return out
}

// Lookup finds a style by key.
func Lookup(key string) (Style, bool) {
	s, ok := byKey[key]
	return s, ok
}

// Names maps keys to display names. Unknown keys are passed through.
func Names(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if s, ok := byKey[k]; ok {
			out[i] = s.Name
		} else {
			out[i] = k
		}
	}
	return out
}

// AnimationStyles returns the styles usable with animate.
func AnimationStyles() []Style {
	for _, c := range categories {
		if c.Name == animationCategory {
			return append([]Style(nil), c.Styles...)
		}
	}
	return nil
}

// IsAnimation reports whether key names an animation style.
func IsAnimation(key string) bool {
	for _, s := range AnimationStyles() {
		if s.Key == key {
			return true
		}
	}
	return false
}

// PreviewURLs returns the distinct preview image URLs in catalog order.
func PreviewURLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range All() {
		if !seen[s.Preview] {
			seen[s.Preview] = true
			out = append(out, s.Preview)
		}
	}
	return out
}
