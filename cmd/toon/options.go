package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/studio"
)

// generationFlags are shared by toonify, scratch and swap.
type generationFlags struct {
	styles       []string
	shot         string
	intensity    int
	faceFidelity int
	advanced     gemini.AdvancedOptions
	hd           bool
	save         bool
}

func (g *generationFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&g.styles, "style", "s", nil, "Style key to apply; repeat to blend two (see 'toon styles')")
	f.StringVar(&g.shot, "shot", studio.ShotFullBody, "Shot type: full-body or head-shot")
	f.IntVar(&g.intensity, "intensity", 50, "Stylization intensity, 0-100")
	f.IntVar(&g.faceFidelity, "face-fidelity", 50, "How closely to keep the face, 0-100")
	f.StringVar(&g.advanced.Emotion, "emotion", "", "Emotion to express")
	f.StringVar(&g.advanced.Pose, "pose", "", "Pose to adopt")
	f.StringVar(&g.advanced.Outfit, "outfit", "", "Outfit to wear")
	f.StringVar(&g.advanced.Background, "background", "", "Background to place the subject in")
	f.StringVar(&g.advanced.Lighting, "lighting", "", "Lighting to use")
	f.BoolVar(&g.hd, "hd", false, "Upscale the result before writing it (pro)")
	f.BoolVar(&g.save, "save", false, "Save the result to the gallery")
}

// apply copies the flags onto s. Named styles replace the session default.
func (g *generationFlags) apply(s *studio.Studio) error {
	for _, key := range g.styles {
		if err := s.ToggleStyle(key); err != nil {
			return err
		}
	}
	if len(g.styles) > 0 {
		for _, key := range s.View().Styles {
			if !slices.Contains(g.styles, key) {
				if err := s.ToggleStyle(key); err != nil {
					return err
				}
			}
		}
	}
	if err := s.SetShotType(g.shot); err != nil {
		return err
	}
	if err := s.SetIntensity(g.intensity); err != nil {
		return err
	}
	if err := s.SetFaceFidelity(g.faceFidelity); err != nil {
		return err
	}
	s.SetAdvancedOptions(g.advanced)
	return nil
}

// writeDownload writes d into dir and returns the path.
func writeDownload(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Download written")
	return path, nil
}
