package main

import (
	"errors"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// errPickCanceled is returned when the user closes the picker.
var errPickCanceled = errors.New("no file selected")

// pickImage opens the native file picker filtered to supported images.
func pickImage(title string) (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"},
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", errPickCanceled
		}
		log.Error().Err(err).Msg("File picker failed")
		return "", err
	}
	log.Debug().Str("path", path).Msg("File picked via native dialog")
	return path, nil
}
