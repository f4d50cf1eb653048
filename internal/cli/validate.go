package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/imaging"
)

// ResolveImagePath checks that path names a regular file and returns its
// absolute form.
func ResolveImagePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > imaging.MaxUploadBytes {
		return "", fmt.Errorf("%s is too large (%d bytes)", path, info.Size())
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ParseRect parses "x,y,width,height".
func ParseRect(s string) (imaging.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return imaging.Rect{}, fmt.Errorf("crop rectangle must be x,y,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return imaging.Rect{}, fmt.Errorf("crop rectangle: %q is not a number", p)
		}
		v[i] = n
	}
	r := imaging.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Width <= 0 || r.Height <= 0 {
		return imaging.Rect{}, fmt.Errorf("crop rectangle must have a positive size")
	}
	return r, nil
}

// ParseAdjustments parses key=value pairs such as "rotate=90 brightness=120".
// Unset keys keep their defaults.
func ParseAdjustments(args []string) (imaging.Adjustments, error) {
	a := imaging.DefaultAdjustments()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return a, fmt.Errorf("adjustment %q must be key=value", arg)
		}
		n, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil {
			return a, fmt.Errorf("adjustment %s: %q is not a number", key, value)
		}
		switch key {
		case "rotate", "rotation":
			a.Rotation = n
		case "brightness":
			a.Brightness = n
		case "contrast":
			a.Contrast = n
		case "saturation", "saturate":
			a.Saturation = n
		default:
			return a, fmt.Errorf("unknown adjustment %q", key)
		}
	}
	return a, nil
}

// HandleValidationError logs an API key validation failure with guidance
// and exits.
func HandleValidationError(err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case apierror.InvalidAPIKey, apierror.ConfigurationError:
			log.Fatal().Err(err).Msg("Invalid API key. Set GEMINI_API_KEY or store it in ~/.toon-nation/credentials.gpg")
		case apierror.NetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case apierror.QuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("Unexpected error during API key validation")
	}
	os.Exit(1)
}
