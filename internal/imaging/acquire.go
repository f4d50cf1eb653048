package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// MaxUploadBytes bounds what Acquire will read into memory.
const MaxUploadBytes = 25 << 20

// SupportedMIMETypes lists the formats accepted as uploads.
var SupportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Metadata is the EXIF summary logged for an upload.
type Metadata struct {
	CameraMake  string
	CameraModel string
	DateTaken   time.Time
	Latitude    float64
	Longitude   float64
	HasGPS      bool
}

// Upload is a raw image as supplied by the user, before resizing.
type Upload struct {
	Data     []byte
	MIMEType string
	Metadata *Metadata
}

// Acquire reads an image file from disk and sniffs its type.
func Acquire(path string) (*Upload, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > MaxUploadBytes {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", path, fi.Size(), MaxUploadBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	up, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Str("mime_type", up.MIMEType).
		Int("size", len(data)).
		Bool("has_exif", up.Metadata != nil).
		Msg("Image acquired")
	return up, nil
}

// FromBytes validates an in-memory upload (e.g. an HTTP body).
func FromBytes(data []byte) (*Upload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	mimeType := http.DetectContentType(data)
	if !SupportedMIMETypes[mimeType] {
		return nil, fmt.Errorf("unsupported image type %s", mimeType)
	}
	return &Upload{Data: data, MIMEType: mimeType, Metadata: readMetadata(data)}, nil
}

// readMetadata returns nil when the image carries no readable EXIF block.
func readMetadata(data []byte) *Metadata {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Trace().Err(err).Msg("No EXIF metadata")
		return nil
	}

	m := &Metadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}
	if lat, lon := exifData.GPS.Latitude(), exifData.GPS.Longitude(); lat != 0 || lon != 0 {
		m.Latitude, m.Longitude, m.HasGPS = lat, lon, true
	}
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		m.DateTaken = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		m.DateTaken = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		m.DateTaken = exifData.ModifyDate()
	}
	return m
}

// DataURI renders data as a data: URI suitable for display.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
