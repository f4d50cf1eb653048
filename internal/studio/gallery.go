package studio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/store"
)

var errNoStore = errors.New("no creation store configured")

// SaveCreation stores the original photo, the current entry and the
// caption. It returns the new creation id.
func (s *Studio) SaveCreation(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, errNoStore
	}
	s.mu.Lock()
	current := s.history.Current()
	if s.original == nil || current == nil {
		s.mu.Unlock()
		return 0, ErrNothingToSave
	}
	c := store.NewCreation{
		OriginalImageBase64:   s.original.Base64(),
		OriginalImageMIMEType: s.original.MIMEType,
		ToonifiedImageBase64:  base64.StdEncoding.EncodeToString(current),
		Caption:               s.caption,
	}
	s.mu.Unlock()

	id, err := s.store.Add(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("failed to save creation: %w", err)
	}
	log.Info().Str("session_id", s.sessionID).Int64("id", id).Msg("Creation saved")
	return id, nil
}

// ListCreations returns the gallery, newest first.
func (s *Studio) ListCreations(ctx context.Context) ([]store.Creation, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	return s.store.List(ctx)
}

// DeleteCreation removes a saved creation.
func (s *Studio) DeleteCreation(ctx context.Context, id int64) error {
	if s.store == nil {
		return errNoStore
	}
	return s.store.Delete(ctx, id)
}

// ReEdit reopens a saved creation: its original becomes the photo, its
// result the only history entry, and the studio goes straight to Success.
func (s *Studio) ReEdit(c store.Creation) error {
	original, err := base64.StdEncoding.DecodeString(c.OriginalImageBase64)
	if err != nil {
		return fmt.Errorf("creation %d has an invalid original image: %w", c.ID, err)
	}
	result, err := base64.StdEncoding.DecodeString(c.ToonifiedImageBase64)
	if err != nil {
		return fmt.Errorf("creation %d has an invalid result image: %w", c.ID, err)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.original = &Image{Data: original, MIMEType: c.OriginalImageMIMEType}
	s.replaceResultLocked(result)
	s.caption = c.Caption
	s.video = nil
	s.media = MediaImage
	s.errMsg = ""
	s.state = StateSuccess
	s.mu.Unlock()

	log.Debug().Int64("id", c.ID).Msg("Creation reopened")
	s.notify()
	return nil
}
