package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/studio"
	"github.com/fpang/toon-nation/internal/styles"
)

// GET /api/healthz
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/state
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.studio.View())
}

// respondView writes the current view, or the error with the view.
func (s *server) respondView(w http.ResponseWriter, err error) {
	if err != nil {
		s.respondStudioError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.studio.View())
}

// POST /api/reset
func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.studio.Reset()
	s.respondView(w, nil)
}

// GET /api/styles
func (s *server) handleStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": styles.Categories(),
		"animation":  styles.AnimationStyles(),
		"selected":   s.studio.View().Styles,
	})
}

// GET /api/styles/{key}/preview
// Serves the style preview through the offline cache.
func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	style, ok := styles.Lookup(chi.URLParam(r, "key"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown style")
		return
	}
	data, err := s.previews.Fetch(r.Context(), style.Preview)
	if err != nil {
		log.Warn().Err(err).Str("style", style.Key).Msg("Preview unavailable")
		httpError(w, http.StatusBadGateway, "preview unavailable")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// POST /api/styles/{key}/toggle
func (s *server) handleToggleStyle(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.ToggleStyle(chi.URLParam(r, "key")))
}

type settingsRequest struct {
	Mode         *string                 `json:"mode,omitempty"`
	ShotType     *string                 `json:"shotType,omitempty"`
	Intensity    *int                    `json:"intensity,omitempty"`
	FaceFidelity *int                    `json:"faceFidelity,omitempty"`
	Advanced     *gemini.AdvancedOptions `json:"advanced,omitempty"`
}

// PUT /api/settings
// Applies only the fields present in the body.
func (s *server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Mode != nil {
		m, err := studio.ParseMode(*req.Mode)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.studio.SetMode(m)
	}
	if req.ShotType != nil {
		if err := s.studio.SetShotType(*req.ShotType); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Intensity != nil {
		if err := s.studio.SetIntensity(*req.Intensity); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.FaceFidelity != nil {
		if err := s.studio.SetFaceFidelity(*req.FaceFidelity); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Advanced != nil {
		s.studio.SetAdvancedOptions(*req.Advanced)
	}
	s.respondView(w, nil)
}

// GET /api/filters
func (s *server) handleFilters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, imaging.Presets)
}

// GET /api/suggestions
func (s *server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, studio.EditSuggestions)
}

// POST /api/image
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := readImageBody(w, r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.studio.SelectImage(data); err != nil {
		v := s.studio.View()
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: v.Error, Kind: "invalidImage", State: &v})
		return
	}
	s.respondView(w, nil)
}

func parseFaceRole(name string) (studio.FaceRole, error) {
	switch name {
	case "source", "face":
		return studio.FaceSource, nil
	case "target":
		return studio.FaceTarget, nil
	}
	return 0, fmt.Errorf("face role must be 'source' or 'target', got %q", name)
}

// POST /api/face/{role}
func (s *server) handleFaceUpload(w http.ResponseWriter, r *http.Request) {
	role, err := parseFaceRole(chi.URLParam(r, "role"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := readImageBody(w, r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.studio.SetFaceSwapImage(role, data); err != nil {
		v := s.studio.View()
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: v.Error, Kind: "invalidImage", State: &v})
		return
	}
	s.respondView(w, nil)
}

// POST /api/pick
// Opens a native file picker and loads the chosen image as the photo
// ("image") or as a face swap input ("source" or "target").
func (s *server) handlePick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Target == "" {
		req.Target = "image"
	}
	var role studio.FaceRole
	if req.Target != "image" {
		var err error
		if role, err = parseFaceRole(req.Target); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	path, err := zenity.SelectFile(
		zenity.Title("Select an image"),
		zenity.FileFilters{
			{Name: "Images", Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"}},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"canceled": true, "state": s.studio.View()})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	up, err := imaging.Acquire(path)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Target == "image" {
		err = s.studio.SelectImage(up.Data)
	} else {
		err = s.studio.SetFaceSwapImage(role, up.Data)
	}
	if err != nil {
		v := s.studio.View()
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: v.Error, Kind: "invalidImage", State: &v})
		return
	}
	log.Info().Str("target", req.Target).Msg("Image picked via native dialog")
	respondJSON(w, http.StatusOK, map[string]interface{}{"canceled": false, "state": s.studio.View()})
}

// GET /api/original
func (s *server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	img := s.studio.Original()
	if img == nil {
		httpError(w, http.StatusNotFound, "no image selected")
		return
	}
	respondBytes(w, img.MIMEType, img.Data)
}

// GET /api/result
func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	current := s.studio.Current()
	if current == nil {
		httpError(w, http.StatusNotFound, "no result")
		return
	}
	respondBytes(w, imaging.MIMEPNG, current)
}

// GET /api/video
func (s *server) handleVideo(w http.ResponseWriter, r *http.Request) {
	video := s.studio.Video()
	if video == nil {
		httpError(w, http.StatusNotFound, "no animation")
		return
	}
	respondBytes(w, "video/mp4", video)
}

// GET /api/download?hd=true
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	hd, _ := strconv.ParseBool(r.URL.Query().Get("hd"))
	d, err := s.studio.Download(r.Context(), hd)
	if err != nil {
		s.respondStudioError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Name))
	respondBytes(w, imaging.MIMEPNG, d.Data)
}

// POST /api/toonify
func (s *server) handleToonify(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.Toonify(r.Context()))
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// POST /api/scratch
func (s *server) handleScratch(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.studio.GenerateFromScratch(r.Context(), req.Prompt))
}

// POST /api/swap
func (s *server) handleSwap(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.FaceSwap(r.Context()))
}

// POST /api/animate
func (s *server) handleAnimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Style string `json:"style"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Style == "" {
		req.Style = styles.AnimationStyles()[0].Key
	}
	s.respondView(w, s.studio.Animate(r.Context(), req.Style))
}

// POST /api/edit/start
func (s *server) handleEditStart(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.StartEditing())
}

// POST /api/edit/cancel
func (s *server) handleEditCancel(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.CancelEditing())
}

// POST /api/edit/done
func (s *server) handleEditDone(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, s.studio.DoneEditing())
}

// POST /api/edit/ai
func (s *server) handleAIEdit(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.studio.AIEdit(r.Context(), req.Prompt))
}

// POST /api/edit/filter
func (s *server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter string `json:"filter"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.studio.ApplyFilter(r.Context(), req.Filter))
}

// POST /api/edit/adjust
func (s *server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	a := imaging.DefaultAdjustments()
	if err := decodeJSON(r, &a); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.studio.ApplyAdjustments(r.Context(), a))
}

// POST /api/edit/crop
func (s *server) handleCrop(w http.ResponseWriter, r *http.Request) {
	var rect imaging.Rect
	if err := decodeJSON(r, &rect); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondView(w, s.studio.Crop(r.Context(), rect))
}

// POST /api/undo
func (s *server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.studio.Undo()
	s.respondView(w, nil)
}

// POST /api/redo
func (s *server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.studio.Redo()
	s.respondView(w, nil)
}
