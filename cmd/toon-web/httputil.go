package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/studio"
	"github.com/fpang/toon-nation/internal/styles"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// errorResponse carries the failure and the resulting state so the front
// end can render both from one reply.
type errorResponse struct {
	Error string       `json:"error"`
	Kind  string       `json:"kind,omitempty"`
	State *studio.View `json:"state,omitempty"`
}

// respondStudioError maps err to a status and writes it with the view.
func (s *server) respondStudioError(w http.ResponseWriter, err error) {
	status, kind, msg := classifyError(err)
	if status >= 500 {
		log.Warn().Err(err).Int("status", status).Msg("Studio operation failed")
	}
	v := s.studio.View()
	respondJSON(w, status, errorResponse{Error: msg, Kind: kind, State: &v})
}

// classifyError returns the HTTP status, kind and user message for err.
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, studio.ErrProRequired):
		return http.StatusForbidden, "proRequired", err.Error()
	case errors.Is(err, studio.ErrNoImage),
		errors.Is(err, studio.ErrNoResult),
		errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, studio.ErrNothingToSave),
		errors.Is(err, styles.ErrUnknownStyle):
		return http.StatusBadRequest, "invalidRequest", err.Error()
	case errors.Is(err, store.ErrNotOpen):
		return http.StatusServiceUnavailable, "storeUnavailable", err.Error()
	}

	e := apierror.Classify(err)
	switch e.Kind {
	case apierror.Busy, apierror.Canceled:
		return http.StatusConflict, e.Kind.String(), e.Message()
	case apierror.Unknown:
		return http.StatusInternalServerError, e.Kind.String(), err.Error()
	case apierror.QuotaExceeded:
		return http.StatusTooManyRequests, e.Kind.String(), e.Message()
	case apierror.Timeout:
		return http.StatusGatewayTimeout, e.Kind.String(), e.Message()
	default:
		return http.StatusBadGateway, e.Kind.String(), e.Message()
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown fields. An empty
// body leaves v unchanged.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// readImageBody returns the uploaded image from a multipart "image" field
// or the raw request body.
func readImageBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("missing image field: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}
