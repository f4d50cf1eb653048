package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fpang/toon-nation/internal/store"
)

// GET /api/creations
func (s *server) handleListCreations(w http.ResponseWriter, r *http.Request) {
	creations, err := s.studio.ListCreations(r.Context())
	if err != nil {
		s.respondStudioError(w, err)
		return
	}
	if creations == nil {
		creations = []store.Creation{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"creations": creations})
}

// POST /api/creations
func (s *server) handleSaveCreation(w http.ResponseWriter, r *http.Request) {
	id, err := s.studio.SaveCreation(r.Context())
	if err != nil {
		s.respondStudioError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// DELETE /api/creations/{id}
func (s *server) handleDeleteCreation(w http.ResponseWriter, r *http.Request) {
	id, ok := creationID(w, r)
	if !ok {
		return
	}
	if err := s.studio.DeleteCreation(r.Context(), id); err != nil {
		s.respondStudioError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/creations/{id}/reopen
func (s *server) handleReopenCreation(w http.ResponseWriter, r *http.Request) {
	id, ok := creationID(w, r)
	if !ok {
		return
	}
	creations, err := s.studio.ListCreations(r.Context())
	if err != nil {
		s.respondStudioError(w, err)
		return
	}
	for _, c := range creations {
		if c.ID == id {
			s.respondView(w, s.studio.ReEdit(c))
			return
		}
	}
	httpError(w, http.StatusNotFound, "creation not found")
}

func creationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpError(w, http.StatusBadRequest, "invalid creation id")
		return 0, false
	}
	return id, true
}
