package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fpang/toon-nation/internal/config"
	"github.com/fpang/toon-nation/internal/previewcache"
	"github.com/fpang/toon-nation/internal/studio"
)

// server exposes a single studio session.
type server struct {
	cfg      *config.Config
	studio   *studio.Studio
	previews *previewcache.Cache
}

func newServer(cfg *config.Config, previews *previewcache.Cache) *server {
	return &server{cfg: cfg, previews: previews}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, withLogging, withCORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		r.Get("/state", s.handleState)
		r.Post("/reset", s.handleReset)

		r.Route("/styles", func(r chi.Router) {
			r.Get("/", s.handleStyles)
			r.Get("/{key}/preview", s.handlePreview)
			r.Post("/{key}/toggle", s.handleToggleStyle)
		})
		r.Put("/settings", s.handleSettings)
		r.Get("/filters", s.handleFilters)
		r.Get("/suggestions", s.handleSuggestions)

		r.Post("/image", s.handleUpload)
		r.Post("/face/{role}", s.handleFaceUpload)
		r.Post("/pick", s.handlePick)
		r.Get("/original", s.handleOriginal)
		r.Get("/result", s.handleResult)
		r.Get("/video", s.handleVideo)
		r.Get("/download", s.handleDownload)

		r.Post("/toonify", s.handleToonify)
		r.Post("/scratch", s.handleScratch)
		r.Post("/swap", s.handleSwap)
		r.Post("/animate", s.handleAnimate)

		r.Route("/edit", func(r chi.Router) {
			r.Post("/start", s.handleEditStart)
			r.Post("/cancel", s.handleEditCancel)
			r.Post("/done", s.handleEditDone)
			r.Post("/ai", s.handleAIEdit)
			r.Post("/filter", s.handleFilter)
			r.Post("/adjust", s.handleAdjust)
			r.Post("/crop", s.handleCrop)
		})
		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)

		r.Route("/creations", func(r chi.Router) {
			r.Get("/", s.handleListCreations)
			r.Post("/", s.handleSaveCreation)
			r.Delete("/{id}", s.handleDeleteCreation)
			r.Post("/{id}/reopen", s.handleReopenCreation)
		})
	})
	return r
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/state" {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only localhost origins
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
