// Package server exposes the upload/poll/lookup HTTP surface around the
// enrichment core.
package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/cache"
	"github.com/seb1936247/wine-value-finder/internal/enrich"
	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/parse"
	"github.com/seb1936247/wine-value-finder/internal/session"
)

// maxUploadBytes caps wine-list uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Server wires the HTTP handlers to the session store, parser, and
// scheduler.
type Server struct {
	store  *session.Store
	cache  *cache.Cache
	sched  *enrich.Scheduler
	parser *parse.Parser

	// background enrichment and parsing outlive the request; they run
	// on the application lifetime context.
	appCtx context.Context
}

// New creates the HTTP server surface.
func New(appCtx context.Context, store *session.Store, c *cache.Cache, sched *enrich.Scheduler, parser *parse.Parser) *Server {
	return &Server{store: store, cache: c, sched: sched, parser: parser, appCtx: appCtx}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/lookup", s.handleStartLookup)
			r.Patch("/wines/{idx}", s.handleEditWine)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart wine-list image, creates the session
// in parsing state, and parses asynchronously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	mediaType := header.Header.Get("Content-Type")

	sess := &model.Session{
		ID:        uuid.NewString(),
		Status:    model.SessionStatusParsing,
		CreatedAt: time.Now(),
	}
	s.store.Put(sess)

	go s.runParse(sess.ID, data, mediaType)

	writeJSON(w, http.StatusAccepted, sess)
}

// runParse is the background parsing step for one upload.
func (s *Server) runParse(sessionID string, data []byte, mediaType string) {
	log := zap.L().With(zap.String("session", sessionID))

	result, err := s.parser.Parse(s.appCtx, data, mediaType)
	if err != nil {
		log.Error("parse failed", zap.Error(err))
		_, _ = s.store.Update(sessionID, func(sess *model.Session) error {
			sess.Status = model.SessionStatusError
			sess.Error = err.Error()
			return nil
		})
		return
	}

	_, err = s.store.Update(sessionID, func(sess *model.Session) error {
		sess.Currency = result.Currency
		sess.Wines = result.Wines
		sess.Status = model.SessionStatusParsed
		return nil
	})
	if err != nil {
		log.Warn("session gone before parse finished", zap.Error(err))
		return
	}
	log.Info("parse complete",
		zap.Int("wines", len(result.Wines)),
		zap.String("currency", result.Currency),
	)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleStartLookup kicks off enrichment. A session already looking up
// is a conflict, not a no-op.
func (s *Server) handleStartLookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.sched.Start(s.appCtx, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case eris.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case eris.Is(err, enrich.ErrLookupInProgress):
		writeError(w, http.StatusConflict, "lookup already in progress")
	case eris.Is(err, enrich.ErrNotReady):
		writeError(w, http.StatusConflict, "session is not ready for lookup")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// wineEdit is the PATCH payload for correcting a misparsed wine.
type wineEdit struct {
	Name      *string  `json:"name"`
	Producer  *string  `json:"producer"`
	Vintage   *int     `json:"vintage"`
	MenuPrice *float64 `json:"menuPrice"`
}

// handleEditWine applies a user correction. Edits reset all enrichment
// fields and invalidate the cache entry so the next lookup starts clean.
func (s *Server) handleEditWine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		writeError(w, http.StatusBadRequest, "invalid wine index")
		return
	}

	var edit wineEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if edit.MenuPrice != nil && *edit.MenuPrice <= 0 {
		writeError(w, http.StatusBadRequest, "menuPrice must be positive")
		return
	}
	if edit.Name != nil && *edit.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	var edited model.WineRecord
	var currency string
	updated, err := s.store.Update(id, func(sess *model.Session) error {
		if sess.Status == model.SessionStatusLookingUp {
			return enrich.ErrLookupInProgress
		}
		if idx >= len(sess.Wines) {
			return eris.New("wine index out of range")
		}

		wine := &sess.Wines[idx]
		// Drop the stale cache entry under the old identity.
		s.cache.Invalidate(*wine, sess.Currency)

		if edit.Name != nil {
			wine.Name = *edit.Name
		}
		if edit.Producer != nil {
			wine.Producer = *edit.Producer
		}
		if edit.Vintage != nil {
			wine.Vintage = edit.Vintage
		}
		if edit.MenuPrice != nil {
			wine.MenuPrice = *edit.MenuPrice
		}
		wine.ResetEnrichment()

		edited = wine.Clone()
		currency = sess.Currency
		return nil
	})
	switch {
	case err == nil:
		s.cache.Invalidate(edited, currency)
		writeJSON(w, http.StatusOK, updated)
	case eris.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case eris.Is(err, enrich.ErrLookupInProgress):
		writeError(w, http.StatusConflict, "cannot edit while lookup is running")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// handleExport streams the session's wines as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "wines-"+sess.ID+".csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"name", "producer", "vintage", "region", "menu_price",
		"retail_price_avg", "critic_score", "community_score",
		"markup_percent", "value_score", "lookup_status", "provenance",
	})
	for _, wine := range sess.Wines {
		e := wine.Enrichment
		_ = cw.Write([]string{
			wine.Name,
			wine.Producer,
			intField(wine.Vintage),
			wine.Region,
			strconv.FormatFloat(wine.MenuPrice, 'f', 2, 64),
			floatField(e.RetailPriceAvg),
			floatField(e.CriticScore),
			floatField(e.CommunityScore),
			intField(e.MarkupPercent),
			intField(e.ValueScore),
			string(e.LookupStatus),
			string(e.DataProvenance),
		})
	}
	cw.Flush()
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
