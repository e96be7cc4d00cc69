// Package api exposes the cached property collection over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"property-feeds/cache"
	"property-feeds/models"
	"property-feeds/services"
	"property-feeds/utils"
)

// SnapshotSource is the part of the cache the handlers need.
type SnapshotSource interface {
	Get(ctx context.Context) (*cache.Snapshot, error)
	Invalidate()
}

type Handler struct {
	source   SnapshotSource
	insights *services.InsightService
	logger   *utils.Logger
	now      func() time.Time
}

func NewHandler(source SnapshotSource, logger *utils.Logger) *Handler {
	return &Handler{
		source:   source,
		insights: services.NewInsightService(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Router registers every route on a new gorilla/mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/properties", h.ListProperties).Methods(http.MethodGet)
	// references may contain slashes; nearby must be registered first
	api.HandleFunc("/properties/{reference:.+}/nearby", h.GetNearby).Methods(http.MethodGet)
	api.HandleFunc("/properties/{reference:.+}", h.GetProperty).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.Invalidate).Methods(http.MethodPost)
	return r
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/properties?town=...&bedrooms=...&type=...&region=...&golf=...
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Filter(filter))
}

// GET /api/properties/{reference}
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	ref := mux.Vars(r)["reference"]
	p, found := snap.ByReference(ref)
	if !found {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/properties/{reference}/nearby
func (h *Handler) GetNearby(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	ref := mux.Vars(r)["reference"]
	near, found := snap.Nearby(ref)
	if !found {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	writeJSON(w, http.StatusOK, near)
}

// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.insights.Generate(snap.All()))
}

type statusResponse struct {
	SnapshotID string                  `json:"snapshotId"`
	FetchedAt  time.Time               `json:"fetchedAt"`
	AgeSeconds int64                   `json:"ageSeconds"`
	Degraded   bool                    `json:"degraded"`
	LastError  string                  `json:"lastError,omitempty"`
	Properties int                     `json:"properties"`
	Providers  []models.ProviderStatus `json:"providers"`
}

// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	providers := snap.Providers
	if providers == nil {
		providers = []models.ProviderStatus{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SnapshotID: snap.ID,
		FetchedAt:  snap.FetchedAt,
		AgeSeconds: int64(snap.Age(h.now()).Seconds()),
		Degraded:   snap.Degraded,
		LastError:  snap.LastError,
		Properties: len(snap.Properties),
		Providers:  providers,
	})
}

// POST /api/refresh marks the snapshot stale; the next read revalidates it.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	h.source.Invalidate()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invalidated"})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*cache.Snapshot, bool) {
	snap, err := h.source.Get(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			w.Header().Set("Retry-After", "15")
			writeError(w, http.StatusServiceUnavailable, "no property data available yet")
			return nil, false
		}
		h.logger.Error("[api] reading snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return snap, true
}

func parseFilter(r *http.Request) (cache.Filter, error) {
	q := r.URL.Query()
	f := cache.Filter{
		Town:         strings.TrimSpace(q.Get("town")),
		PropertyType: strings.TrimSpace(q.Get("type")),
	}

	if v := q.Get("bedrooms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("bedrooms must be a non-negative integer")
		}
		f.Bedrooms = &n
	}
	if v := q.Get("region"); v != "" {
		region, ok := models.ParseRegion(v)
		if !ok {
			return f, errors.New("region must be North or South")
		}
		f.Region = region
	}
	if v := q.Get("golf"); v != "" {
		golf, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("golf must be true or false")
		}
		f.NearGolf = &golf
	}
	return f, nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("[api] %s %s (%v)", r.Method, r.URL.RequestURI(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
