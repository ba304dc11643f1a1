package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/middleware"
)

type Handler struct {
	svc        *Service
	defaultK   int
	maxQueries int
	logger     *slog.Logger
}

func NewHandler(svc *Service, defaultK, maxQueries int) *Handler {
	return &Handler{
		svc:        svc,
		defaultK:   defaultK,
		maxQueries: maxQueries,
		logger:     slog.Default().With("component", "service-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/index", h.Index)
	mux.HandleFunc("POST /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/evaluate", h.Evaluate)
	mux.HandleFunc("GET /api/v1/index", h.IndexInfo)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/evaluations", h.Evaluations)
}

type indexRequest struct {
	Model    string           `json:"model"`
	Products []map[string]any `json:"products"`
}

type indexResponse struct {
	Indexed int    `json:"indexed"`
	Model   string `json:"model"`
	Version int64  `json:"version"`
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := catalog.ItemsFromRecords(req.Products)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := h.svc.Build(r.Context(), req.Model, items, "http")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, indexResponse{
		Indexed: snap.Pipeline.Len(),
		Model:   snap.Pipeline.Model().String(),
		Version: snap.Version,
	})
}

func (h *Handler) IndexInfo(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	if snap == nil {
		h.writeError(w, r, ErrIndexNotBuilt)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"model":    snap.Pipeline.Model().String(),
		"version":  snap.Version,
		"items":    snap.Pipeline.Len(),
		"built_at": snap.BuiltAt,
	})
}

type searchRequest struct {
	Queries []string `json:"queries"`
	K       *int     `json:"k"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.maxQueries > 0 && len(req.Queries) > h.maxQueries {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"at most %d queries per request", h.maxQueries))
		return
	}
	k := h.defaultK
	if req.K != nil {
		k = *req.K
	}
	res, err := h.svc.Search(r.Context(), req.Queries, k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("search completed",
		"queries", len(req.Queries),
		"k", k,
		"model", res.Model,
		"version", res.Version,
		"cache_hit", res.CacheHit,
	)
	h.writeJSON(w, http.StatusOK, map[string]any{"results": res.Results})
}

// goldIDs accepts either a pipe-delimited string or a JSON array.
type goldIDs []string

func (g *goldIDs) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*g = catalog.ParseGold(s)
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return errors.New("relevant_product_ids must be a string or an array of strings")
	}
	*g = catalog.ParseGold(strings.Join(ids, "|"))
	return nil
}

type evaluateRequest struct {
	Queries []struct {
		Query    string  `json:"query"`
		Relevant goldIDs `json:"relevant_product_ids"`
	} `json:"queries"`
	K int `json:"k"`
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	queries := make([]catalog.Query, len(req.Queries))
	for i, q := range req.Queries {
		queries[i] = catalog.Query{Text: q.Query, Relevant: q.Relevant}
	}
	report, err := h.svc.Evaluate(r.Context(), queries, req.K)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.svc.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.svc.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.svc.cache == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.svc.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Evaluations lists stored runs. ?limit= caps the count (default 20).
func (h *Handler) Evaluations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.svc.RecentRuns(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []evaluation.Report{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", maxErr.Limit)
		}
		return apperrors.InvalidInput(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

// classify maps domain errors onto transport errors.
func classify(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrRunsDisabled):
		return apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrIndexNotBuilt):
		return apperrors.New(apperrors.ErrConflict, http.StatusConflict, "index not built, call POST /api/v1/index first")
	case errors.Is(err, retrieval.ErrUnknownModel),
		errors.Is(err, catalog.ErrMissingID),
		errors.Is(err, retrieval.ErrDuplicateID),
		errors.Is(err, retrieval.ErrInvalidK),
		errors.Is(err, evaluation.ErrInvalidK):
		return apperrors.InvalidInput(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "request cancelled")
	default:
		return apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := classify(err)
	status := apperrors.HTTPStatusCode(mapped)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		log.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	body := map[string]string{"error": apperrors.Message(mapped)}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		body["request_id"] = id
	}
	h.writeJSON(w, status, body)
}
