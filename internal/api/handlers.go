package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/models"
	"github.com/spacesedan/platepick/internal/pipeline"
)

const (
	DEFAULT_SEARCH_TIMEOUT = 60 * time.Second
	DEFAULT_HISTORY_LIMIT  = 20
	MAX_HISTORY_LIMIT      = 100
	maxBodyBytes           = 1 << 16
)

type Searcher interface {
	RunSearch(ctx context.Context, req models.SearchRequest) (models.RankedView, error)
}

type HistoryLister interface {
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

type HealthReporter interface {
	Snapshot() map[string]bool
	Healthy() bool
}

type Handler struct {
	Searcher      Searcher
	Records       HistoryLister
	HealthStatus  HealthReporter
	SearchTimeout time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

type historyResponse struct {
	Records []models.HistoryRecord `json:"records"`
	Count   int                    `json:"count"`
}

type healthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// SearchQuery handles GET /api/v1/search?food=pizza&location=Lagos&limit=5.
func (h *Handler) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SearchRequest{
		FoodQuery: q.Get("food"),
		Location:  q.Get("location"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		req.Limit = limit
	}
	h.search(w, r, req)
}

// SearchBody handles POST /api/v1/search with a JSON SearchRequest.
func (h *Handler) SearchBody(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	h.search(w, r, req)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, req models.SearchRequest) {
	if err := pipeline.ValidateRequest(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.searchTimeout())
	defer cancel()

	view, err := h.Searcher.RunSearch(ctx, req)
	if err != nil {
		var persistErr *history.PersistError
		switch {
		case errors.As(err, &persistErr):
			// the view already carries the warning
		case errors.Is(err, context.DeadlineExceeded):
			writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "search timed out"})
			return
		case errors.Is(err, context.Canceled):
			slog.Debug("[API] Client went away before search finished",
				slog.String("request_id", view.RequestID))
			return
		default:
			slog.Error("[API] Search failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
			return
		}
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) searchTimeout() time.Duration {
	if h.SearchTimeout > 0 {
		return h.SearchTimeout
	}
	return DEFAULT_SEARCH_TIMEOUT
}

// History handles GET /api/v1/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := DEFAULT_HISTORY_LIMIT
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, MAX_HISTORY_LIMIT)
	}

	records, err := h.Records.List(r.Context(), limit)
	if err != nil {
		slog.Error("[API] Failed to list history", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "history unavailable"})
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Count: len(records)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.HealthStatus == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Components: map[string]bool{}})
		return
	}

	resp := healthResponse{Status: "ok", Components: h.HealthStatus.Snapshot()}
	status := http.StatusOK
	if !h.HealthStatus.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("[API] Failed to write response", slog.String("error", err.Error()))
	}
}
