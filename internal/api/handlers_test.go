package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	got  models.SearchRequest
	view models.RankedView
	err  error
}

func (s *stubSearcher) RunSearch(_ context.Context, req models.SearchRequest) (models.RankedView, error) {
	s.got = req
	view := s.view
	view.FoodQuery, view.Location = req.FoodQuery, req.Location
	return view, s.err
}

type stubHistory struct {
	limit   int
	records []models.HistoryRecord
	err     error
}

func (s *stubHistory) List(_ context.Context, limit int) ([]models.HistoryRecord, error) {
	s.limit = limit
	return s.records, s.err
}

type stubHealth map[string]bool

func (s stubHealth) Snapshot() map[string]bool { return s }
func (s stubHealth) Healthy() bool {
	for _, ok := range s {
		if !ok {
			return false
		}
	}
	return true
}

func rankedView() models.RankedView {
	joes := models.Restaurant{ID: "j", Name: "Joe's", Rating: models.RatingAggregate{AverageScore: 4.5, ReviewCount: 2, Excerpts: []string{}}, HasReviews: true}
	return models.RankedView{
		RequestID:   "req-1",
		Restaurants: []models.Restaurant{joes},
		Reviewed:    []models.Restaurant{joes},
		Unreviewed:  []models.Restaurant{},
		TopPick:     &joes,
		Podium:      []models.Restaurant{joes},
		Gallery:     []models.Restaurant{},
		Warnings:    []string{},
	}
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestSearchQuery(t *testing.T) {
	searcher := &stubSearcher{view: rankedView()}
	rec := serve(&Handler{Searcher: searcher}, httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, models.SearchRequest{FoodQuery: "pizza", Location: "Lagos", Limit: 5}, searcher.got)

	var view models.RankedView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.TopPick)
	assert.Equal(t, "Joe's", view.TopPick.Name)
	assert.Equal(t, "pizza", view.FoodQuery)
}

func TestSearchEmptyViewSerialisesEmptyLists(t *testing.T) {
	empty := models.RankedView{
		Restaurants: []models.Restaurant{}, Reviewed: []models.Restaurant{}, Unreviewed: []models.Restaurant{},
		Podium: []models.Restaurant{}, Gallery: []models.Restaurant{}, Warnings: []string{},
	}
	rec := serve(&Handler{Searcher: &stubSearcher{view: empty}}, httptest.NewRequest(http.MethodGet, "/api/v1/search?food=suya&location=Abuja", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"restaurants":[]`)
	assert.Contains(t, body, `"podium":[]`)
	assert.Contains(t, body, `"top_pick":null`)
}

func TestSearchBody(t *testing.T) {
	searcher := &stubSearcher{view: rankedView()}
	body := strings.NewReader(`{"food_query":"jollof","location":"Accra"}`)
	rec := serve(&Handler{Searcher: searcher}, httptest.NewRequest(http.MethodPost, "/api/v1/search", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jollof", searcher.got.FoodQuery)
	assert.Equal(t, "Accra", searcher.got.Location)
}

func TestSearchRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing food", httptest.NewRequest(http.MethodGet, "/api/v1/search?location=Lagos", nil)},
		{"missing location", httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza", nil)},
		{"bad limit", httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos&limit=many", nil)},
		{"limit too high", httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos&limit=500", nil)},
		{"malformed body", httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubSearcher{}
			rec := serve(&Handler{Searcher: searcher}, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, searcher.got.FoodQuery+searcher.got.Location)
		})
	}
}

func TestSearchPersistErrorStillReturnsView(t *testing.T) {
	view := rankedView()
	view.Warnings = []string{"search history unavailable"}
	searcher := &stubSearcher{view: view, err: &history.PersistError{Op: "find", Err: errors.New("connection refused")}}

	rec := serve(&Handler{Searcher: searcher}, httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "search history unavailable")
}

func TestSearchTimeout(t *testing.T) {
	searcher := &stubSearcher{err: context.DeadlineExceeded}
	rec := serve(&Handler{Searcher: searcher, SearchTimeout: time.Second}, httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

type blockingSearcher struct{}

func (blockingSearcher) RunSearch(ctx context.Context, _ models.SearchRequest) (models.RankedView, error) {
	<-ctx.Done()
	return models.RankedView{}, ctx.Err()
}

// headerCounter counts WriteHeader calls on top of a recorder.
type headerCounter struct {
	*httptest.ResponseRecorder
	writes int
}

func (c *headerCounter) WriteHeader(code int) {
	c.writes++
	c.ResponseRecorder.WriteHeader(code)
}

func TestSearchDeadlineWritesOneResponse(t *testing.T) {
	rec := &headerCounter{ResponseRecorder: httptest.NewRecorder()}
	h := &Handler{Searcher: blockingSearcher{}, SearchTimeout: 20 * time.Millisecond}

	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?food=pizza&location=Lagos", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, 1, rec.writes)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "search timed out", resp.Error)
}

func TestHistory(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "", http.StatusOK, DEFAULT_HISTORY_LIMIT},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"capped limit", "?limit=1000", http.StatusOK, MAX_HISTORY_LIMIT},
		{"invalid limit", "?limit=zero", http.StatusBadRequest, 0},
		{"negative limit", "?limit=-1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubHistory{records: []models.HistoryRecord{{ID: "h1", RestaurantName: "Joe's", FoodQuery: "pizza", Location: "Lagos"}}}
			rec := serve(&Handler{Records: store}, httptest.NewRequest(http.MethodGet, "/api/v1/history"+tt.query, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, store.limit)
		})
	}
}

func TestHistoryUnavailable(t *testing.T) {
	store := &stubHistory{err: &history.PersistError{Op: "list", Err: errors.New("timeout")}}
	rec := serve(&Handler{Records: store}, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryEmptyIsList(t *testing.T) {
	rec := serve(&Handler{Records: &stubHistory{}}, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[],"count":0}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := serve(&Handler{HealthStatus: stubHealth{"classifier": true}}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","components":{"classifier":true}}`, rec.Body.String())

	rec = serve(&Handler{HealthStatus: stubHealth{"classifier": false}}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(&Handler{}, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
