package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFoursquare(t *testing.T, handler http.HandlerFunc) *FoursquareClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewFoursquareClient(FoursquareOptions{
		APIKey:     "fsq-test-key",
		BaseURL:    srv.URL,
		RatePerSec: 1000,
		TipsLimit:  3,
	})
	c.backoff = time.Millisecond
	return c
}

func TestFoursquareSearch(t *testing.T) {
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/search", r.URL.Path)
		assert.Equal(t, "Bearer fsq-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, FOURSQUARE_API_VERSION, r.Header.Get("X-Places-Api-Version"))
		assert.Equal(t, "pizza", r.URL.Query().Get("query"))
		assert.Equal(t, "Lagos", r.URL.Query().Get("near"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"fsq_place_id":"a1","name":"Joe's","location":{"formatted_address":"12 Allen Ave, Lagos"}},
			{"fsq_id":"b2","name":"Spot","location":{}}
		]}`))
	})

	places, err := c.Search(context.Background(), "pizza", "Lagos", 5)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "a1", places[0].ID)
	assert.Equal(t, "Joe's", places[0].Name)
	require.NotNil(t, places[0].Address)
	assert.Equal(t, "12 Allen Ave, Lagos", *places[0].Address)

	assert.Equal(t, "b2", places[1].ID)
	assert.Nil(t, places[1].Address)
}

func TestFoursquareReviewsAndPhoto(t *testing.T) {
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/places/a1/tips":
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"id":"t1","text":"great"},{"id":"t2","text":"ok"}]`))
		case "/places/a1/photos":
			_, _ = w.Write([]byte(`[{"id":"p1","prefix":"https://img.example/","suffix":"/a.jpg"}]`))
		case "/places/b2/photos":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	reviews, err := c.Reviews(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"great", "ok"}, reviews)

	photo, err := c.Photo(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/original/a.jpg", photo)

	none, err := c.Photo(context.Background(), "b2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFoursquareClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Reviews(context.Background(), "missing")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.Status)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFoursquareServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"t1","text":"third time lucky"}]`))
	})

	reviews, err := c.Reviews(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"third time lucky"}, reviews)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFoursquareExhaustedRetries(t *testing.T) {
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), "suya", "Abuja", 10)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFoursquareCancelledContext(t *testing.T) {
	c := newTestFoursquare(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Reviews(ctx, "a1")
	assert.ErrorIs(t, err, context.Canceled)
}
