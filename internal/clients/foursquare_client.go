package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"github.com/spacesedan/platepick/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type FoursquareOptions struct {
	APIKey     string
	BaseURL    string
	RatePerSec float64
	TipsLimit  int
	Timeout    time.Duration
}

// FoursquareClient is the place source backed by the Foursquare Places API.
// All calls share one rate limiter and one circuit breaker.
type FoursquareClient struct {
	Client    *http.Client
	baseURL   string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	tipsLimit int
	backoff   time.Duration
}

func NewFoursquareClient(opts FoursquareOptions) *FoursquareClient {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.TipsLimit <= 0 {
		opts.TipsLimit = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = opts.Timeout

	burst := int(opts.RatePerSec)
	if burst < 1 {
		burst = 1
	}

	return &FoursquareClient{
		Client:    httpClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), burst),
		breaker:   gobreaker.NewCircuitBreaker[[]byte](placesBreakerSettings()),
		tipsLimit: opts.TipsLimit,
		backoff:   INITIAL_BACKOFF,
	}
}

func placesBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "foursquare-places",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.Status >= 400 && upstream.Status < 500 && upstream.Status != http.StatusTooManyRequests {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("[FoursquareClient] Circuit breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
}

// Search lists restaurants matching query near location, in the order the
// API ranks them.
func (f *FoursquareClient) Search(ctx context.Context, query, location string, limit int) ([]models.PlaceRecord, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("near", location)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp models.FoursquareSearchResponse
	if err := f.getJSON(ctx, "places search", "/places/search", params, &resp); err != nil {
		return nil, err
	}

	places := make([]models.PlaceRecord, 0, len(resp.Results))
	for _, p := range resp.Results {
		id := p.FsqPlaceID
		if id == "" {
			id = p.FsqID
		}
		rec := models.PlaceRecord{ID: id, Name: p.Name}
		if addr := firstNonEmpty(p.Location.FormattedAddress, p.Location.Address); addr != "" {
			rec.Address = &addr
		}
		places = append(places, rec)
	}

	slog.Debug("[FoursquareClient] Search complete",
		slog.String("query", query),
		slog.String("location", location),
		slog.Int("results", len(places)))
	return places, nil
}

// Reviews returns the text of the place's tips.
func (f *FoursquareClient) Reviews(ctx context.Context, placeID string) ([]string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(f.tipsLimit))

	var tips []models.FoursquareTip
	if err := f.getJSON(ctx, "place tips", "/places/"+url.PathEscape(placeID)+"/tips", params, &tips); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(tips))
	for _, tip := range tips {
		texts = append(texts, tip.Text)
	}
	return texts, nil
}

// Photo returns the URL of the place's first photo, or "" when it has none.
func (f *FoursquareClient) Photo(ctx context.Context, placeID string) (string, error) {
	params := url.Values{}
	params.Set("limit", "1")

	var photos []models.FoursquarePhoto
	if err := f.getJSON(ctx, "place photos", "/places/"+url.PathEscape(placeID)+"/photos", params, &photos); err != nil {
		return "", err
	}
	if len(photos) == 0 || photos[0].Prefix == "" {
		return "", nil
	}
	return photos[0].Prefix + FOURSQUARE_PHOTO_SIZE + photos[0].Suffix, nil
}

func (f *FoursquareClient) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &UpstreamError{Op: op, Err: err}
	}

	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.doWithRetry(ctx, op, f.baseURL+path+"?"+params.Encode())
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &UpstreamError{Op: op, Err: err}
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Error("[FoursquareClient] Failed to unmarshal response",
			slog.String("op", op),
			slog.String("error", err.Error()),
			getPreview(body))
		return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// doWithRetry retries transport errors, 429 and 5xx.
func (f *FoursquareClient) doWithRetry(ctx context.Context, op, endpoint string) ([]byte, error) {
	var lastErr error
	backoff := f.backoff

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		req.Header.Set("X-Places-Api-Version", FOURSQUARE_API_VERSION)

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = &UpstreamError{Op: op, Err: err}
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = &UpstreamError{Op: op, Err: readErr}
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return body, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = &UpstreamError{Op: op, Status: resp.StatusCode}
			default:
				return nil, &UpstreamError{Op: op, Status: resp.StatusCode}
			}
		}

		slog.Warn("[FoursquareClient] Request failed, will retry",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))

		if attempt == MAX_RETRIES-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}
	return nil, lastErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
