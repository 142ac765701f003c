package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 500 * time.Millisecond
	MAX_BACKOFF     = 8 * time.Second
	USER_AGENT      = "platepick-client/1.0 (+https://github.com/spacesedan/platepick)"
)

const (
	FOURSQUARE_API_VERSION   = "2025-06-17"
	FOURSQUARE_PHOTO_SIZE    = "original"
	VALKEY_REVIEW_KEY_PREFIX = "reviews:"
)
