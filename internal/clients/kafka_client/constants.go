package kafka_client

import "time"

const (
	KAFKA_TOPIC_SEARCH_REQUESTS  = "search-requests"  // SearchRequest JSON, keyed by request id
	KAFKA_TOPIC_SEARCH_COMPLETED = "search-completed" // protobuf encoded ranked views
)

const (
	DEFAULT_BROKER           = "localhost:29092"
	DEFAULT_CONSUMER_GROUP   = "platepick-consumer-group"
	DEFAULT_TRANSACTIONAL_ID = "platepick-producer-1"
)

const (
	MAX_RETRIES = 5
	RETRY_DELAY = 2 * time.Second
)
