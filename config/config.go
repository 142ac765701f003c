package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DEFAULT_FOURSQUARE_BASE_URL = "https://places-api.foursquare.com"
	DEFAULT_HF_ENDPOINT         = "https://api-inference.huggingface.co/models/nlptown/bert-base-multilingual-uncased-sentiment"
	DEFAULT_HUGOT_MODEL         = "nlptown/bert-base-multilingual-uncased-sentiment"
)

type Config struct {
	AppEnv   string `validate:"required,oneof=development production test"`
	HTTPAddr string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	FoursquareAPIKey  string
	FoursquareBaseURL string  `validate:"required,url"`
	PlacesRatePerSec  float64 `validate:"gt=0"`

	SearchLimit     int           `validate:"gte=1,lte=50"`
	ReviewsPerPlace int           `validate:"gte=1,lte=50"`
	PipelineWorkers int           `validate:"gte=1,lte=64"`
	FetchTimeout    time.Duration `validate:"gt=0"`

	ClassifierBackend  string        `validate:"oneof=hugot huggingface vader"`
	ClassifierTimeout  time.Duration `validate:"gt=0"`
	ClassifierMaxChars int           `validate:"gte=16"`
	HugotModel         string        `validate:"required_if=ClassifierBackend hugot"`
	HugotModelDir      string        `validate:"required_if=ClassifierBackend hugot"`
	HFAPIToken         string
	HFEndpoint         string `validate:"required_if=ClassifierBackend huggingface,omitempty,url"`

	HistoryBackend string `validate:"oneof=dynamodb memory"`
	HistoryTable   string `validate:"required_if=HistoryBackend dynamodb"`
	AWSRegion      string `validate:"required_if=HistoryBackend dynamodb"`
	AWSEndpoint    string `validate:"omitempty,url"`

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	ReviewCacheTTL time.Duration `validate:"gte=0"`

	OpenAIAPIKey string
	OpenAIModel  string

	KafkaBroker       string
	KafkaGroupID      string `validate:"required_with=KafkaBroker"`
	KafkaRequestTopic string `validate:"required_with=KafkaBroker"`
	KafkaResultTopic  string `validate:"required_with=KafkaBroker"`
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// Load reads the configuration from the environment and validates it. Call
// LoadEnv first to pick up an env file.
func Load() (Config, error) {
	var errs []string
	intEnv := func(key string, def int) int {
		raw := getEnv(key, strconv.Itoa(def))
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, raw))
			return def
		}
		return v
	}
	floatEnv := func(key string, def float64) float64 {
		raw := getEnv(key, strconv.FormatFloat(def, 'f', -1, 64))
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a number", key, raw))
			return def
		}
		return v
	}
	durationEnv := func(key string, def time.Duration) time.Duration {
		raw := getEnv(key, def.String())
		v, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a duration", key, raw))
			return def
		}
		return v
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),

		FoursquareAPIKey:  getEnv("FOURSQUARE_API_KEY", ""),
		FoursquareBaseURL: getEnv("FOURSQUARE_BASE_URL", DEFAULT_FOURSQUARE_BASE_URL),
		PlacesRatePerSec:  floatEnv("PLACES_RATE_PER_SEC", 10),

		SearchLimit:     intEnv("SEARCH_LIMIT", 10),
		ReviewsPerPlace: intEnv("REVIEWS_PER_PLACE", 5),
		PipelineWorkers: intEnv("PIPELINE_WORKERS", 4),
		FetchTimeout:    durationEnv("FETCH_TIMEOUT", 5*time.Second),

		ClassifierBackend:  strings.ToLower(getEnv("CLASSIFIER_BACKEND", "vader")),
		ClassifierTimeout:  durationEnv("CLASSIFIER_TIMEOUT", 10*time.Second),
		ClassifierMaxChars: intEnv("CLASSIFIER_MAX_CHARS", 512),
		HugotModel:         getEnv("HUGOT_MODEL", DEFAULT_HUGOT_MODEL),
		HugotModelDir:      getEnv("HUGOT_MODEL_DIR", "./models"),
		HFAPIToken:         getEnv("HF_API_TOKEN", ""),
		HFEndpoint:         getEnv("HF_ENDPOINT", DEFAULT_HF_ENDPOINT),

		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", "memory")),
		HistoryTable:   getEnv("HISTORY_TABLE", "SearchHistory"),
		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		AWSEndpoint:    getEnv("AWS_ENDPOINT", ""),

		ValkeyAddress:  getEnv("VALKEY_INIT_ADDRESS", ""),
		ValkeyPassword: getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:      getEnv("VALKEY_TLS", "false") == "true",
		ReviewCacheTTL: durationEnv("REVIEW_CACHE_TTL", 6*time.Hour),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		KafkaBroker:       getEnv("KAFKA_BROKER", ""),
		KafkaGroupID:      getEnv("KAFKA_CONSUMER_GROUP_ID", "platepick-consumer-group"),
		KafkaRequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "search-requests"),
		KafkaResultTopic:  getEnv("KAFKA_RESULT_TOPIC", "search-completed"),
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("[Config] invalid environment: %s", strings.Join(errs, "; "))
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("[Config] validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c Config) CacheEnabled() bool {
	return c.ValkeyAddress != "" && c.ReviewCacheTTL > 0
}

func (c Config) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}
