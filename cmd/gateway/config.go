package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"perspective-gateway/analyzer"
	"perspective-gateway/analyzer/infra"
)

type config struct {
	analyzer analyzer.Config

	listenAddr      string
	responseTimeout time.Duration
	parkTTL         time.Duration
	logDev          bool

	rateEnabled        bool
	rateRPS            float64
	rateBurst          int
	rateKeyHeader      string
	trustXFF           bool
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackIDs      bool
}

func readConfig() (config, error) {
	cfg := config{}

	cfg.analyzer = analyzer.DefaultConfig(os.Getenv("PERSPECTIVE_API_KEY"))
	cfg.analyzer.Endpoint = getenvDefault("PERSPECTIVE_ENDPOINT", infra.DefaultEndpoint)
	cfg.analyzer.RequestBufferSize = getenvIntDefault("REQUEST_BUFFER_SIZE", cfg.analyzer.RequestBufferSize)
	cfg.analyzer.ResponseBufferSize = getenvIntDefault("RESPONSE_BUFFER_SIZE", cfg.analyzer.ResponseBufferSize)
	cfg.analyzer.MaximumQueueSize = getenvIntDefault("MAX_QUEUE_SIZE", cfg.analyzer.MaximumQueueSize)
	cfg.analyzer.TickRate = getenvDurationDefault("TICK_RATE", cfg.analyzer.TickRate)
	cfg.analyzer.WorkConserving = getenvBoolDefault("WORK_CONSERVING", false)
	cfg.analyzer.HTTPTimeout = getenvDurationDefault("HTTP_TIMEOUT", cfg.analyzer.HTTPTimeout)

	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.responseTimeout = getenvDurationDefault("RESPONSE_TIMEOUT", time.Minute)
	cfg.parkTTL = getenvDurationDefault("PARK_TTL", 30*time.Second)
	cfg.logDev = getenvBoolDefault("LOG_DEV", false)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 1)
	// burst padrão acompanha a fila: com RPS < 1 o default cai para 1,
	// senão as primeiras requisições dão a impressão de que não há limite.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 10
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 256)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsRedisAddr = strings.TrimSpace(os.Getenv("STATS_REDIS_ADDR"))
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "analyzer:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackIDs = getenvBoolDefault("STATS_TRACK_IDS", false)

	var err error
	if verr := cfg.analyzer.Validate(); verr != nil {
		err = multierr.Append(err, verr)
	}
	if cfg.responseTimeout <= 0 {
		err = multierr.Append(err, errors.New("RESPONSE_TIMEOUT must be > 0"))
	}
	if cfg.rateRPS <= 0 {
		err = multierr.Append(err, errors.New("RATE_RPS must be > 0"))
	}
	if cfg.rateBurst <= 0 {
		err = multierr.Append(err, errors.New("RATE_BURST must be > 0"))
	}
	if cfg.concurrencyMax < 0 {
		err = multierr.Append(err, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if err != nil {
		return config{}, err
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	if i, ok := getenvInt(k); ok {
		return i
	}
	return def
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
