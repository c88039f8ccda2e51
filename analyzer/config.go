package analyzer

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"

	"perspective-gateway/analyzer/infra"
)

// MinTickRate é o menor intervalo aceito entre liberações.
const MinTickRate = 1000 * time.Millisecond

type Config struct {
	APIKey             string
	RequestBufferSize  int
	ResponseBufferSize int
	// MaximumQueueSize limita cada tier de forma independente.
	MaximumQueueSize int
	TickRate         time.Duration
	Endpoint         string
	// HTTPTimeout 0 desliga o timeout do http.Client (o ctx do dispatcher ainda vale).
	HTTPTimeout    time.Duration
	WorkConserving bool
	StatsTimeout   time.Duration
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:             apiKey,
		RequestBufferSize:  16,
		ResponseBufferSize: 16,
		MaximumQueueSize:   128,
		TickRate:           1100 * time.Millisecond,
		Endpoint:           infra.DefaultEndpoint,
		HTTPTimeout:        30 * time.Second,
		StatsTimeout:       250 * time.Millisecond,
	}
}

// Validate retorna todas as violações de uma vez.
func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.APIKey) == "" {
		err = multierr.Append(err, errors.New("api key is required"))
	}
	if c.RequestBufferSize < 1 {
		err = multierr.Append(err, errors.New("request buffer size cannot be 0"))
	}
	if c.ResponseBufferSize < 1 {
		err = multierr.Append(err, errors.New("response buffer size cannot be 0"))
	}
	if c.MaximumQueueSize < 1 {
		err = multierr.Append(err, errors.New("maximum queue size cannot be 0"))
	}
	if c.TickRate < MinTickRate {
		err = multierr.Append(err, errors.New("tick rate cannot be less than 1000 ms"))
	}
	if u, perr := url.Parse(c.Endpoint); perr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, errors.New("endpoint must be an absolute URL"))
	}
	if c.HTTPTimeout < 0 {
		err = multierr.Append(err, errors.New("http timeout cannot be negative"))
	}
	if c.StatsTimeout <= 0 {
		err = multierr.Append(err, errors.New("stats timeout must be > 0"))
	}
	return err
}
