package analyzer

import (
	"net/http"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"perspective-gateway/analyzer/domain"
)

type options struct {
	caller     domain.Caller
	stats      domain.StatsStore
	logger     logr.Logger
	clock      clock.WithTicker
	httpClient *http.Client
	tracer     trace.Tracer
}

type Option func(*options)

// WithCaller substitui o HTTPCaller padrão (ex.: fakes em teste, outro transporte).
func WithCaller(c domain.Caller) Option {
	return func(o *options) { o.caller = c }
}

func WithStats(s domain.StatsStore) Option {
	return func(o *options) { o.stats = s }
}

func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock troca o relógio do pacer (testclock.FakeClock nos testes).
func WithClock(c clock.WithTicker) Option {
	return func(o *options) { o.clock = c }
}

// WithHTTPClient só tem efeito quando o Caller padrão é usado.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
