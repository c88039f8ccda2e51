package gateway

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type KeyFunc func(r *http.Request) string

type RateLimitOptions struct {
	Store               *LimiterStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// Decisions conta allow/deny; nil desliga.
	Decisions *prometheus.CounterVec
}

// NewDecisionsCounter registra gateway_ratelimit_decisions_total{allowed}.
func NewDecisionsCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "perspective",
		Subsystem: "gateway",
		Name:      "ratelimit_decisions_total",
		Help:      "Rate limit decisions by outcome.",
	}, []string{"allowed"})
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultKeyFunc: header configurado, depois o primeiro IP do X-Forwarded-For
// (se confiável), depois o host de RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// RateLimit bloqueia com RejectStatus (429) quando o bucket da chave esvazia.
// Sem Store, deixa tudo passar.
func RateLimit(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				w.Header().Set("X-RateLimit-RPS", formatFloat(opts.Store.RPS()))
				w.Header().Set("X-RateLimit-Burst", formatInt(opts.Store.Burst()))
			}

			allowed := opts.Store.Allow(key)
			if opts.Decisions != nil {
				if allowed {
					opts.Decisions.WithLabelValues("true").Inc()
				} else {
					opts.Decisions.WithLabelValues("false").Inc()
				}
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(opts.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
