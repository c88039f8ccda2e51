package gateway

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

type ConcurrencyOptions struct {
	// Max é o número de requests esperando resposta ao mesmo tempo. <= 0 desliga.
	Max            int64
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyLimit segura uma vaga do semáforo durante toda a request.
// Com AcquireTimeout <= 0 espera até o ctx da request encerrar.
func ConcurrencyLimit(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	sem := semaphore.NewWeighted(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if opts.AcquireTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.AcquireTimeout)
				defer cancel()
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer sem.Release(1)

			next.ServeHTTP(w, r)
		})
	}
}
