package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"

	"perspective-gateway/analyzer/domain"
)

// DefaultParkTTL é quanto tempo uma resposta sem espera fica guardada.
const DefaultParkTTL = 30 * time.Second

// Router distribui as respostas do client por ID de submissão.
//
// Uma resposta pode chegar antes do Wait correspondente (QueueFull sai na hora);
// nesse caso fica estacionada até parkTTL. Depois disso é descartada.
type Router struct {
	logger logr.Logger

	mu      sync.Mutex
	waiters map[string]chan domain.Response
	parked  *ttlcache.Cache[string, domain.Response]
	closed  bool
}

func NewRouter(logger logr.Logger, parkTTL time.Duration) *Router {
	if parkTTL <= 0 {
		parkTTL = DefaultParkTTL
	}
	r := &Router{
		logger:  logger,
		waiters: make(map[string]chan domain.Response),
		parked: ttlcache.New(
			ttlcache.WithTTL[string, domain.Response](parkTTL),
			ttlcache.WithDisableTouchOnHit[string, domain.Response](),
		),
	}
	r.parked.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, domain.Response]) {
		if reason == ttlcache.EvictionReasonExpired {
			r.logger.Info("dropping unclaimed response", "id", item.Key(), "priority", item.Value().Priority)
		}
	})
	return r
}

// Run consome in até ele fechar ou ctx encerrar. Chamar uma vez só.
// Ao sair, todos os Wait pendentes recebem domain.ErrStreamClosed.
func (r *Router) Run(ctx context.Context, in <-chan domain.Response) error {
	go r.parked.Start()
	defer r.parked.Stop()
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp, ok := <-in:
			if !ok {
				return domain.ErrStreamClosed
			}
			r.deliver(resp)
		}
	}
}

func (r *Router) deliver(resp domain.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.waiters[resp.ID]; ok {
		delete(r.waiters, resp.ID)
		ch <- resp
		return
	}
	r.logger.V(1).Info("parking response without waiter", "id", resp.ID)
	r.parked.Set(resp.ID, resp, ttlcache.DefaultTTL)
}

func (r *Router) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, ch := range r.waiters {
		close(ch)
		delete(r.waiters, id)
	}
}

// Wait bloqueia até a resposta de id chegar ou ctx encerrar.
func (r *Router) Wait(ctx context.Context, id string) (domain.Response, error) {
	r.mu.Lock()
	if item := r.parked.Get(id); item != nil {
		r.parked.Delete(id)
		r.mu.Unlock()
		return item.Value(), nil
	}
	if r.closed {
		r.mu.Unlock()
		return domain.Response{}, domain.ErrStreamClosed
	}
	ch := make(chan domain.Response, 1)
	r.waiters[id] = ch
	r.mu.Unlock()

	select {
	case resp, ok := <-ch:
		if !ok {
			return domain.Response{}, domain.ErrStreamClosed
		}
		return resp, nil
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.waiters, id)
		r.mu.Unlock()
		select {
		case resp, ok := <-ch:
			if ok {
				return resp, nil
			}
		default:
		}
		return domain.Response{}, ctx.Err()
	}
}

// Pending retorna quantos Wait estão esperando.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
