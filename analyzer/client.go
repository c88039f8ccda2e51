package analyzer

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"perspective-gateway/analyzer/application"
	"perspective-gateway/analyzer/domain"
	"perspective-gateway/analyzer/infra"
)

// Client é o handle do chamador: dono do worker do dispatcher.
//
// Submit pode ser chamado de várias goroutines. Só um consumidor deve receber
// por vez (Recv, TakeReceiver ou Responses).
type Client struct {
	submissions chan application.Submission
	responses   chan domain.Response
	dispatcher  *application.Dispatcher
	clock       clock.PassiveClock
	logger      logr.Logger

	mu    sync.Mutex
	taken bool

	cancel    context.CancelFunc
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New valida cfg e inicia o worker. Sem WithCaller, usa infra.HTTPCaller
// apontando para cfg.Endpoint com cfg.APIKey.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analyzer: invalid config: %w", err)
	}

	o := options{logger: logr.Discard(), clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}
	if o.caller == nil {
		var callerOpts []infra.HTTPCallerOption
		if o.httpClient != nil {
			callerOpts = append(callerOpts, infra.WithHTTPClient(o.httpClient))
		} else {
			callerOpts = append(callerOpts, infra.WithHTTPTimeout(cfg.HTTPTimeout))
		}
		callerOpts = append(callerOpts, infra.WithEndpoint(cfg.Endpoint), infra.WithTracer(o.tracer))
		o.caller = infra.NewHTTPCaller(cfg.APIKey, callerOpts...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		submissions: make(chan application.Submission, cfg.RequestBufferSize),
		responses:   make(chan domain.Response, cfg.ResponseBufferSize),
		dispatcher: &application.Dispatcher{
			Caller:         o.caller,
			Stats:          o.stats,
			Logger:         o.logger.WithName("dispatcher"),
			Clock:          o.clock,
			TickRate:       cfg.TickRate,
			MaxQueueSize:   cfg.MaximumQueueSize,
			WorkConserving: cfg.WorkConserving,
			StatsTimeout:   cfg.StatsTimeout,
		},
		clock:  o.clock,
		logger: o.logger,
		cancel: cancel,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func(d *application.Dispatcher, in <-chan application.Submission, out chan<- domain.Response, done chan struct{}) {
		defer close(done)
		d.Run(ctx, in, out)
	}(c.dispatcher, c.submissions, c.responses, c.done)

	// Handle descartado sem Close: o worker não referencia c, então o GC consegue
	// coletá-lo e o cleanup derruba o worker.
	runtime.AddCleanup(c, func(cancel context.CancelFunc) { cancel() }, cancel)

	return c, nil
}

// Submit enfileira req para despacho e retorna o ID da submissão (o mesmo de Response.ID).
//
// Não espera a chamada remota. Só bloqueia enquanto o channel de controle estiver cheio;
// nesse caso respeita ctx.
func (c *Client) Submit(ctx context.Context, priority domain.Priority, req domain.Request) (string, error) {
	if !priority.Valid() {
		return "", fmt.Errorf("analyzer: invalid priority %d", int(priority))
	}
	select {
	case <-c.closed:
		return "", domain.ErrClientClosed
	default:
	}

	sub := application.Submission{
		ID:          uuid.NewString(),
		Priority:    priority,
		Request:     req,
		SubmittedAt: c.clock.Now(),
	}
	select {
	case c.submissions <- sub:
		c.logger.V(1).Info("submitted request", "id", sub.ID, "priority", priority)
		return sub.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.closed:
		return "", domain.ErrClientClosed
	}
}

// Recv devolve a próxima resposta liberada pelo dispatcher.
//
// Retorna ErrStreamClosed quando o worker parou. Se o receptor já foi entregue
// (TakeReceiver/Responses), devolve uma Response com ErrReceiverUnavailable.
func (c *Client) Recv(ctx context.Context) (domain.Response, error) {
	c.mu.Lock()
	taken := c.taken
	c.mu.Unlock()
	if taken {
		return domain.Response{Err: domain.ErrReceiverUnavailable}, nil
	}

	select {
	case resp, ok := <-c.responses:
		if !ok {
			return domain.Response{}, domain.ErrStreamClosed
		}
		return resp, nil
	case <-ctx.Done():
		return domain.Response{}, ctx.Err()
	}
}

// TakeReceiver entrega o channel de saída a um único consumidor.
// A segunda chamada retorna false.
func (c *Client) TakeReceiver() (<-chan domain.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taken {
		return nil, false
	}
	c.taken = true
	return c.responses, true
}

// Responses expõe o channel de saída como sequência. Pode ser percorrida de novo
// depois de um break: continua de onde parou. Marca o receptor como entregue.
func (c *Client) Responses(ctx context.Context) iter.Seq[domain.Response] {
	c.mu.Lock()
	c.taken = true
	ch := c.responses
	c.mu.Unlock()

	return func(yield func(domain.Response) bool) {
		for {
			select {
			case resp, ok := <-ch:
				if !ok || !yield(resp) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// Done fecha quando o worker terminou.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close sinaliza o shutdown e espera o worker sair. Trabalho pendente é abandonado.
// Pode ser chamado mais de uma vez.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
	<-c.done
	return nil
}
