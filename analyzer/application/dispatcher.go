package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"perspective-gateway/analyzer/domain"
)

// Submission é a mensagem que o Client Handle coloca no channel de controle.
type Submission struct {
	ID          string
	Priority    domain.Priority
	Request     domain.Request
	SubmittedAt time.Time
}

// State do worker, exposto só para diagnóstico/testes.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

const (
	defaultStatsTimeout = 250 * time.Millisecond
	defaultStatsBuffer  = 1024
)

// Dispatcher concentra a regra de pacing/prioridade/admissão.
//
// Ele não sabe nada sobre HTTP: recebe um domain.Caller que faz a chamada remota.
type Dispatcher struct {
	Caller       domain.Caller
	Stats        domain.StatsStore
	Logger       logr.Logger
	Clock        clock.WithTicker
	TickRate     time.Duration
	MaxQueueSize int
	// WorkConserving deixa o tick seguir para o próximo tier quando o head de um
	// tier não vazio ainda está pendente. Desligado, o tick para ali.
	WorkConserving bool
	StatsTimeout   time.Duration
	// StatsBuffer limita os eventos esperando o recorder; o excedente é descartado.
	StatsBuffer int

	state        atomic.Int32
	statsEvents  chan domain.StatsEvent
	statsDropped atomic.Int64
}

func (d *Dispatcher) State() State { return State(d.state.Load()) }

// StatsDropped conta eventos de stats descartados com o buffer cheio.
func (d *Dispatcher) StatsDropped() int64 { return d.statsDropped.Load() }

// Run é o loop do worker e deve rodar em uma goroutine própria. Fecha out ao sair.
//
// Cada iteração executa exatamente um ramo:
//   - ctx cancelado: sai na hora; chamadas enfileiradas e em voo são abandonadas
//     (o ctx delas é derivado deste e é cancelado junto)
//   - tick do pacer: libera no máximo uma resposta pronta, High -> Normal -> Low
//   - submissão: inicia a chamada e enfileira, ou responde QueueFull se o tier está cheio
func (d *Dispatcher) Run(ctx context.Context, in <-chan Submission, out chan<- domain.Response) {
	d.state.Store(int32(StateRunning))
	defer d.state.Store(int32(StateStopped))
	defer close(out)

	if d.Logger.GetSink() == nil {
		d.Logger = logr.Discard()
	}
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	if d.Stats != nil {
		size := d.StatsBuffer
		if size <= 0 {
			size = defaultStatsBuffer
		}
		d.statsEvents = make(chan domain.StatsEvent, size)
		defer close(d.statsEvents)
		go d.drainStats(context.WithoutCancel(ctx), d.statsEvents)
	}

	tiers := make(map[domain.Priority]*tier, 3)
	for _, p := range domain.Priorities() {
		tiers[p] = newTier(d.MaxQueueSize)
	}

	pacer := NewPacer(d.Clock, d.TickRate)
	defer pacer.Stop()

	d.Logger.Info("dispatcher loop starting", "tickRate", d.TickRate, "maxQueueSize", d.MaxQueueSize)
	defer d.Logger.Info("dispatcher loop stopped")

	for {
		// Shutdown tem precedência quando vários casos estão prontos.
		if ctx.Err() != nil {
			d.state.Store(int32(StateDraining))
			return
		}

		select {
		case <-ctx.Done():
			d.state.Store(int32(StateDraining))
			d.Logger.Info("shutdown signaled, abandoning queued calls", "pending", pending(tiers))
			return

		case <-pacer.C():
			f, ok := d.nextReady(tiers)
			if !ok {
				continue
			}
			d.Logger.V(1).Info("releasing response", "id", f.id, "priority", f.priority)
			d.record(domain.StatsEvent{
				ID: f.id, Priority: f.priority, Outcome: domain.OutcomeReleased,
				Failed: f.resp.Err != nil, Depth: tiers[f.priority].len(),
				Latency: d.Clock.Since(f.started),
			})
			d.forward(ctx, out, f.resp)

		case sub, ok := <-in:
			if !ok {
				// Sem mais submissões; segue liberando o que já está nos tiers.
				in = nil
				continue
			}
			d.admit(ctx, tiers[sub.Priority], sub, out)
		}
	}
}

// nextReady escolhe a resposta a liberar neste tick.
func (d *Dispatcher) nextReady(tiers map[domain.Priority]*tier) (*inFlight, bool) {
	for _, p := range domain.Priorities() {
		t := tiers[p]
		if t.len() == 0 {
			continue
		}
		if f, ok := t.popFrontIfReady(); ok {
			return f, true
		}
		if !d.WorkConserving {
			return nil, false
		}
	}
	return nil, false
}

func (d *Dispatcher) admit(ctx context.Context, t *tier, sub Submission, out chan<- domain.Response) {
	log := d.Logger.WithValues("id", sub.ID, "priority", sub.Priority)
	if t == nil {
		// Prioridade fora do intervalo; o Client Handle já valida, isto é só proteção do loop.
		log.Error(nil, "unknown priority, rejecting submission")
		d.forward(ctx, out, domain.Response{ID: sub.ID, Priority: sub.Priority, Err: domain.ErrQueueFull})
		return
	}

	if t.full() {
		log.V(1).Info("queue is full")
		d.record(domain.StatsEvent{
			ID: sub.ID, Priority: sub.Priority, Outcome: domain.OutcomeRejected,
			Failed: true, Depth: t.len(),
		})
		d.forward(ctx, out, domain.Response{ID: sub.ID, Priority: sub.Priority, Err: domain.ErrQueueFull})
		return
	}

	f := startCall(ctx, d.Caller, sub, d.Clock.Now(), func(f *inFlight) {
		// Roda na goroutine da chamada, fora do loop.
		d.recordNow(ctx, domain.StatsEvent{
			ID: f.id, Priority: f.priority, Outcome: domain.OutcomeCompleted,
			Failed: f.resp.Err != nil, Latency: d.Clock.Since(f.started),
		})
	})
	// full() foi checado acima e só esta goroutine adiciona.
	_ = t.pushBack(f)
	log.V(1).Info("received request", "depth", t.len())
	d.record(domain.StatsEvent{
		ID: sub.ID, Priority: sub.Priority, Outcome: domain.OutcomeAccepted, Depth: t.len(),
	})
}

// forward entrega a resposta no canal de saída. Se o shutdown chegar antes,
// a resposta é descartada e logada; nunca derruba o loop.
func (d *Dispatcher) forward(ctx context.Context, out chan<- domain.Response, resp domain.Response) {
	select {
	case out <- resp:
	case <-ctx.Done():
		d.Logger.Error(ctx.Err(), "failed to send response", "id", resp.ID, "priority", resp.Priority)
		d.record(domain.StatsEvent{
			ID: resp.ID, Priority: resp.Priority, Outcome: domain.OutcomeDropped, Failed: resp.Err != nil,
		})
	}
}

// record entrega o evento ao recorder sem bloquear o loop.
func (d *Dispatcher) record(ev domain.StatsEvent) {
	if d.statsEvents == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = d.Clock.Now()
	}
	select {
	case d.statsEvents <- ev:
	default:
		d.statsDropped.Add(1)
		d.Logger.V(1).Info("stats buffer full, dropping event", "id", ev.ID, "outcome", ev.Outcome)
	}
}

// drainStats grava os eventos do loop até o channel fechar.
func (d *Dispatcher) drainStats(ctx context.Context, events <-chan domain.StatsEvent) {
	for ev := range events {
		d.recordNow(ctx, ev)
	}
}

// recordNow chama o StatsStore com timeout. Nunca chamar da goroutine do loop.
func (d *Dispatcher) recordNow(ctx context.Context, ev domain.StatsEvent) {
	if d.Stats == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = d.Clock.Now()
	}
	timeout := d.StatsTimeout
	if timeout <= 0 {
		timeout = defaultStatsTimeout
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := d.Stats.Record(rctx, ev); err != nil {
		d.Logger.Error(err, "failed to record stats", "id", ev.ID, "outcome", ev.Outcome)
	}
}

func pending(tiers map[domain.Priority]*tier) int {
	n := 0
	for _, t := range tiers {
		n += t.len()
	}
	return n
}
