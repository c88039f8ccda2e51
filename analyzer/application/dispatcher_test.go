package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"perspective-gateway/analyzer/domain"
)

const (
	tickRate     = time.Second
	waitFor      = time.Second
	pollInterval = 5 * time.Millisecond
	quietPeriod  = 50 * time.Millisecond
)

// fakeCaller responde com ClientToken = texto do comentário. Textos com gate
// registrado só terminam quando o gate é fechado (ou o ctx cancelado).
type fakeCaller struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	fail    map[string]error
	calls   []string
	aborted []string
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

func (c *fakeCaller) gate(text string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := make(chan struct{})
	c.gates[text] = g
	return g
}

func (c *fakeCaller) failWith(text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[text] = err
}

func (c *fakeCaller) Call(ctx context.Context, req domain.Request) (*domain.AnalyzeResponse, error) {
	text := req.Comment.Text
	c.mu.Lock()
	c.calls = append(c.calls, text)
	g := c.gates[text]
	failErr := c.fail[text]
	c.mu.Unlock()

	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			c.mu.Lock()
			c.aborted = append(c.aborted, text)
			c.mu.Unlock()
			return nil, &domain.TransportError{Err: ctx.Err()}
		}
	}
	if failErr != nil {
		return nil, failErr
	}
	return &domain.AnalyzeResponse{ClientToken: text}, nil
}

func (c *fakeCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeCaller) abortedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.aborted)
}

type recordingStats struct {
	mu     sync.Mutex
	events []domain.StatsEvent
}

func (s *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingStats) count(o domain.Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Outcome == o {
			n++
		}
	}
	return n
}

type harness struct {
	t      *testing.T
	clock  *testclock.FakeClock
	caller *fakeCaller
	stats  *recordingStats
	d      *Dispatcher
	in     chan Submission
	out    chan domain.Response
	cancel context.CancelFunc
	done   chan struct{}
}

func newHarness(t *testing.T, maxQueue int, workConserving bool) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  testclock.NewFakeClock(time.Now()),
		caller: newFakeCaller(),
		stats:  &recordingStats{},
		in:     make(chan Submission, 16),
		out:    make(chan domain.Response, 16),
		done:   make(chan struct{}),
	}
	h.d = &Dispatcher{
		Caller:         h.caller,
		Stats:          h.stats,
		Logger:         logr.Discard(),
		Clock:          h.clock,
		TickRate:       tickRate,
		MaxQueueSize:   maxQueue,
		WorkConserving: workConserving,
	}

	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() {
		defer close(h.done)
		h.d.Run(ctx, h.in, h.out)
	}()
	// O ticker precisa estar registrado antes do primeiro Step.
	require.Eventually(t, h.clock.HasWaiters, waitFor, pollInterval, "pacer ticker was not created")

	t.Cleanup(func() {
		h.cancel()
		<-h.done
	})
	return h
}

func (h *harness) submit(p domain.Priority, text string) {
	h.in <- Submission{ID: text, Priority: p, Request: domain.Request{Comment: domain.Comment{Text: text}}}
}

func (h *harness) waitOutcome(o domain.Outcome, n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.stats.count(o) == n }, waitFor, pollInterval,
		"expected %d %s events", n, o)
}

func (h *harness) tick() { h.clock.Step(tickRate) }

func (h *harness) expectResponse() domain.Response {
	h.t.Helper()
	select {
	case resp, ok := <-h.out:
		require.True(h.t, ok, "output closed while waiting for a response")
		return resp
	case <-time.After(waitFor):
		h.t.Fatalf("timeout waiting for response")
		return domain.Response{}
	}
}

func (h *harness) expectNoResponse() {
	h.t.Helper()
	select {
	case resp, ok := <-h.out:
		if ok {
			h.t.Fatalf("expected no response, got %q (err=%v)", resp.ID, resp.Err)
		}
	case <-time.After(quietPeriod):
	}
}

func TestDispatcher_ReleasesAtMostOnePerTickInSubmissionOrder(t *testing.T) {
	h := newHarness(t, 8, false)

	for _, id := range []string{"a", "b", "c"} {
		h.submit(domain.Normal, id)
	}
	h.waitOutcome(domain.OutcomeCompleted, 3)
	h.expectNoResponse()

	var got []string
	for range 3 {
		h.tick()
		resp := h.expectResponse()
		require.NoError(t, resp.Err)
		require.NotNil(t, resp.Result)
		assert.Equal(t, resp.ID, resp.Result.ClientToken)
		got = append(got, resp.ID)
		h.expectNoResponse()
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	h.tick()
	h.expectNoResponse()
}

func TestDispatcher_QueueFullIsImmediateAndSkipsCaller(t *testing.T) {
	h := newHarness(t, 2, false)
	release := h.caller.gate("a")
	h.caller.gate("b")

	h.submit(domain.Normal, "a")
	h.submit(domain.Normal, "b")
	h.submit(domain.Normal, "c")

	// Sem tick nenhum: a rejeição não espera o pacer.
	resp := h.expectResponse()
	assert.Equal(t, "c", resp.ID)
	assert.Equal(t, domain.Normal, resp.Priority)
	assert.ErrorIs(t, resp.Err, domain.ErrQueueFull)
	assert.Nil(t, resp.Result)

	h.waitOutcome(domain.OutcomeAccepted, 2)
	h.waitOutcome(domain.OutcomeRejected, 1)
	assert.Never(t, func() bool { return h.caller.callCount() > 2 }, quietPeriod, pollInterval,
		"rejected request must never reach the caller")

	close(release)
	h.waitOutcome(domain.OutcomeCompleted, 1)
	h.tick()
	assert.Equal(t, "a", h.expectResponse().ID)
}

func TestDispatcher_TiersAreBoundedIndependently(t *testing.T) {
	h := newHarness(t, 1, false)
	h.caller.gate("n1")

	h.submit(domain.Normal, "n1")
	h.submit(domain.Normal, "n2")
	h.submit(domain.High, "h1")

	resp := h.expectResponse()
	assert.Equal(t, "n2", resp.ID)
	assert.ErrorIs(t, resp.Err, domain.ErrQueueFull)

	h.waitOutcome(domain.OutcomeAccepted, 2)
	h.waitOutcome(domain.OutcomeCompleted, 1)
	h.tick()
	assert.Equal(t, "h1", h.expectResponse().ID)
}

func TestDispatcher_FIFOWithinTierDespiteOutOfOrderCompletion(t *testing.T) {
	h := newHarness(t, 4, false)
	releaseA := h.caller.gate("a")

	h.submit(domain.Normal, "a")
	h.submit(domain.Normal, "b")
	h.waitOutcome(domain.OutcomeAccepted, 2)
	h.waitOutcome(domain.OutcomeCompleted, 1) // b

	h.tick()
	h.expectNoResponse()

	close(releaseA)
	h.waitOutcome(domain.OutcomeCompleted, 2)

	h.tick()
	assert.Equal(t, "a", h.expectResponse().ID)
	h.tick()
	assert.Equal(t, "b", h.expectResponse().ID)
}

func TestDispatcher_HighIsReleasedBeforeLow(t *testing.T) {
	h := newHarness(t, 4, false)

	h.submit(domain.Low, "low")
	h.submit(domain.High, "high")
	h.waitOutcome(domain.OutcomeCompleted, 2)

	h.tick()
	first := h.expectResponse()
	assert.Equal(t, "high", first.ID)
	assert.Equal(t, domain.High, first.Priority)
	h.expectNoResponse()

	h.tick()
	second := h.expectResponse()
	assert.Equal(t, "low", second.ID)
	assert.Equal(t, domain.Low, second.Priority)
}

func TestDispatcher_PendingHighHeadBlocksLowerTiersInStrictMode(t *testing.T) {
	h := newHarness(t, 4, false)
	releaseHigh := h.caller.gate("high")

	h.submit(domain.High, "high")
	h.submit(domain.Low, "low")
	h.waitOutcome(domain.OutcomeAccepted, 2)
	h.waitOutcome(domain.OutcomeCompleted, 1)

	h.tick()
	h.expectNoResponse()

	close(releaseHigh)
	h.waitOutcome(domain.OutcomeCompleted, 2)
	h.tick()
	assert.Equal(t, "high", h.expectResponse().ID)
	h.tick()
	assert.Equal(t, "low", h.expectResponse().ID)
}

func TestDispatcher_WorkConservingFallsThroughPendingHead(t *testing.T) {
	h := newHarness(t, 4, true)
	releaseHigh := h.caller.gate("high")

	h.submit(domain.High, "high")
	h.submit(domain.Low, "low")
	h.waitOutcome(domain.OutcomeAccepted, 2)
	h.waitOutcome(domain.OutcomeCompleted, 1)

	h.tick()
	assert.Equal(t, "low", h.expectResponse().ID)

	close(releaseHigh)
	h.waitOutcome(domain.OutcomeCompleted, 2)
	h.tick()
	assert.Equal(t, "high", h.expectResponse().ID)
}

func TestDispatcher_EmptyHigherTiersAreSkipped(t *testing.T) {
	h := newHarness(t, 4, false)

	h.submit(domain.Low, "low")
	h.waitOutcome(domain.OutcomeCompleted, 1)

	h.tick()
	assert.Equal(t, "low", h.expectResponse().ID)
}

func TestDispatcher_FailedCallsAreDeliveredAsData(t *testing.T) {
	h := newHarness(t, 4, false)
	remote := &domain.RemoteError{Code: 400, Status: "INVALID_ARGUMENT", Message: "Comment must be non-empty."}
	h.caller.failWith("bad", remote)

	h.submit(domain.Normal, "bad")
	h.submit(domain.Normal, "good")
	h.waitOutcome(domain.OutcomeCompleted, 2)

	h.tick()
	resp := h.expectResponse()
	assert.Equal(t, "bad", resp.ID)
	assert.ErrorIs(t, resp.Err, domain.ErrRemote)
	assert.Nil(t, resp.Result)

	h.tick()
	resp = h.expectResponse()
	assert.Equal(t, "good", resp.ID)
	assert.NoError(t, resp.Err)
}

func TestDispatcher_ShutdownAbandonsPendingWorkAndClosesOutput(t *testing.T) {
	h := newHarness(t, 4, false)
	h.caller.gate("slow")

	h.submit(domain.Normal, "done")
	h.submit(domain.Normal, "slow")
	h.waitOutcome(domain.OutcomeCompleted, 1)

	h.cancel()
	select {
	case <-h.done:
	case <-time.After(waitFor):
		t.Fatalf("dispatcher did not stop after cancel")
	}
	assert.Equal(t, StateStopped, h.d.State())

	// Nada foi liberado: sem tick antes do shutdown.
	_, ok := <-h.out
	assert.False(t, ok, "expected output channel to be closed without responses")

	require.Eventually(t, func() bool { return h.caller.abortedCount() == 1 }, waitFor, pollInterval,
		"expected in-flight call context to be cancelled")

	h.tick()
	_, ok = <-h.out
	assert.False(t, ok)
}

func TestDispatcher_ClosedInputKeepsReleasing(t *testing.T) {
	h := newHarness(t, 4, false)

	h.submit(domain.Normal, "a")
	h.waitOutcome(domain.OutcomeCompleted, 1)
	close(h.in)

	h.tick()
	assert.Equal(t, "a", h.expectResponse().ID)
	assert.Equal(t, StateRunning, h.d.State())
}

type failingStats struct{}

func (failingStats) Record(context.Context, domain.StatsEvent) error {
	return errors.New("stats backend down")
}

func TestDispatcher_StatsFailuresDoNotStopTheLoop(t *testing.T) {
	clk := testclock.NewFakeClock(time.Now())
	d := &Dispatcher{
		Caller:       newFakeCaller(),
		Stats:        failingStats{},
		Clock:        clk,
		TickRate:     tickRate,
		MaxQueueSize: 1,
	}
	in := make(chan Submission, 1)
	out := make(chan domain.Response, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, in, out)
	require.Eventually(t, clk.HasWaiters, waitFor, pollInterval)

	in <- Submission{ID: "a", Priority: domain.High}
	require.Eventually(t, func() bool {
		clk.Step(tickRate)
		select {
		case resp := <-out:
			return resp.ID == "a"
		default:
			return false
		}
	}, waitFor, 20*time.Millisecond)
}

// stallingStats só retorna quando o ctx do Record encerra.
type stallingStats struct{ calls atomic.Int32 }

func (s *stallingStats) Record(ctx context.Context, _ domain.StatsEvent) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcher_SlowStatsDoNotDelayQueueFull(t *testing.T) {
	clk := testclock.NewFakeClock(time.Now())
	stats := &stallingStats{}
	caller := newFakeCaller()
	caller.gate("a")
	caller.gate("b")
	d := &Dispatcher{
		Caller:       caller,
		Stats:        stats,
		Clock:        clk,
		TickRate:     tickRate,
		MaxQueueSize: 2,
		StatsTimeout: 2 * time.Second,
		StatsBuffer:  1,
	}
	in := make(chan Submission, 3)
	out := make(chan domain.Response, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, in, out)
	require.Eventually(t, clk.HasWaiters, waitFor, pollInterval)

	start := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		in <- Submission{ID: id, Priority: domain.Normal}
	}

	select {
	case resp := <-out:
		assert.Equal(t, "c", resp.ID)
		assert.ErrorIs(t, resp.Err, domain.ErrQueueFull)
		assert.Less(t, time.Since(start), 200*time.Millisecond)
	case <-time.After(waitFor):
		t.Fatalf("QueueFull held back by a stalled stats store")
	}

	// recorder preso no primeiro Record e buffer de 1: algo é descartado.
	require.Eventually(t, func() bool { return stats.calls.Load() == 1 }, waitFor, pollInterval)
	assert.GreaterOrEqual(t, d.StatsDropped(), int64(1))
}
