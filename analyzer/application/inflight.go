package application

import (
	"context"
	"time"

	"perspective-gateway/analyzer/domain"
)

// inFlight é uma chamada remota já iniciada. A goroutine da chamada escreve resp
// e fecha done; o worker só lê resp depois de observar done fechado.
type inFlight struct {
	id       string
	priority domain.Priority
	started  time.Time

	done chan struct{}
	resp domain.Response
}

// startCall inicia a chamada imediatamente, sem passar pelo pacer.
// onDone roda na goroutine da chamada depois que done foi fechado.
func startCall(ctx context.Context, caller domain.Caller, sub Submission, now time.Time, onDone func(*inFlight)) *inFlight {
	f := &inFlight{
		id:       sub.ID,
		priority: sub.Priority,
		started:  now,
		done:     make(chan struct{}),
	}
	go func() {
		res, err := caller.Call(ctx, sub.Request)
		f.resp = domain.Response{ID: sub.ID, Priority: sub.Priority, Result: res, Err: err}
		if err != nil {
			f.resp.Result = nil
		}
		close(f.done)
		if onDone != nil {
			onDone(f)
		}
	}()
	return f
}

// ready não bloqueia.
func (f *inFlight) ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
