package application

import (
	"container/list"
	"errors"
)

var errTierFull = errors.New("tier full")

// tier é a fila FIFO de chamadas em voo de uma prioridade, limitada por capacity.
//
// Só o head é elegível para sair: uma chamada lenta na frente segura as de trás,
// mesmo que já tenham terminado. Isso preserva a ordem de submissão dos resultados
// dentro do tier.
type tier struct {
	calls    *list.List
	capacity int
}

func newTier(capacity int) *tier {
	return &tier{calls: list.New(), capacity: capacity}
}

func (t *tier) len() int   { return t.calls.Len() }
func (t *tier) full() bool { return t.calls.Len() >= t.capacity }

func (t *tier) pushBack(f *inFlight) error {
	if t.full() {
		return errTierFull
	}
	t.calls.PushBack(f)
	return nil
}

// head retorna o primeiro elemento sem removê-lo.
func (t *tier) head() (*inFlight, bool) {
	e := t.calls.Front()
	if e == nil {
		return nil, false
	}
	return e.Value.(*inFlight), true
}

// popFrontIfReady remove o head apenas se a chamada já terminou.
func (t *tier) popFrontIfReady() (*inFlight, bool) {
	f, ok := t.head()
	if !ok || !f.ready() {
		return nil, false
	}
	t.calls.Remove(t.calls.Front())
	return f, true
}
