package domain

import (
	"context"
	"time"
)

// Outcome é o que aconteceu com uma submissão em um ponto do ciclo de vida.
type Outcome string

const (
	// OutcomeAccepted: entrou em um tier e a chamada remota começou.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected: tier cheio, QueueFull sintetizado.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCompleted: a chamada remota terminou (sucesso ou erro), ainda não liberada.
	OutcomeCompleted Outcome = "completed"
	// OutcomeReleased: liberada pelo pacer para o canal de saída.
	OutcomeReleased Outcome = "released"
	// OutcomeDropped: resposta descartada porque o lado de saída fechou.
	OutcomeDropped Outcome = "dropped"
)

// StatsEvent representa um evento do dispatcher.
//
// Depth é o tamanho do tier depois do evento (apenas accepted/released/rejected).
// Failed indica que a resposta carrega erro.
type StatsEvent struct {
	ID       string
	Priority Priority
	Outcome  Outcome
	Failed   bool
	Depth    int
	Latency  time.Duration

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do dispatcher.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O dispatcher trata erro como best-effort (loga e segue).
// Record pode ser chamado concorrentemente (eventos completed vêm das goroutines das chamadas).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
