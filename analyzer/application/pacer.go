package application

import (
	"time"

	"k8s.io/utils/clock"
)

// Pacer dispara em intervalo fixo. Cada disparo autoriza liberar no máximo uma
// resposta somando todos os tiers.
//
// O relógio é injetado para que os testes controlem os ticks (testclock.FakeClock).
type Pacer struct {
	ticker clock.Ticker
}

func NewPacer(clk clock.WithTicker, every time.Duration) *Pacer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Pacer{ticker: clk.NewTicker(every)}
}

func (p *Pacer) C() <-chan time.Time { return p.ticker.C() }

func (p *Pacer) Stop() { p.ticker.Stop() }
