package infra

import (
	"context"

	"go.uber.org/multierr"

	"perspective-gateway/analyzer/domain"
)

// MultiStatsStore repassa cada evento para todos os stores e junta os erros.
// Um store com falha não impede os demais de registrar.
type MultiStatsStore []domain.StatsStore

func NewMultiStatsStore(stores ...domain.StatsStore) MultiStatsStore {
	out := make(MultiStatsStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Record(ctx, ev))
	}
	return err
}
