// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - HTTPCaller: domain.Caller sobre net/http + JSON, com span OpenTelemetry por chamada
//   - MemoryStatsStore / RedisStatsStore / PrometheusStatsStore: domain.StatsStore
//   - MultiStatsStore: fan-out para vários StatsStore
package infra
