// Package gateway expõe o analyzer.Client por HTTP.
//
// Peças:
//
//   - NewHandler: POST /v1/comments:analyze e GET /healthz
//   - Router: consome o receptor do client e entrega cada resposta ao handler que a espera
//   - RateLimit: token bucket por chave (IP/header/XFF), 429 quando bloqueia
//   - ConcurrencyLimit: teto de requests esperando resposta ao mesmo tempo, 503 quando esgota
//
// Fluxo de uma request:
//
//  1. RateLimit decide pela chave do cliente
//  2. ConcurrencyLimit reserva uma vaga
//  3. o handler faz Submit e espera o ID no Router
//  4. a resposta liberada pelo pacer vira 200 ou um status de erro
//
// O binário cmd/gateway lê a configuração de variáveis de ambiente.
package gateway
