// Package analyzer fornece o cliente da API de análise de comentários com pacing,
// prioridade e controle de admissão.
//
// Visão geral (camadas):
//
//   - domain: modelo de request/response, prioridade, erros e contratos (sem net/http)
//   - application: o worker do dispatcher (tiers, pacer, shutdown)
//   - infra: implementações concretas (HTTPCaller, stats em memória/Redis/Prometheus)
//   - analyzer (este pacote): Client (submit/receive/close) + Config + wiring
//
// Fluxo:
//
//  1. Client.Submit coloca a submissão no channel de controle
//  2. O worker aceita no tier da prioridade e dispara a chamada remota na hora
//     (ou responde QueueFull se o tier está cheio)
//  3. A cada tick do pacer, no máximo uma resposta pronta é liberada (High antes de
//     Normal antes de Low, FIFO dentro do tier)
//  4. Client.Recv (ou Responses/TakeReceiver) entrega as respostas na ordem de liberação
//
// Close abandona o trabalho pendente: chamadas em voo são canceladas e não geram resposta.
package analyzer
