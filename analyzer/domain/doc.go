// Package domain define os tipos e contratos do dispatcher de análise de comentários.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Aqui ficam o modelo de request/response da API (campos JSON no formato do wire),
// a prioridade de submissão, a taxonomia de erros e as interfaces Caller e StatsStore
// que as camadas application e infra implementam/consomem.
package domain
