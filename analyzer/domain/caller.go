package domain

import "context"

// Caller executa exatamente uma chamada remota para um Request.
//
// Não deve fazer retry: falhas voltam como *TransportError, *DecodeError ou *RemoteError.
// O ctx é cancelado quando o dispatcher desliga; a implementação deve respeitá-lo.
type Caller interface {
	Call(ctx context.Context, req Request) (*AnalyzeResponse, error)
}

// CallerFunc adapta uma função para Caller.
type CallerFunc func(ctx context.Context, req Request) (*AnalyzeResponse, error)

func (f CallerFunc) Call(ctx context.Context, req Request) (*AnalyzeResponse, error) {
	return f(ctx, req)
}
