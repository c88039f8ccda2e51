package domain

import (
	"errors"
	"fmt"
)

// Erros locais do dispatcher/cliente.
var (
	// ErrQueueFull é sintetizado quando o tier está cheio no momento da submissão.
	// O request nunca chega ao Caller.
	ErrQueueFull = errors.New("analyzer: queue full")
	// ErrReceiverUnavailable: o receptor já foi entregue via TakeReceiver.
	ErrReceiverUnavailable = errors.New("analyzer: receiver taken")
	// ErrStreamClosed: o worker parou e o canal de saída foi fechado.
	ErrStreamClosed = errors.New("analyzer: response stream closed")
	// ErrClientClosed: Submit depois de Close.
	ErrClientClosed = errors.New("analyzer: client closed")
)

// Categorias para errors.Is sobre os erros tipados abaixo.
var (
	ErrTransport = errors.New("analyzer: transport failure")
	ErrDecode    = errors.New("analyzer: decode failure")
	ErrRemote    = errors.New("analyzer: remote error")
)

// TransportError: a troca HTTP não completou (DNS, conexão, timeout, leitura do corpo).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// DecodeError: o corpo não tinha o formato esperado. Body guarda o corpo cru para diagnóstico.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string { return "json error: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// RemoteError é o erro estruturado devolvido pela API:
//
//	{"error": {"code": 400, "message": "API key not valid...", "status": "INVALID_ARGUMENT"}}
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *RemoteError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("api error: %d %s: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error: %d: %s", e.Code, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
