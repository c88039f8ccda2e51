package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"perspective-gateway/analyzer/domain"
)

const (
	AnalyzePath = "/v1/comments:analyze"
	HealthPath  = "/healthz"

	PriorityHeader = "X-Priority"
)

// Submitter é o que o handler precisa do analyzer.Client.
type Submitter interface {
	Submit(ctx context.Context, priority domain.Priority, req domain.Request) (string, error)
}

type HandlerOptions struct {
	Router *Router
	// ResponseTimeout limita a espera pela liberação da resposta (504 depois disso).
	ResponseTimeout time.Duration
	// RetryAfter vai no header das respostas 503 de fila cheia.
	RetryAfter   time.Duration
	MaxBodyBytes int64
	Logger       logr.Logger
}

type analyzeReply struct {
	ID       string                  `json:"id"`
	Priority string                  `json:"priority"`
	Result   *domain.AnalyzeResponse `json:"result,omitempty"`
	Error    *replyError             `json:"error,omitempty"`
}

type replyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type handler struct {
	client Submitter
	opts   HandlerOptions
}

// NewHandler monta as rotas do gateway. opts.Router precisa estar rodando
// sobre o receptor do mesmo client.
func NewHandler(client Submitter, opts HandlerOptions) http.Handler {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = time.Minute
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	h := &handler{client: client, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+AnalyzePath, h.analyze)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func requestPriority(r *http.Request) (domain.Priority, error) {
	raw := strings.TrimSpace(r.Header.Get(PriorityHeader))
	if raw == "" {
		raw = r.URL.Query().Get("priority")
	}
	return domain.ParsePriority(raw)
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	priority, err := requestPriority(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", priority, err)
		return
	}

	var req domain.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", priority, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "", priority, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.ResponseTimeout)
	defer cancel()

	id, err := h.client.Submit(ctx, priority, req)
	if err != nil {
		h.opts.Logger.Error(err, "submit failed", "priority", priority)
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, "", priority, err)
		return
	}

	resp, err := h.opts.Router.Wait(ctx, id)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.opts.Logger.V(1).Info("gave up waiting for response", "id", id, "err", err.Error())
		writeError(w, status, id, priority, err)
		return
	}

	if resp.Err != nil {
		status := statusFor(resp.Err)
		if errors.Is(resp.Err, domain.ErrQueueFull) {
			w.Header().Set("Retry-After", retryAfterSeconds(h.opts.RetryAfter))
		}
		writeError(w, status, id, resp.Priority, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeReply{ID: id, Priority: resp.Priority.String(), Result: resp.Result})
}

// statusFor traduz o erro de uma resposta liberada em status HTTP.
func statusFor(err error) int {
	var remote *domain.RemoteError
	switch {
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrClientClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		if remote.Code >= 400 && remote.Code < 500 {
			return remote.Code
		}
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, id string, priority domain.Priority, err error) {
	re := &replyError{Code: status, Message: err.Error()}
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		re.Status = remote.Status
	}
	writeJSON(w, status, analyzeReply{ID: id, Priority: priority.String(), Error: re})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
