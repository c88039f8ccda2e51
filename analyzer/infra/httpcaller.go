package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"perspective-gateway/analyzer/domain"
)

// DefaultEndpoint é o método analyze da API Perspective.
const DefaultEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

const tracerName = "perspective-gateway/analyzer/infra"

// HTTPCaller implementa domain.Caller com um POST JSON por request.
//
// Não faz retry: cada Call é exatamente uma troca HTTP.
type HTTPCaller struct {
	client   *http.Client
	endpoint string
	apiKey   string
	tracer   trace.Tracer
}

type HTTPCallerOption func(*HTTPCaller)

func WithHTTPClient(c *http.Client) HTTPCallerOption {
	return func(h *HTTPCaller) {
		if c != nil {
			h.client = c
		}
	}
}

func WithEndpoint(endpoint string) HTTPCallerOption {
	return func(h *HTTPCaller) {
		if s := strings.TrimSpace(endpoint); s != "" {
			h.endpoint = s
		}
	}
}

// WithHTTPTimeout não altera um *http.Client passado em WithHTTPClient: ajusta uma cópia.
func WithHTTPTimeout(d time.Duration) HTTPCallerOption {
	return func(h *HTTPCaller) {
		c := *h.client
		c.Timeout = d
		h.client = &c
	}
}

func WithTracer(t trace.Tracer) HTTPCallerOption {
	return func(h *HTTPCaller) {
		if t != nil {
			h.tracer = t
		}
	}
}

func NewHTTPCaller(apiKey string, opts ...HTTPCallerOption) *HTTPCaller {
	h := &HTTPCaller{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPCaller) Endpoint() string { return h.endpoint }

// rawResponse aceita tanto o corpo de sucesso quanto {"error": {...}}.
type rawResponse struct {
	domain.AnalyzeResponse
	Error *domain.RemoteError `json:"error"`
}

// Call implementa domain.Caller.
func (h *HTTPCaller) Call(ctx context.Context, req domain.Request) (_ *domain.AnalyzeResponse, err error) {
	ctx, span := h.tracer.Start(ctx, "perspective.analyze", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.Int("perspective.attributes", len(req.RequestedAttributes)),
		attribute.Int("perspective.comment_bytes", len(req.Comment.Text)),
	)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	u, err := h.requestURL()
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	return decodeResponse(resp.StatusCode, body)
}

func (h *HTTPCaller) requestURL() (string, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", h.endpoint, err)
	}
	q := u.Query()
	q.Set("key", h.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeResponse(status int, body []byte) (*domain.AnalyzeResponse, error) {
	var raw rawResponse
	decodeErr := json.Unmarshal(body, &raw)

	if decodeErr == nil && raw.Error != nil {
		if raw.Error.Code == 0 {
			raw.Error.Code = status
		}
		return nil, raw.Error
	}

	if status < 200 || status > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &domain.RemoteError{Code: status, Message: msg}
	}

	if decodeErr != nil {
		return nil, &domain.DecodeError{Body: string(body), Err: decodeErr}
	}
	if raw.AttributeScores == nil && raw.Languages == nil {
		return nil, &domain.DecodeError{Body: string(body), Err: errors.New("missing attributeScores and languages")}
	}
	out := raw.AnalyzeResponse
	return &out, nil
}
