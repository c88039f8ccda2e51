// fake-analyzer imita o método analyze da API Perspective para testes locais do gateway.
package main

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"perspective-gateway/analyzer/domain"
)

func main() {
	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()
	logger := zapr.NewLogger(zl)

	addr := getenvDefault("LISTEN_ADDR", ":8081")
	latency := 200 * time.Millisecond
	if v := os.Getenv("FAKE_LATENCY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			latency = d
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newFakeHandler(latency, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("fake analyzer listening", "addr", addr, "latency", latency)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "server error")
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newFakeHandler(latency time.Duration, logger logr.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1alpha1/comments:analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			writeAPIError(w, http.StatusForbidden, "Method doesn't allow unregistered callers.", "PERMISSION_DENIED")
			return
		}
		var req domain.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "Invalid JSON payload received.", "INVALID_ARGUMENT")
			return
		}
		if strings.TrimSpace(req.Comment.Text) == "" {
			writeAPIError(w, http.StatusBadRequest, "Comment must be non-empty.", "INVALID_ARGUMENT")
			return
		}
		if len(req.RequestedAttributes) == 0 {
			writeAPIError(w, http.StatusBadRequest, "Must request at least one attribute.", "INVALID_ARGUMENT")
			return
		}

		select {
		case <-time.After(latency):
		case <-r.Context().Done():
			return
		}

		resp := domain.AnalyzeResponse{
			AttributeScores: make(map[domain.Attribute]domain.AttributeScores, len(req.RequestedAttributes)),
			Languages:       req.Languages,
			ClientToken:     req.ClientToken,
		}
		if len(resp.Languages) == 0 {
			resp.Languages = []domain.LanguageCode{domain.English}
		}
		for a := range req.RequestedAttributes {
			resp.AttributeScores[a] = domain.AttributeScores{
				SummaryScore: domain.Score{Value: fakeScore(req.Comment.Text, a), Type: domain.Probability},
			}
		}
		logger.V(1).Info("scored comment", "bytes", len(req.Comment.Text), "attributes", len(req.RequestedAttributes))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

// fakeScore é determinístico: mesmo texto e atributo, mesmo valor em [0, 1).
func fakeScore(text string, a domain.Attribute) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(a))
	_, _ = h.Write([]byte(text))
	return float64(h.Sum32()%1000) / 1000
}

func writeAPIError(w http.ResponseWriter, code int, message, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]domain.RemoteError{
		"error": {Code: code, Message: message, Status: status},
	})
}
