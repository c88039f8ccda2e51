package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"perspective-gateway/analyzer"
	"perspective-gateway/analyzer/domain"
)

type lineOptions struct {
	priority   domain.Priority
	attributes []domain.Attribute
	languages  []domain.LanguageCode
}

// lineResult é uma linha do stdout.
type lineResult struct {
	ID       string                       `json:"id"`
	Priority string                       `json:"priority"`
	Text     string                       `json:"text"`
	Scores   map[domain.Attribute]float64 `json:"scores,omitempty"`
	Error    string                       `json:"error,omitempty"`
}

// analyzeLines envia cada linha não vazia de in e escreve uma lineResult por
// resposta em out. Termina quando todas as submissões aceitas tiverem resposta.
func analyzeLines(ctx context.Context, client *analyzer.Client, in io.Reader, out, errOut io.Writer, opts lineOptions) error {
	responses, ok := client.TakeReceiver()
	if !ok {
		return domain.ErrReceiverUnavailable
	}

	var texts sync.Map
	submitted := make(chan int, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n := 0
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), domain.MaxCommentBytes+1)
		for sc.Scan() {
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			req, err := buildRequest(text, opts)
			if err != nil {
				fmt.Fprintf(errOut, "skipping line: %v\n", err)
				continue
			}
			id, err := client.Submit(gctx, opts.priority, req)
			if err != nil {
				return err
			}
			texts.Store(id, text)
			n++
		}
		submitted <- n
		return sc.Err()
	})
	g.Go(func() error {
		enc := json.NewEncoder(out)
		total, got := -1, 0
		pending := submitted
		for total < 0 || got < total {
			select {
			case n := <-pending:
				total, pending = n, nil
			case resp, ok := <-responses:
				if !ok {
					return domain.ErrStreamClosed
				}
				got++
				text, _ := texts.LoadAndDelete(resp.ID)
				s, _ := text.(string)
				if err := enc.Encode(toLineResult(resp, s)); err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	return g.Wait()
}

func buildRequest(text string, opts lineOptions) (domain.Request, error) {
	b := domain.NewRequestBuilder(text).Languages(opts.languages...)
	for _, a := range opts.attributes {
		b.Attribute(a, domain.AttributeOptions{})
	}
	return b.Build()
}

func toLineResult(resp domain.Response, text string) lineResult {
	r := lineResult{ID: resp.ID, Priority: resp.Priority.String(), Text: text}
	if resp.Err != nil {
		r.Error = resp.Err.Error()
		return r
	}
	r.Scores = make(map[domain.Attribute]float64, len(resp.Result.AttributeScores))
	for a, s := range resp.Result.AttributeScores {
		r.Scores[a] = s.SummaryScore.Value
	}
	return r
}
