package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/KafClaw/thoughthub/internal/hub"
)

const maxRequestLine = 4 << 20

// request is one JSON line on stdin.
type request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	AgentID string          `json:"agentId,omitempty"`
	Op      string          `json:"op"`
	Args    map[string]any  `json:"args,omitempty"`
}

// response is one JSON line on stdout. Exactly one of Result and Error is set.
type response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toWireError(err error) *wireError {
	var he *hub.Error
	if errors.As(err, &he) {
		return &wireError{Kind: string(he.Kind), Message: he.Error()}
	}
	return &wireError{Kind: "InternalError", Message: err.Error()}
}

// serveStdio reads requests from in until EOF or ctx is done and writes one
// response per request to out. Requests run concurrently so a pending
// hub_wait never blocks later lines; clients correlate by id.
func serveStdio(ctx context.Context, h *hub.Hub, defaultAgent string, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), maxRequestLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	enc := json.NewEncoder(out)
	write := func(r response) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(r); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var req request
			if err := json.Unmarshal(line, &req); err != nil {
				write(response{Error: &wireError{Kind: string(hub.KindValidation), Message: "Malformed request: " + err.Error()}})
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				write(handleRequest(ctx, h, defaultAgent, req))
			}()
		}
	}
}

func handleRequest(ctx context.Context, h *hub.Hub, defaultAgent string, req request) response {
	agentID := req.AgentID
	if agentID == "" {
		agentID = defaultAgent
	}
	res, err := h.Handle(ctx, agentID, req.Op, req.Args)
	if err != nil {
		return response{ID: req.ID, Error: toWireError(err)}
	}
	return response{ID: req.ID, Result: res}
}
