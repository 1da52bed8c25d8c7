package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// handleGenerate streams a run as server-sent events. The run is detached
// from the request: a client that disconnects stops receiving events but
// the run still completes and persists its leads.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	req, decodeErr := decodeGenerateRequest(body)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	_ = rc.Flush()

	if decodeErr != nil {
		zap.L().Warn("server: rejecting generate body", zap.Error(decodeErr))
		_ = writeEvent(w, model.Event{Type: model.EventError, Message: decodeErr.Error()})
		_ = rc.Flush()
		return
	}

	queue := progress.NewQueue()
	runCtx := context.WithoutCancel(r.Context())

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer func() {
			if p := recover(); p != nil {
				zap.L().Error("server: generate run panicked", zap.Any("panic", p))
				queue.Emit(model.Event{Type: model.EventError, Message: "Failed to generate leads"})
			}
		}()
		_, _ = s.runner.Run(runCtx, req, queue)
	}()

	events := queue.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				zap.L().Debug("server: event write failed", zap.Error(err))
				go drain(events)
				return
			}
			_ = rc.Flush()
		case <-r.Context().Done():
			zap.L().Info("server: client disconnected, run continues")
			go drain(events)
			return
		}
	}
}

// decodeGenerateRequest parses a generate body. Empty bodies and bodies that
// are not JSON at all run with defaults; JSON whose fields have the wrong
// types is rejected.
func decodeGenerateRequest(body []byte) (model.GenerateRequest, error) {
	var req model.GenerateRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	err := json.Unmarshal(body, &req)
	if err == nil {
		return req, nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		zap.L().Debug("server: generate body is not JSON, using defaults", zap.Error(err))
		return model.GenerateRequest{}, nil
	}
	return model.GenerateRequest{}, eris.Wrap(err, "invalid request")
}

func writeEvent(w io.Writer, ev model.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

func drain(events <-chan model.Event) {
	for range events {
	}
}
