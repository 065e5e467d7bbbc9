package api

import (
	"batchgen/internal/collect"
	"batchgen/internal/types"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// GenerateRequest is the body of POST /api/generate-seeds. Numbers may be
// sent as JSON numbers or numeric strings.
type GenerateRequest struct {
	Iterations json.RawMessage `json:"iterations"`
	Count      json.RawMessage `json:"count"`
	Stream     json.RawMessage `json:"stream"`
}

// GenerateResponse is the non-streaming reply.
type GenerateResponse struct {
	Success   bool               `json:"success"`
	TestCases []collect.TestCase `json:"testCases,omitempty"`
	OutputDir string             `json:"outputDir,omitempty"`
	Error     string             `json:"error,omitempty"`
	Details   string             `json:"details,omitempty"`
}

// StreamEvent is one server-sent event. Only the fields relevant to Type are set.
type StreamEvent struct {
	Type      string             `json:"type"`
	Current   int                `json:"current,omitempty"`
	Total     int                `json:"total,omitempty"`
	Progress  *int               `json:"progress,omitempty"`
	Case      int                `json:"case,omitempty"`
	Message   string             `json:"message,omitempty"`
	Success   *bool              `json:"success,omitempty"`
	TestCases []collect.TestCase `json:"testCases,omitempty"`
	OutputDir string             `json:"outputDir,omitempty"`
	Error     string             `json:"error,omitempty"`
	Details   string             `json:"details,omitempty"`
}

type generateParams struct {
	iterations int
	count      int
	stream     bool
}

// handleHealth reports that the server accepts requests
func handleHealth(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("received health check request")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}

// handleGenerateSeeds runs a batch and answers with JSON or an SSE stream
func handleGenerateSeeds(service *GenerateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		params, err := parseGenerateRequest(r.Body, service.defaultIters, service.defaultCount)
		if err != nil {
			logger.Warn("invalid generate request", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, GenerateResponse{Error: "Invalid request", Details: err.Error()})
			return
		}

		release, err := service.Acquire()
		if err != nil {
			logger.Warn("rejected concurrent generate request")
			writeJSON(w, http.StatusConflict, GenerateResponse{Error: err.Error()})
			return
		}
		defer release()

		logger.Info("received generate request",
			zap.Int("count", params.count),
			zap.Int("iterations", params.iterations),
			zap.Bool("stream", params.stream),
		)

		if params.stream {
			streamGenerate(r.Context(), w, service, params, logger)
			return
		}

		result, err := service.Generate(r.Context(), params.iterations, params.count, nil)
		if err != nil {
			logger.Error("seed generation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, GenerateResponse{Error: err.Error(), Details: failureDetails(result)})
			return
		}
		writeJSON(w, http.StatusOK, GenerateResponse{
			Success:   true,
			TestCases: result.TestCases,
			OutputDir: result.Summary.OutputDir,
		})
	}
}

func streamGenerate(ctx context.Context, w http.ResponseWriter, service *GenerateService, params generateParams, logger *zap.Logger) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sse := newEventStream(w, logger)
	sse.send(StreamEvent{Type: "started"})

	result, err := service.Generate(ctx, params.iterations, params.count, types.ObserverFunc(sse.forward))
	if err != nil {
		logger.Error("seed generation failed", zap.Error(err))
		sse.send(StreamEvent{Type: "error", Error: err.Error(), Details: failureDetails(result)})
		return
	}
	success := true
	sse.send(StreamEvent{
		Type:      "complete",
		Success:   &success,
		TestCases: result.TestCases,
		OutputDir: result.Summary.OutputDir,
		Message:   fmt.Sprintf("Generated %d test cases", len(result.TestCases)),
	})
}

type eventStream struct {
	w       io.Writer
	flusher http.Flusher
	logger  *zap.Logger
}

func newEventStream(w http.ResponseWriter, logger *zap.Logger) *eventStream {
	flusher, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: flusher, logger: logger}
}

func (s *eventStream) send(event StreamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode stream event", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.logger.Debug("client went away", zap.Error(err))
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// forward translates driver events into progress events. case_success is
// sent once the test case folder has been written, so a run whose artifact
// could not be found or copied reports case_error.
func (s *eventStream) forward(_ context.Context, event types.Event) {
	switch event.Type {
	case types.EventCaseStarted:
		progress := 0
		if event.Total > 0 {
			progress = event.Case * 100 / event.Total
		}
		s.send(StreamEvent{
			Type:     "progress",
			Current:  event.Case,
			Total:    event.Total,
			Progress: &progress,
			Message:  fmt.Sprintf("Generating test case %d/%d", event.Case, event.Total),
		})
	case types.EventCaseSucceeded:
		s.send(StreamEvent{Type: "case_success", Case: event.Case, Message: fmt.Sprintf("Test case %d generated successfully", event.Case)})
	case types.EventCaseFailed:
		s.send(StreamEvent{Type: "case_error", Case: event.Case, Message: fmt.Sprintf("Test case %d failed", event.Case)})
	}
}

func parseGenerateRequest(body io.Reader, defaultIters, defaultCount int) (generateParams, error) {
	params := generateParams{iterations: defaultIters, count: defaultCount}
	raw, err := io.ReadAll(body)
	if err != nil {
		return params, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return params, nil
	}

	var req GenerateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return params, fmt.Errorf("malformed JSON: %w", err)
	}
	if params.iterations, err = parseCount("iterations", req.Iterations, defaultIters); err != nil {
		return params, err
	}
	if params.count, err = parseCount("count", req.Count, defaultCount); err != nil {
		return params, err
	}
	params.stream = string(bytes.TrimSpace(req.Stream)) == "true"
	return params, nil
}

// parseCount accepts a JSON number or numeric string. Absent, null, empty and
// zero values mean the default.
func parseCount(field string, raw json.RawMessage, defaultVal int) (int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return defaultVal, nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%s: %w", field, err)
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return defaultVal, nil
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be a whole number, got %s", field, text)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, text)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("%s is too large, got %s", field, text)
	}
	if f == 0 {
		return defaultVal, nil
	}
	return int(f), nil
}

func failureDetails(result *GenerateResult) string {
	if result == nil || result.Summary == nil {
		return ""
	}
	s := result.Summary
	return fmt.Sprintf("Successful: %d/%d, see %s", s.SuccessfulCases, s.Total, s.LogPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
