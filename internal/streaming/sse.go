package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"media-inspector/internal/logging"
)

// EventStream writes Server-Sent Events. Each event is a single
// "data: <json>" line followed by a blank line.
type EventStream struct {
	tw     *TimeoutWriter
	events int
}

// NewEventStream sets the SSE response headers, writes the status line and
// returns a stream bound to the request context.
func NewEventStream(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *EventStream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &EventStream{tw: NewTimeoutWriter(ctx, w, config)}
}

// Send encodes v as JSON and writes it as one event.
func (s *EventStream) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")

	if _, err := s.tw.Write(buf.Bytes()); err != nil {
		return err
	}
	s.events++
	return nil
}

// Heartbeat writes an SSE comment line. Clients ignore it but it keeps
// proxies from closing a quiet connection.
func (s *EventStream) Heartbeat() error {
	_, err := s.tw.Write([]byte(": keep-alive\n\n"))
	return err
}

// Done is closed when the client disconnects.
func (s *EventStream) Done() <-chan struct{} {
	return s.tw.Done()
}

// Close releases the stream and logs a summary.
func (s *EventStream) Close() {
	if err := s.tw.Close(); err != nil {
		logging.Warn("Failed to close event stream: %v", err)
	}
	bytesWritten, duration := s.tw.Stats()
	logging.Debug("Event stream closed: %d events, %d bytes in %v", s.events, bytesWritten, duration.Round(time.Millisecond))
}
