/*
Package streaming provides timeout-protected streaming for HTTP responses.

Library analysis progress is pushed to browsers as Server-Sent Events over a
connection that can stay open for as long as the analysis runs. A client that
stops reading must not stall the server, so every write goes through a
TimeoutWriter that bounds the write, flushes it, and reports why the stream
ended.

# Usage

	func (h *Handlers) StreamAnalysis(w http.ResponseWriter, r *http.Request) {
		stream := streaming.NewEventStream(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
		defer stream.Close()

		for event := range events {
			if err := stream.Send(event); err != nil {
				return
			}
		}
	}

# Errors

  - ErrClientGone: the request context was canceled (client disconnected)
  - ErrWriteTimeout: a single write exceeded WriteTimeout or MaxDuration elapsed
  - ErrStreamCanceled: the stream was closed by the server

Wire format is one "data: <json>" line per event followed by a blank line.
Heartbeat writes an SSE comment line that clients ignore.
*/
package streaming
