package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"media-inspector/internal/analysis"
	"media-inspector/internal/logging"
)

// DefaultSubject is the subject run summaries are published on.
const DefaultSubject = "media-inspector.analysis.completed"

// Event types carried in the envelope.
const (
	TypeAnalysisCompleted = "analysis.completed"
	TypeAnalysisFailed    = "analysis.failed"
)

// Config configures the NATS publisher.
type Config struct {
	URL           string
	Subject       string
	ClientName    string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Envelope wraps a run summary on the wire.
type Envelope struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Data       analysis.Summary `json:"data"`
}

// NATSPublisher publishes finished run summaries to NATS.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to the server at cfg.URL.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "media-inspector"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logging.Info("NATS notifications enabled on subject %s", cfg.Subject)
	return &NATSPublisher{nc: nc, subject: cfg.Subject}, nil
}

// Subject returns the publish subject.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Notify implements analysis.Notifier. It returns once the server has
// received the message or ctx expires.
func (p *NATSPublisher) Notify(ctx context.Context, summary analysis.Summary) error {
	data, err := encodeEnvelope(summary, time.Now())
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", summary.RunID, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush run %s: %w", summary.RunID, err)
	}
	logging.Debug("Published analysis summary for run %s to %s", summary.RunID, p.subject)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logging.Warn("Failed to drain NATS connection: %v", err)
		p.nc.Close()
	}
}

func encodeEnvelope(summary analysis.Summary, now time.Time) ([]byte, error) {
	eventType := TypeAnalysisCompleted
	if !summary.Succeeded {
		eventType = TypeAnalysisFailed
	}
	data, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now.UTC(),
		Data:       summary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode run summary: %w", err)
	}
	return data, nil
}
