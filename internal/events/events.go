// Package events publishes roadmap domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects roadmap events are published on.
const (
	SubjectGenerated = "roadmap.generated"
	SubjectRevised   = "roadmap.revised"
)

// RoadmapEvent is the payload of every roadmap event.
type RoadmapEvent struct {
	RoadmapID  uuid.UUID `json:"roadmap_id"`
	UserID     uuid.UUID `json:"user_id"`
	SkillID    uuid.UUID `json:"skill_id"`
	Source     string    `json:"source,omitempty"`
	Model      string    `json:"model,omitempty"`
	StepCount  int       `json:"step_count"`
	Revised    bool      `json:"revised,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits roadmap events. Publishing is best effort and must not fail the request.
type Publisher interface {
	Publish(ctx context.Context, subject string, event RoadmapEvent) error
}

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("skill-roadmap"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn *nats.Conn, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, subject string, event RoadmapEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, RoadmapEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

// Recorded is one event captured by Recorder.
type Recorded struct {
	Subject string
	Event   RoadmapEvent
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, subject string, event RoadmapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Subject: subject, Event: event})
	return nil
}
