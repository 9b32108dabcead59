package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"battleship/internal/session"
)

// DefaultSubjectPrefix is where session events are published
const DefaultSubjectPrefix = "battleship.events"

// NATSSink publishes every event on <prefix>.<kind> and <prefix>.all
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSSink creates a sink on an established connection
func NewNATSSink(nc *nats.Conn, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{nc: nc, prefix: prefix}
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the per-kind subject of e
func (s *NATSSink) Subject(e session.Event) string {
	return fmt.Sprintf("%s.%s", s.prefix, e.Kind)
}

func (s *NATSSink) Handle(ctx context.Context, e session.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.nc.Publish(s.Subject(e), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", s.Subject(e), err)
	}
	if err := s.nc.Publish(s.prefix+".all", data); err != nil {
		return fmt.Errorf("failed to publish %s.all: %w", s.prefix, err)
	}
	return nil
}
