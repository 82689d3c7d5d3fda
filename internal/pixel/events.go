package pixel

import (
	"context"
	"time"
)

const (
	EventTypeOpen         = "pixel_open"
	EventTypePing         = "session_ping"
	EventTypeSessionEnded = "session_ended"
)

// Event is published for every applied open, ping and session end.
type Event struct {
	Type          string    `json:"type"`
	PixelID       string    `json:"pixel_id"`
	SessionID     string    `json:"session_id,omitempty"`
	RealOpen      bool      `json:"real_open,omitempty"`
	ViewTimeDelta int64     `json:"view_time_delta"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher ships events downstream. pkg/kafka.Producer satisfies it.
type Publisher interface {
	SendMessage(ctx context.Context, key string, value any) error
}

type nopPublisher struct{}

// NopPublisher drops every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) SendMessage(context.Context, string, any) error {
	return nil
}
