package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Wuchinator/pixel-tracker/internal/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepository struct {
	upserted []*Summary
}

func (f *fakeRepository) UpsertSummary(_ context.Context, s *Summary) error {
	f.upserted = append(f.upserted, s)
	return nil
}

func (f *fakeRepository) GetSummaries(context.Context, time.Time, time.Time, string) ([]*Summary, error) {
	return f.upserted, nil
}

func TestSummaryFromEvent(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 41, 12, 0, time.UTC)
	now := at.Add(time.Second)

	tests := []struct {
		name  string
		event pixel.Event
		want  Summary
	}{
		{
			name:  "real open",
			event: pixel.Event{Type: pixel.EventTypeOpen, PixelID: "px", RealOpen: true, ViewTimeDelta: 1200, OccurredAt: at},
			want:  Summary{Opens: 1, RealOpens: 1, ViewTimeMs: 1200},
		},
		{
			name:  "filtered open",
			event: pixel.Event{Type: pixel.EventTypeOpen, PixelID: "px", OccurredAt: at},
			want:  Summary{Opens: 1},
		},
		{
			name:  "ping",
			event: pixel.Event{Type: pixel.EventTypePing, PixelID: "px", SessionID: "s", OccurredAt: at},
			want:  Summary{Pings: 1},
		},
		{
			name:  "session ended",
			event: pixel.Event{Type: pixel.EventTypeSessionEnded, PixelID: "px", SessionID: "s", ViewTimeDelta: 9000, OccurredAt: at},
			want:  Summary{SessionsEnded: 1, ViewTimeMs: 9000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SummaryFromEvent(tt.event, now)
			require.NoError(t, err)

			tt.want.Bucket = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
			tt.want.PixelID = "px"
			tt.want.UpdatedAt = now
			assert.Equal(t, &tt.want, got)
		})
	}

	_, err := SummaryFromEvent(pixel.Event{Type: "mystery", PixelID: "px", OccurredAt: at}, now)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestMessageHandler(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo, zap.NewNop())
	handle := svc.CreateMessageHandler()
	ctx := context.Background()

	payload, err := json.Marshal(pixel.Event{
		Type:       pixel.EventTypeOpen,
		PixelID:    "px",
		RealOpen:   true,
		OccurredAt: time.Date(2026, 10, 15, 9, 41, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, handle(ctx, []byte("px"), payload))
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, int64(1), repo.upserted[0].RealOpens)

	assert.Error(t, handle(ctx, []byte("px"), []byte("{broken")))
	assert.ErrorIs(t, handle(ctx, nil, []byte(`{"type":"pixel_open"}`)), ErrInvalidEvent)
	assert.Len(t, repo.upserted, 1)
}
