package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Wuchinator/pixel-tracker/internal/pixel"
	"go.uber.org/zap"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, ev pixel.Event) error {
	if ev.PixelID == "" || ev.OccurredAt.IsZero() {
		return ErrInvalidEvent
	}

	summary, err := SummaryFromEvent(ev, s.now())
	if err != nil {
		return fmt.Errorf("event %q: %w", ev.Type, err)
	}

	if err := s.repo.UpsertSummary(ctx, summary); err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	s.logger.Debug("Event processed",
		zap.String("pixel_id", ev.PixelID),
		zap.String("type", ev.Type),
		zap.Time("bucket", summary.Bucket),
	)
	return nil
}

func (s *Service) GetSummaries(ctx context.Context, from, to time.Time, pixelID string) ([]*Summary, error) {
	return s.repo.GetSummaries(ctx, from, to, pixelID)
}

// CreateMessageHandler decodes pixel events from kafka messages.
func (s *Service) CreateMessageHandler() func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, key, value []byte) error {
		var ev pixel.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			s.logger.Error("Failed to unmarshal event",
				zap.Error(err),
				zap.String("key", string(key)),
			)
			return err
		}
		return s.ProcessEvent(ctx, ev)
	}
}
