package pixel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	BaseURL              string
	ContinuousViewWindow time.Duration
	PingGapLimit         time.Duration
	RecentLimit          int

	Clock      quartz.Clock
	Classifier Classifier
	Registerer prometheus.Registerer
}

type Service struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	clock      quartz.Clock
	classifier Classifier
	metrics    metrics

	baseURL     string
	viewWindow  time.Duration
	pingGap     time.Duration
	recentLimit int
}

func NewService(cfg ServiceConfig, store Store, publisher Publisher, logger *zap.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	if cfg.ContinuousViewWindow <= 0 {
		cfg.ContinuousViewWindow = continuousViewWindow
	}
	if cfg.PingGapLimit <= 0 {
		cfg.PingGapLimit = pingGapLimit
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 20
	}
	if publisher == nil {
		publisher = NopPublisher()
	}

	return &Service{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		clock:      cfg.Clock,
		classifier: cfg.Classifier,
		metrics: newMetrics(cfg.Registerer, func() float64 {
			return float64(countActiveSessions(store))
		}),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		viewWindow:  cfg.ContinuousViewWindow,
		pingGap:     cfg.PingGapLimit,
		recentLimit: cfg.RecentLimit,
	}
}

// Create allocates a new pixel. Metadata is stored verbatim and must be valid JSON when present.
func (s *Service) Create(ctx context.Context, metadata json.RawMessage) (*Created, error) {
	if len(metadata) > 0 && !json.Valid(metadata) {
		return nil, fmt.Errorf("metadata is not valid json: %w", ErrInvalidInput)
	}

	rec := s.store.Create(metadata, s.clock.Now())
	s.metrics.createdTotal.Inc()

	trackingURL := s.baseURL + "/api/pixel/" + rec.ID
	s.logger.Info("Tracking pixel created", zap.String("pixel_id", rec.ID))

	return &Created{
		ID:          rec.ID,
		TrackingURL: trackingURL,
		EmbedCode:   fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;" />`, trackingURL),
		CreatedAt:   rec.CreatedAt,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("pixel id is required: %w", ErrInvalidInput)
	}
	return s.store.Get(id)
}

func (s *Service) Check(ctx context.Context, id string) (*Check, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	check := rec.Check()
	return &check, nil
}

// List returns all pixels, newest first.
func (s *Service) List(ctx context.Context) []*Record {
	return s.store.List()
}

// RecordOpen processes one fire of the pixel. The real-open classification is
// a heuristic and only approximates human opens.
func (s *Service) RecordOpen(ctx context.Context, ev OpenEvent) (*Record, error) {
	if ev.PixelID == "" {
		return nil, fmt.Errorf("pixel id is required: %w", ErrInvalidInput)
	}

	var res openResult
	rec, err := s.store.Update(ev.PixelID, func(rec *Record) error {
		res = applyOpen(rec, ev, s.classifier, s.viewWindow)
		return nil
	})
	if err != nil {
		s.logger.Debug("open for unknown pixel", zap.String("pixel_id", ev.PixelID))
		return nil, err
	}

	kind := "filtered"
	if res.realOpen {
		kind = "real"
	}
	s.metrics.opensTotal.WithLabelValues(kind).Inc()

	s.logger.Info("Pixel opened",
		zap.String("pixel_id", ev.PixelID),
		zap.String("kind", kind),
		zap.Int64("view_count", rec.ViewCount),
		zap.Int64("additional_view_time_ms", res.additionalViewTime),
	)

	s.publish(ctx, Event{
		Type:          EventTypeOpen,
		PixelID:       ev.PixelID,
		RealOpen:      res.realOpen,
		ViewTimeDelta: res.additionalViewTime,
		OccurredAt:    ev.At,
	})

	return rec, nil
}

// Ping records a duration signal. at is the client's timestamp and drives all
// gap and anchor computation.
func (s *Service) Ping(ctx context.Context, pixelID, sessionID string, at time.Time) (*Record, error) {
	if pixelID == "" || sessionID == "" {
		return nil, fmt.Errorf("pixel id and session id are required: %w", ErrInvalidInput)
	}

	var (
		result pingResult
		folded int64
	)
	rec, err := s.store.Update(pixelID, func(rec *Record) error {
		result, folded = applyPing(rec, sessionID, at, s.pingGap)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.pingsTotal.WithLabelValues(string(result)).Inc()
	s.logger.Debug("Session ping",
		zap.String("pixel_id", pixelID),
		zap.String("session_id", sessionID),
		zap.String("result", string(result)),
	)

	s.publish(ctx, Event{
		Type:          EventTypePing,
		PixelID:       pixelID,
		SessionID:     sessionID,
		ViewTimeDelta: folded,
		OccurredAt:    at,
	})

	return rec, nil
}

// End closes a session at the current time. clientDuration is only used when
// the session was never pinged; pass 0 when the client did not report one.
func (s *Service) End(ctx context.Context, pixelID, sessionID string, clientDuration int64) (*Record, error) {
	if pixelID == "" || sessionID == "" {
		return nil, fmt.Errorf("pixel id and session id are required: %w", ErrInvalidInput)
	}
	if clientDuration < 0 {
		return nil, fmt.Errorf("duration must not be negative: %w", ErrInvalidInput)
	}

	now := s.clock.Now()
	var (
		folded int64
		closed bool
	)
	rec, err := s.store.Update(pixelID, func(rec *Record) error {
		var err error
		folded, closed, err = applyEnd(rec, sessionID, now, clientDuration)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.logger.Debug("end for unknown session",
				zap.String("pixel_id", pixelID),
				zap.String("session_id", sessionID))
		}
		return nil, err
	}

	if !closed {
		s.logger.Debug("end for already ended session",
			zap.String("pixel_id", pixelID),
			zap.String("session_id", sessionID))
		return rec, nil
	}

	s.metrics.sessionsEndedTotal.WithLabelValues("client").Inc()
	s.logger.Info("Session ended",
		zap.String("pixel_id", pixelID),
		zap.String("session_id", sessionID),
		zap.Int64("folded_ms", folded),
	)

	s.publish(ctx, Event{
		Type:          EventTypeSessionEnded,
		PixelID:       pixelID,
		SessionID:     sessionID,
		ViewTimeDelta: folded,
		OccurredAt:    now,
	})

	return rec, nil
}

// ReapStale force-ends sessions whose last ping is older than staleAfter and
// publishes one event per ended session.
func (s *Service) ReapStale(ctx context.Context, staleAfter time.Duration) int {
	now := s.clock.Now()

	var events []Event
	s.store.Each(func(rec *Record) {
		for _, r := range reapStale(rec, now, staleAfter) {
			events = append(events, Event{
				Type:          EventTypeSessionEnded,
				PixelID:       rec.ID,
				SessionID:     r.sessionID,
				ViewTimeDelta: r.folded,
				OccurredAt:    now,
			})
		}
	})

	if len(events) > 0 {
		s.metrics.sessionsEndedTotal.WithLabelValues("reaped").Add(float64(len(events)))
	}
	for _, ev := range events {
		s.publish(ctx, ev)
	}
	return len(events)
}

func (s *Service) Stats(ctx context.Context) Stats {
	return aggregate(s.store, s.clock.Now())
}

func (s *Service) Dashboard(ctx context.Context) *Dashboard {
	stats := s.Stats(ctx)
	pixels := s.store.List()
	if len(pixels) > s.recentLimit {
		pixels = pixels[:s.recentLimit]
	}
	return &Dashboard{
		Stats:        stats,
		RecentPixels: pixels,
	}
}

// publish never fails the caller; the in-memory update is authoritative.
func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.publisher.SendMessage(ctx, ev.PixelID, ev); err != nil {
		s.logger.Error("failed to publish pixel event",
			zap.String("pixel_id", ev.PixelID),
			zap.String("type", ev.Type),
			zap.Error(err))
	}
}
