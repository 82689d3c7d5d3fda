package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	UpsertSummary(ctx context.Context, summary *Summary) error
	GetSummaries(ctx context.Context, from, to time.Time, pixelID string) ([]*Summary, error)
}

type repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRepository(db *sqlx.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) UpsertSummary(ctx context.Context, summary *Summary) error {
	query := `
		INSERT INTO pixel_hourly_summary (bucket, pixel_id, opens, real_opens, pings, sessions_ended, view_time_ms, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (bucket, pixel_id)
		DO UPDATE SET
			opens = pixel_hourly_summary.opens + EXCLUDED.opens,
			real_opens = pixel_hourly_summary.real_opens + EXCLUDED.real_opens,
			pings = pixel_hourly_summary.pings + EXCLUDED.pings,
			sessions_ended = pixel_hourly_summary.sessions_ended + EXCLUDED.sessions_ended,
			view_time_ms = pixel_hourly_summary.view_time_ms + EXCLUDED.view_time_ms,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		summary.Bucket,
		summary.PixelID,
		summary.Opens,
		summary.RealOpens,
		summary.Pings,
		summary.SessionsEnded,
		summary.ViewTimeMs,
		summary.UpdatedAt,
	).Scan(&summary.ID)
	if err != nil {
		r.logger.Error("Failed to upsert summary", zap.Error(err))
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	r.logger.Debug("Summary upserted",
		zap.Time("bucket", summary.Bucket),
		zap.String("pixel_id", summary.PixelID),
	)
	return nil
}

func (r *repository) GetSummaries(ctx context.Context, from, to time.Time, pixelID string) ([]*Summary, error) {
	query := `
		SELECT id, bucket, pixel_id, opens, real_opens, pings, sessions_ended, view_time_ms, updated_at
		FROM pixel_hourly_summary
		WHERE bucket >= $1 AND bucket <= $2
	`
	args := []any{from, to}

	if pixelID != "" {
		query += " AND pixel_id = $3"
		args = append(args, pixelID)
	}
	query += " ORDER BY bucket, pixel_id"

	var summaries []*Summary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}
	return summaries, nil
}
