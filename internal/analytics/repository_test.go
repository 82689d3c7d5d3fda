package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres"), zap.NewNop()), mock
}

func TestUpsertSummary(t *testing.T) {
	repo, mock := newMockRepository(t)
	bucket := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	updated := bucket.Add(5 * time.Minute)

	summary := &Summary{Bucket: bucket, PixelID: "px-1", Opens: 1, RealOpens: 1, ViewTimeMs: 2500, UpdatedAt: updated}

	mock.ExpectQuery("INSERT INTO pixel_hourly_summary").
		WithArgs(bucket, "px-1", int64(1), int64(1), int64(0), int64(0), int64(2500), updated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, repo.UpsertSummary(context.Background(), summary))
	assert.Equal(t, 42, summary.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummaryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("INSERT INTO pixel_hourly_summary").WillReturnError(errors.New("connection reset"))

	err := repo.UpsertSummary(context.Background(), &Summary{PixelID: "px-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert summary")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummaries(t *testing.T) {
	repo, mock := newMockRepository(t)
	from := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "bucket", "pixel_id", "opens", "real_opens", "pings", "sessions_ended", "view_time_ms", "updated_at"}).
		AddRow(1, from.Add(time.Hour), "px-1", 3, 1, 12, 1, 60000, from.Add(2*time.Hour))

	mock.ExpectQuery(`SELECT (.+) FROM pixel_hourly_summary WHERE (.+) AND pixel_id = \$3`).
		WithArgs(from, to, "px-1").
		WillReturnRows(rows)

	summaries, err := repo.GetSummaries(context.Background(), from, to, "px-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "px-1", summaries[0].PixelID)
	assert.Equal(t, int64(12), summaries[0].Pings)
	assert.Equal(t, int64(60000), summaries[0].ViewTimeMs)
	require.NoError(t, mock.ExpectationsWereMet())
}
