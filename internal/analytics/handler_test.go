package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rangeRecorder struct {
	fakeRepository
	from, to time.Time
	pixelID  string
}

func (r *rangeRecorder) GetSummaries(_ context.Context, from, to time.Time, pixelID string) ([]*Summary, error) {
	r.from, r.to, r.pixelID = from, to, pixelID
	return r.upserted, nil
}

func TestHandleSummaries(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo := &rangeRecorder{}
	repo.upserted = []*Summary{{ID: 1, PixelID: "px", Opens: 2}}

	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return now }
	router := NewHandler(svc, zap.NewNop()).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/summaries?pixelId=px", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summaries []Summary `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Summaries, 1)
	assert.Equal(t, int64(2), body.Summaries[0].Opens)
	assert.Equal(t, now.Add(-24*time.Hour), repo.from)
	assert.Equal(t, now, repo.to)
	assert.Equal(t, "px", repo.pixelID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/analytics/summaries?from=2026-10-15T10:00:00Z&to=2026-10-15T09:00:00Z", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/summaries?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
