package analytics

import (
	"time"

	"github.com/Wuchinator/pixel-tracker/internal/pixel"
)

// Summary is the hourly rollup for one pixel. Upserts add the counters of a
// summary to the stored row.
type Summary struct {
	ID            int       `db:"id" json:"id"`
	Bucket        time.Time `db:"bucket" json:"bucket"`
	PixelID       string    `db:"pixel_id" json:"pixel_id"`
	Opens         int64     `db:"opens" json:"opens"`
	RealOpens     int64     `db:"real_opens" json:"real_opens"`
	Pings         int64     `db:"pings" json:"pings"`
	SessionsEnded int64     `db:"sessions_ended" json:"sessions_ended"`
	ViewTimeMs    int64     `db:"view_time_ms" json:"view_time_ms"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SummaryFromEvent turns one pixel event into a single-event rollup delta.
func SummaryFromEvent(ev pixel.Event, now time.Time) (*Summary, error) {
	s := &Summary{
		Bucket:     ev.OccurredAt.UTC().Truncate(time.Hour),
		PixelID:    ev.PixelID,
		ViewTimeMs: ev.ViewTimeDelta,
		UpdatedAt:  now.UTC(),
	}

	switch ev.Type {
	case pixel.EventTypeOpen:
		s.Opens = 1
		if ev.RealOpen {
			s.RealOpens = 1
		}
	case pixel.EventTypePing:
		s.Pings = 1
	case pixel.EventTypeSessionEnded:
		s.SessionsEnded = 1
	default:
		return nil, ErrUnknownEventType
	}
	return s, nil
}
