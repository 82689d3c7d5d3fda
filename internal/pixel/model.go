package pixel

import (
	"encoding/json"
	"time"
)

// Record is a tracked pixel. All durations are in milliseconds.
type Record struct {
	ID                 string                   `json:"id"`
	CreatedAt          time.Time                `json:"createdAt"`
	Opened             bool                     `json:"opened"`
	OpenedAt           *time.Time               `json:"openedAt"`
	LastSeenAt         *time.Time               `json:"lastSeenAt"`
	ViewCount          int64                    `json:"viewCount"`
	RealOpens          int64                    `json:"realOpens"`
	TotalViewTime      int64                    `json:"totalViewTime"`
	IPAddresses        []string                 `json:"ipAddresses"`
	UserAgents         []string                 `json:"userAgents"`
	IsDurationTracking bool                     `json:"isDurationTracking"`
	SessionData        map[string]*SessionState `json:"sessionData"`
	Metadata           json.RawMessage          `json:"metadata,omitempty"`
}

// SessionState is one duration-tracking session reported by a client.
type SessionState struct {
	StartTime time.Time `json:"startTime"`
	LastPing  time.Time `json:"lastPing"`
	Duration  int64     `json:"duration"`
	IsActive  bool      `json:"isActive"`

	// credited is the part of Duration already folded into the pixel's TotalViewTime.
	credited int64
	ended    bool
}

// Ended reports whether the session was closed by an end signal or by the reaper.
func (s *SessionState) Ended() bool {
	return s.ended
}

// fold credits the uncredited part of the session duration and returns it.
func (s *SessionState) fold() int64 {
	delta := s.Duration - s.credited
	if delta <= 0 {
		return 0
	}
	s.credited = s.Duration
	return delta
}

// liveDuration is the uncredited viewing time of an active session at now.
func (s *SessionState) liveDuration(now time.Time) int64 {
	live := now.Sub(s.StartTime).Milliseconds() - s.credited
	if live < 0 {
		return 0
	}
	return live
}

// Check is the status view of a pixel returned to polling callers.
type Check struct {
	Opened             bool       `json:"opened"`
	OpenedAt           *time.Time `json:"openedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastSeenAt         *time.Time `json:"lastSeenAt"`
	TotalViewTime      int64      `json:"totalViewTime"`
	ViewCount          int64      `json:"viewCount"`
	RealOpens          int64      `json:"realOpens"`
	IsDurationTracking bool       `json:"isDurationTracking"`
}

func (r *Record) Check() Check {
	return Check{
		Opened:             r.Opened,
		OpenedAt:           r.OpenedAt,
		CreatedAt:          r.CreatedAt,
		LastSeenAt:         r.LastSeenAt,
		TotalViewTime:      r.TotalViewTime,
		ViewCount:          r.ViewCount,
		RealOpens:          r.RealOpens,
		IsDurationTracking: r.IsDurationTracking,
	}
}

// Stats is a point-in-time aggregate over all pixels.
type Stats struct {
	TotalPixels         int64 `json:"totalPixels"`
	OpenedPixels        int64 `json:"openedPixels"`
	RealOpens           int64 `json:"realOpens"`
	OpenRate            int64 `json:"openRate"`
	RealOpenRate        int64 `json:"realOpenRate"`
	TotalViewTime       int64 `json:"totalViewTime"`
	AvgViewTime         int64 `json:"avgViewTime"`
	ActiveSessionsCount int64 `json:"activeSessionsCount"`
}

// Dashboard is the stats snapshot with the most recent pixels.
type Dashboard struct {
	Stats        Stats     `json:"stats"`
	RecentPixels []*Record `json:"recentPixels"`
}

// Created is returned to callers that create a pixel.
type Created struct {
	ID          string    `json:"id"`
	TrackingURL string    `json:"trackingUrl"`
	EmbedCode   string    `json:"embedCode"`
	CreatedAt   time.Time `json:"createdAt"`
}
