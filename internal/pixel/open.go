package pixel

import (
	"slices"
	"time"
)

// continuousViewWindow is the default largest gap between two fires that still
// counts as one continuous view.
const continuousViewWindow = 30 * time.Second

// OpenEvent is a single load of the tracking pixel.
type OpenEvent struct {
	PixelID   string
	ClientIP  string
	UserAgent string
	At        time.Time
}

type openResult struct {
	realOpen           bool
	additionalViewTime int64
}

// applyOpen updates counters for one fire event. Every field is derived before
// the record is touched.
func applyOpen(rec *Record, ev OpenEvent, c Classifier, window time.Duration) openResult {
	isNewIP := !slices.Contains(rec.IPAddresses, ev.ClientIP)
	isNewUserAgent := !slices.Contains(rec.UserAgents, ev.UserAgent)

	var additional int64
	if rec.LastSeenAt != nil {
		gap := ev.At.Sub(*rec.LastSeenAt)
		if gap >= 0 && gap < window {
			additional = gap.Milliseconds()
		}
	}

	res := openResult{
		realOpen:           isRealOpen(c, ev.UserAgent, isNewIP),
		additionalViewTime: additional,
	}

	if isNewIP {
		rec.IPAddresses = append(rec.IPAddresses, ev.ClientIP)
	}
	if isNewUserAgent {
		rec.UserAgents = append(rec.UserAgents, ev.UserAgent)
	}

	at := ev.At
	rec.Opened = true
	if rec.OpenedAt == nil {
		rec.OpenedAt = &at
	}
	rec.LastSeenAt = &at
	rec.TotalViewTime += res.additionalViewTime
	rec.ViewCount++
	if res.realOpen {
		rec.RealOpens++
	}

	return res
}
