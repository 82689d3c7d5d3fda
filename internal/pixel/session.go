package pixel

import (
	"slices"
	"strings"
	"time"
)

// pingGapLimit is the default largest gap between pings of a live session.
const pingGapLimit = 10 * time.Second

type pingResult string

const (
	pingStarted   pingResult = "started"
	pingContinued pingResult = "continued"
	pingLapsed    pingResult = "lapsed"
	pingIgnored   pingResult = "ignored"
)

// applyPing advances a session's state machine and returns the outcome together
// with the view time folded into the record by this ping.
func applyPing(rec *Record, sessionID string, at time.Time, gapLimit time.Duration) (pingResult, int64) {
	rec.IsDurationTracking = true
	if rec.LastSeenAt == nil || at.After(*rec.LastSeenAt) {
		seen := at
		rec.LastSeenAt = &seen
	}

	sess, ok := rec.SessionData[sessionID]
	if !ok {
		rec.SessionData[sessionID] = &SessionState{
			StartTime: at,
			LastPing:  at,
			IsActive:  true,
		}
		return pingStarted, 0
	}

	if sess.ended {
		return pingIgnored, 0
	}

	if at.Sub(sess.LastPing) > gapLimit {
		// Lapse: the duration stays frozen and lastPing stays where it was.
		sess.IsActive = false
		folded := sess.fold()
		rec.TotalViewTime += folded
		return pingLapsed, folded
	}

	// Durations are recomputed from the anchor so duplicate or reordered pings
	// cannot make them drift or shrink.
	if d := at.Sub(sess.StartTime).Milliseconds(); d > sess.Duration {
		sess.Duration = d
	}
	if at.After(sess.LastPing) {
		sess.LastPing = at
	}
	sess.IsActive = true
	return pingContinued, 0
}

// applyEnd closes a session at now and folds its duration into the record
// exactly once. closed reports whether this call ended the session; ending an
// ended session changes nothing.
func applyEnd(rec *Record, sessionID string, now time.Time, clientDuration int64) (folded int64, closed bool, err error) {
	sess, ok := rec.SessionData[sessionID]
	if !ok {
		if clientDuration <= 0 {
			return 0, false, ErrSessionNotFound
		}
		// Never pinged: the client estimate is the only evidence available.
		start := now.Add(-time.Duration(clientDuration) * time.Millisecond)
		sess = &SessionState{
			StartTime: start,
			LastPing:  start,
			Duration:  clientDuration,
		}
		rec.SessionData[sessionID] = sess
	}

	folded, closed = closeSession(rec, sess, now)
	return folded, closed, nil
}

func closeSession(rec *Record, sess *SessionState, now time.Time) (int64, bool) {
	if sess.ended {
		return 0, false
	}
	if sess.IsActive {
		if d := now.Sub(sess.StartTime).Milliseconds(); d > sess.Duration {
			sess.Duration = d
		}
		sess.IsActive = false
	}
	sess.ended = true

	folded := sess.fold()
	rec.TotalViewTime += folded
	return folded, true
}

type reapedSession struct {
	sessionID string
	folded    int64
}

// reapStale ends every active session whose last ping is older than staleAfter
// and returns them ordered by session id.
func reapStale(rec *Record, now time.Time, staleAfter time.Duration) []reapedSession {
	var reaped []reapedSession
	for id, sess := range rec.SessionData {
		if !sess.IsActive || now.Sub(sess.LastPing) <= staleAfter {
			continue
		}
		folded, _ := closeSession(rec, sess, now)
		reaped = append(reaped, reapedSession{sessionID: id, folded: folded})
	}
	slices.SortFunc(reaped, func(a, b reapedSession) int {
		return strings.Compare(a.sessionID, b.sessionID)
	})
	return reaped
}
