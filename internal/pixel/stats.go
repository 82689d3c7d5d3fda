package pixel

import (
	"math"
	"time"
)

// aggregate computes stats from scratch. Active sessions contribute their live
// duration so mid-session readers see time growing.
func aggregate(store Store, now time.Time) Stats {
	var st Stats
	store.Each(func(rec *Record) {
		st.TotalPixels++
		if rec.Opened {
			st.OpenedPixels++
		}
		st.RealOpens += rec.RealOpens
		st.TotalViewTime += rec.TotalViewTime
		for _, sess := range rec.SessionData {
			if !sess.IsActive {
				continue
			}
			st.ActiveSessionsCount++
			st.TotalViewTime += sess.liveDuration(now)
		}
	})

	st.OpenRate = percent(st.OpenedPixels, st.TotalPixels)
	st.RealOpenRate = percent(st.RealOpens, st.TotalPixels)
	if st.RealOpens > 0 {
		st.AvgViewTime = int64(math.Round(float64(st.TotalViewTime) / float64(st.RealOpens)))
	}
	return st
}

func percent(part, total int64) int64 {
	if total == 0 {
		return 0
	}
	return int64(math.Round(100 * float64(part) / float64(total)))
}

func countActiveSessions(store Store) int {
	var n int
	store.Each(func(rec *Record) {
		for _, sess := range rec.SessionData {
			if sess.IsActive {
				n++
			}
		}
	})
	return n
}
