package toolpath

import (
	"time"

	"github.com/chazu/cncslice/pkg/config"
)

// CycleTime estimates machining time from move lengths and feeds, with no
// allowance for acceleration. Travel and retract moves run at the travel
// feed; the rest at the feed stored on the move.
func CycleTime(tps []Toolpath, cfg config.Config) time.Duration {
	var minutes float64
	for _, tp := range tps {
		pos := tp.Start
		for _, m := range tp.Moves {
			feed := m.Feed
			if m.Kind == Travel || m.Kind == Retract {
				feed = cfg.TravelFeedRate
			}
			if feed > 0 {
				minutes += pos.Dist(m.To) / feed
			}
			pos = m.To
		}
	}
	return time.Duration(minutes * float64(time.Minute))
}

// Lengths sums Toolpath.Lengths over tps.
func Lengths(tps []Toolpath) (cut, travel float64) {
	for _, tp := range tps {
		c, t := tp.Lengths()
		cut += c
		travel += t
	}
	return cut, travel
}
