// Package leaderboard turns raw rating events into per-item scores and ranks dishes by them.
package leaderboard

import (
	"math"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
)

type tally struct {
	sum   int64
	count int64
}

// Aggregate averages rating events per item. Items without events are absent
// from the result; events with an empty item id are ignored.
func Aggregate(events []domain.Rating) domain.Snapshot {
	totals := make(map[string]*tally)
	for _, ev := range events {
		if ev.ItemID == "" {
			continue
		}
		t, ok := totals[ev.ItemID]
		if !ok {
			t = &tally{}
			totals[ev.ItemID] = t
		}
		t.sum += int64(ev.Value)
		t.count++
	}

	snapshot := make(domain.Snapshot, len(totals))
	for id, t := range totals {
		snapshot[id] = Round(float64(t.sum) / float64(t.count))
	}
	return snapshot
}

// Round rounds half-up (4.5 -> 5, 2.5 -> 3) and clamps to the score range.
func Round(mean float64) int {
	if math.IsNaN(mean) {
		return domain.MinScore
	}
	return clamp(int(math.Floor(mean + 0.5)))
}

// Normalize clamps a snapshot aggregated elsewhere and drops empty item ids.
func Normalize(s domain.Snapshot) domain.Snapshot {
	out := make(domain.Snapshot, len(s))
	for id, v := range s {
		if id == "" {
			continue
		}
		out[id] = clamp(v)
	}
	return out
}

func clamp(v int) int {
	if v < domain.MinScore {
		return domain.MinScore
	}
	if v > domain.MaxScore {
		return domain.MaxScore
	}
	return v
}
