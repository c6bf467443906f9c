package leaderboard

import (
	"sort"
	"strings"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

// Entry is one row of the ranked leaderboard.
type Entry struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Pending     bool   `json:"pending"`
}

// Rank orders dishes by score (highest first), breaking ties by name.
// Dishes without feedback score 0 and are marked pending.
func Rank(dishes []menu.Dish, s domain.Snapshot) []Entry {
	entries := make([]Entry, 0, len(dishes))
	for _, d := range dishes {
		score, ok := s.Score(d.ID)
		entries = append(entries, Entry{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Rating:      score,
			Pending:     !ok || score == 0,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// HasAnyRatings reports whether at least one entry has a positive score.
func HasAnyRatings(entries []Entry) bool {
	for _, e := range entries {
		if e.Rating > 0 {
			return true
		}
	}
	return false
}
