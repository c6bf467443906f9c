package leaderboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
)

func events(pairs ...interface{}) []domain.Rating {
	out := make([]domain.Rating, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Rating{ItemID: pairs[i].(string), Value: pairs[i+1].(int)})
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		events []domain.Rating
		want   domain.Snapshot
	}{
		{"empty", nil, domain.Snapshot{}},
		{"half rounds up", events("a", 4, "a", 5, "b", 3), domain.Snapshot{"a": 5, "b": 3}},
		{"rounds down below half", events("a", 4, "a", 4, "a", 5), domain.Snapshot{"a": 4}},
		{"low half rounds up", events("a", 2, "a", 3), domain.Snapshot{"a": 3}},
		{"zeros kept", events("a", 0, "a", 0), domain.Snapshot{"a": 0}},
		{"out of range clamps high", events("a", 9), domain.Snapshot{"a": 5}},
		{"out of range clamps low", events("a", -3), domain.Snapshot{"a": 0}},
		{"empty item skipped", events("", 5, "b", 1), domain.Snapshot{"b": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.events)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Aggregate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		mean float64
		want int
	}{
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{3.5, 4},
		{4.5, 5},
		{4.49, 4},
		{5.5, 5},
		{-0.5, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.mean); got != tt.want {
			t.Fatalf("Round(%v) = %d, want %d", tt.mean, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(domain.Snapshot{"a": 7, "b": -1, "c": 3, "": 2})
	want := domain.Snapshot{"a": 5, "b": 0, "c": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}
