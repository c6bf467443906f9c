package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	// MinScore is the lowest value a rating or aggregated score can take.
	MinScore = 0
	// MaxScore is the highest value a rating or aggregated score can take.
	MaxScore = 5
)

var (
	// ErrInvalidItem indicates a rating without an item identifier.
	ErrInvalidItem = errors.New("domain: item id is required")
	// ErrInvalidValue indicates a rating value outside 0..5.
	ErrInvalidValue = errors.New("domain: rating must be between 0 and 5")
)

// Rating represents a single submitted score for one menu item.
// Ratings are append-only: a second rating from the same submitter is a new event.
type Rating struct {
	ID          string
	ItemID      string
	Value       int
	SubmittedBy string
	SubmittedAt time.Time
}

// RatingInput captures the payload required to append a rating.
type RatingInput struct {
	ItemID      string
	Value       int
	SubmittedBy string
}

// ValidateRating checks the item identifier and value range.
func ValidateRating(itemID string, value int) error {
	if strings.TrimSpace(itemID) == "" {
		return ErrInvalidItem
	}
	if value < MinScore || value > MaxScore {
		return ErrInvalidValue
	}
	return nil
}
