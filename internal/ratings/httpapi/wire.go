package httpapi

import (
	"time"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
)

// Paths served by a rating service and consumed by Client.
const (
	RatingsPath = "/ratings"
	EventsPath  = "/ratings/events"
	// ChangedEvent is the server-sent event name signalling new ratings.
	ChangedEvent = "changed"
)

// RatingPayload is the JSON form of one rating event.
type RatingPayload struct {
	ID          string     `json:"id,omitempty"`
	ItemID      string     `json:"itemId"`
	Value       int        `json:"value"`
	SubmittedBy string     `json:"submittedBy,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// RatingList is the body of GET /ratings.
type RatingList struct {
	Items []RatingPayload `json:"items"`
}

// AppendRequest is the body of POST /ratings.
type AppendRequest struct {
	ItemID      string `json:"itemId"`
	Value       int    `json:"value"`
	SubmittedBy string `json:"submittedBy,omitempty"`
}

// FromDomain converts an event for the wire.
func FromDomain(r domain.Rating) RatingPayload {
	p := RatingPayload{
		ID:          r.ID,
		ItemID:      r.ItemID,
		Value:       r.Value,
		SubmittedBy: r.SubmittedBy,
	}
	if !r.SubmittedAt.IsZero() {
		at := r.SubmittedAt.UTC()
		p.SubmittedAt = &at
	}
	return p
}

// ToDomain converts a wire event.
func (p RatingPayload) ToDomain() domain.Rating {
	r := domain.Rating{
		ID:          p.ID,
		ItemID:      p.ItemID,
		Value:       p.Value,
		SubmittedBy: p.SubmittedBy,
	}
	if p.SubmittedAt != nil {
		r.SubmittedAt = p.SubmittedAt.UTC()
	}
	return r
}
