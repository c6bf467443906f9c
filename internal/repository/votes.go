package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
)

// VotesRepository persists rating events in the feedback_votes table.
type VotesRepository struct {
	pool *pgxpool.Pool
}

// VoteInsertParams captures the payload required to append a vote.
type VoteInsertParams struct {
	DishID string
	Rating int
	UserID string
}

// Insert appends a vote. Votes are never updated; a repeat vote is a new row.
func (r *VotesRepository) Insert(ctx context.Context, params VoteInsertParams) (domain.Rating, error) {
	const query = `
        INSERT INTO feedback_votes (id, dish_id, rating, user_id)
        VALUES ($1::uuid, $2, $3, NULLIF($4, ''))
        RETURNING id::text, dish_id, rating, COALESCE(user_id, ''), created_at
    `

	var vote domain.Rating
	var value int16
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), params.DishID, int16(params.Rating), params.UserID).Scan(
		&vote.ID,
		&vote.ItemID,
		&value,
		&vote.SubmittedBy,
		&createdAt,
	)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("insert vote: %w", err)
	}
	vote.Value = int(value)
	vote.SubmittedAt = createdAt.UTC()
	return vote, nil
}

// List returns every vote in insertion order.
func (r *VotesRepository) List(ctx context.Context) ([]domain.Rating, error) {
	const query = `
        SELECT id::text, dish_id, rating, COALESCE(user_id, ''), created_at
        FROM feedback_votes
        ORDER BY created_at, id
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var results []domain.Rating
	for rows.Next() {
		var vote domain.Rating
		var value int16
		if err := rows.Scan(&vote.ID, &vote.ItemID, &value, &vote.SubmittedBy, &vote.SubmittedAt); err != nil {
			return nil, err
		}
		vote.Value = int(value)
		vote.SubmittedAt = vote.SubmittedAt.UTC()
		results = append(results, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Averages returns the rounded average per dish. ROUND on numeric rounds
// halves away from zero, which for non-negative ratings is half-up.
func (r *VotesRepository) Averages(ctx context.Context) (domain.Snapshot, error) {
	const query = `
        SELECT dish_id, ROUND(AVG(rating))::int4 AS score
        FROM feedback_votes
        GROUP BY dish_id
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate votes: %w", err)
	}
	defer rows.Close()

	snapshot := domain.Snapshot{}
	for rows.Next() {
		var dishID string
		var score int32
		if err := rows.Scan(&dishID, &score); err != nil {
			return nil, err
		}
		snapshot[dishID] = int(score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Get retrieves a single vote by id.
func (r *VotesRepository) Get(ctx context.Context, id string) (domain.Rating, error) {
	const query = `
        SELECT id::text, dish_id, rating, COALESCE(user_id, ''), created_at
        FROM feedback_votes
        WHERE id = $1::uuid
    `
	var vote domain.Rating
	var value int16
	err := r.pool.QueryRow(ctx, query, id).Scan(&vote.ID, &vote.ItemID, &value, &vote.SubmittedBy, &vote.SubmittedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	vote.Value = int(value)
	vote.SubmittedAt = vote.SubmittedAt.UTC()
	return vote, nil
}
