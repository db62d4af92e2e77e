package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository hands out the daily STF number sequence. Values
// are monotonically increasing within a calendar day and reset to 1 on
// the first ticket of a new day.
type SequenceRepository interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

type sequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository instantiates repository.
func NewSequenceRepository(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepository{pool: pool}
}

func (r *sequenceRepository) Next(ctx context.Context, day time.Time) (int64, error) {
	// Atomic upsert: concurrent callers serialize on the day row, so
	// two tickets created the same day always get consecutive values.
	const query = `
        INSERT INTO stf_sequences (day, last_value) VALUES ($1, 1)
        ON CONFLICT (day) DO UPDATE SET last_value = stf_sequences.last_value + 1
        RETURNING last_value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
