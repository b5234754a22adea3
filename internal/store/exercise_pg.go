package store

import (
	"context"
	"database/sql"

	"github.com/fittrack/apiserver/types"
	"github.com/google/uuid"
)

// PGExerciseRepository handles persistence for exercises on Postgres.
type PGExerciseRepository struct {
	db *sql.DB
}

func NewPGExerciseRepository(db *sql.DB) *PGExerciseRepository {
	return &PGExerciseRepository{db: db}
}

func (r *PGExerciseRepository) Create(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	exercise.ID = uuid.NewString()

	const query = `
		INSERT INTO exercises (id, user_id, description, duration, date)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		exercise.ID,
		exercise.UserID,
		exercise.Description,
		exercise.Duration,
		exercise.Date,
	); err != nil {
		return types.Exercise{}, err
	}
	return exercise, nil
}
