package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fittrack/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PGUserRepository handles persistence for users on Postgres.
type PGUserRepository struct {
	db *sql.DB
}

func NewPGUserRepository(db *sql.DB) *PGUserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT id, username, exercise_ids
		FROM users
		WHERE id = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		pq.Array(&user.ExerciseIDs),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *PGUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, exercise_ids
		FROM users
		WHERE username = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		pq.Array(&user.ExerciseIDs),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *PGUserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT id, username, exercise_ids
		FROM users
		ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Username, pq.Array(&user.ExerciseIDs)); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PGUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = uuid.NewString()
	if user.ExerciseIDs == nil {
		user.ExerciseIDs = []string{}
	}

	const query = `
		INSERT INTO users (id, username, exercise_ids)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, pq.Array(user.ExerciseIDs)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *PGUserRepository) AppendExercise(ctx context.Context, userID, exerciseID string) error {
	const query = `
		UPDATE users
		SET exercise_ids = array_append(exercise_ids, $2)
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, exerciseID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetWithExercises fetches a user and resolves its exercise references
// according to the filter. Results come back in stored reference
// order; a limit applies to the references before resolution.
func (r *PGUserRepository) GetWithExercises(ctx context.Context, id string, filter types.LogFilter) (types.User, []types.Exercise, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return types.User{}, nil, err
	}

	refs := user.ExerciseIDs
	if filter.From == nil && filter.Limit > 0 && filter.Limit < len(refs) {
		refs = refs[:filter.Limit]
	}
	if len(refs) == 0 {
		return user, []types.Exercise{}, nil
	}

	var from, to sql.NullTime
	if filter.From != nil {
		from = sql.NullTime{Time: *filter.From, Valid: true}
		if filter.To != nil {
			to = sql.NullTime{Time: *filter.To, Valid: true}
		}
	}

	const query = `
		SELECT e.id, e.user_id, e.description, e.duration, e.date
		FROM exercises e
		JOIN unnest($1::text[]) WITH ORDINALITY AS r(id, ord) ON e.id = r.id
		WHERE ($2::timestamptz IS NULL OR e.date >= $2)
		  AND ($3::timestamptz IS NULL OR e.date <= $3)
		ORDER BY r.ord`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(refs), from, to)
	if err != nil {
		return types.User{}, nil, err
	}
	defer rows.Close()

	exercises := make([]types.Exercise, 0, len(refs))
	for rows.Next() {
		var ex types.Exercise
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Description, &ex.Duration, &ex.Date); err != nil {
			return types.User{}, nil, err
		}
		exercises = append(exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return types.User{}, nil, err
	}
	return user, exercises, nil
}
