package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fittrack/apiserver/internal/dates"
	"github.com/fittrack/apiserver/internal/observability"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/fittrack/apiserver/types"
)

// appendAttempts bounds the insert-then-append consistency window: the
// reference append is retried once before the error surfaces.
const appendAttempts = 2

// ExerciseRepository defines persistence operations for exercises.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise types.Exercise) (types.Exercise, error)
}

// EventPublisher sends messages to a broker channel. *mq.MQ satisfies
// it; a nil publisher disables event publishing.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ExerciseService encapsulates exercise logging and log retrieval.
type ExerciseService struct {
	users     UserRepository
	exercises ExerciseRepository
	events    EventPublisher
	now       func() time.Time
}

func NewExerciseService(users UserRepository, exercises ExerciseRepository, events EventPublisher) *ExerciseService {
	return &ExerciseService{
		users:     users,
		exercises: exercises,
		events:    events,
		now:       time.Now,
	}
}

// Log creates an exercise for the user and appends its id to the
// user's reference list. The two writes are not transactional; a crash
// between them leaves an orphaned exercise, which is accepted. The
// returned view's ID field carries the user's id per the external
// contract.
func (s *ExerciseService) Log(ctx context.Context, userID, description string, duration int, rawDate string) (types.ExerciseView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.ExerciseView{}, err
	}

	exercise, err := s.exercises.Create(ctx, types.Exercise{
		UserID:      user.ID,
		Description: description,
		Duration:    duration,
		Date:        dates.Normalize(rawDate, s.now()),
	})
	if err != nil {
		return types.ExerciseView{}, err
	}

	err = retry.Do(
		func() error { return s.users.AppendExercise(ctx, user.ID, exercise.ID) },
		retry.Context(ctx),
		retry.Attempts(appendAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, store.ErrNotFound) }),
	)
	if err != nil {
		return types.ExerciseView{}, err
	}

	view := types.ExerciseView{
		Username:    user.Username,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        dates.Display(exercise.Date),
		ID:          user.ID,
	}

	s.publishLogged(ctx, user, exercise, view.Date)
	observability.RecordExerciseLogged(s.now())
	return view, nil
}

// publishLogged emits an exercise.logged event. Publishing is
// best-effort: a broker failure must not fail the request.
func (s *ExerciseService) publishLogged(ctx context.Context, user types.User, exercise types.Exercise, display string) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(types.ExerciseLoggedEvent{
		UserID:      user.ID,
		Username:    user.Username,
		ExerciseID:  exercise.ID,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        display,
		LoggedAt:    s.now(),
	})
	if err != nil {
		return
	}

	if _, err := s.events.Publish(ctx, types.ExerciseLoggedChannel, payload, map[string]string{
		"user_id": user.ID,
	}); err != nil {
		log.Printf("publish %s: %v", types.ExerciseLoggedChannel, err)
	}
}

// Logs resolves a user's exercise log. Branch order: a from bound
// filters by inclusive date range and ignores limit entirely; absent
// that, a positive limit caps the list to the first entries in log
// order; otherwise the full list is returned.
func (s *ExerciseService) Logs(ctx context.Context, userID string, from, to *time.Time, limit int) (types.LogView, error) {
	var filter types.LogFilter
	switch {
	case from != nil:
		filter.From = from
		filter.To = to
		observability.RecordLogQuery("range")
	case limit > 0:
		filter.Limit = limit
		observability.RecordLogQuery("limit")
	default:
		observability.RecordLogQuery("full")
	}

	user, exercises, err := s.users.GetWithExercises(ctx, userID, filter)
	if err != nil {
		return types.LogView{}, err
	}

	entries := make([]types.LogEntry, 0, len(exercises))
	for _, exercise := range exercises {
		entries = append(entries, types.LogEntry{
			Description: exercise.Description,
			Duration:    exercise.Duration,
			Date:        dates.Display(exercise.Date),
		})
	}

	return types.LogView{
		ID:       user.ID,
		Username: user.Username,
		Count:    len(entries),
		Log:      entries,
	}, nil
}
