package services

import (
	"context"
	"errors"
	"regexp"

	"github.com/fittrack/apiserver/internal/observability"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/fittrack/apiserver/types"
)

// ErrInvalidUsername is returned when a registration request carries a
// username outside the allowed format.
var ErrInvalidUsername = errors.New("invalid username")

// usernamePattern is the only validation applied to usernames: word
// characters, five or more.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{5,}$`)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	AppendExercise(ctx context.Context, userID, exerciseID string) error
	GetWithExercises(ctx context.Context, id string, filter types.LogFilter) (types.User, []types.Exercise, error)
}

// UserService encapsulates user registration use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates a user for the given username. Registration is
// idempotent: an existing username returns the existing record without
// inserting. Two concurrent registrations race on check-then-insert;
// the store's unique constraint decides the winner and the loser
// re-fetches the winning record.
func (s *UserService) Register(ctx context.Context, username string) (types.User, error) {
	if !usernamePattern.MatchString(username) {
		return types.User{}, ErrInvalidUsername
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{Username: username})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.repo.GetByUsername(ctx, username)
		}
		return types.User{}, err
	}

	observability.RecordUserRegistered()
	return user, nil
}

// List returns all registered users.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// GetByID returns a single user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}
