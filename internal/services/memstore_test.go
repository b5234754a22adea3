package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/fittrack/apiserver/internal/store"
	"github.com/fittrack/apiserver/types"
)

// memStore is an in-memory implementation of the repository contract,
// mirroring the filtering semantics of the real backends.
type memStore struct {
	users     map[string]types.User
	exercises map[string]types.Exercise
	seq       int

	// appendFailures makes the next N AppendExercise calls fail.
	appendFailures int
	appendCalls    int

	// duplicateOnCreate simulates losing the registration race: the
	// insert hits the unique constraint even though the earlier lookup
	// found nothing.
	duplicateOnCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]types.User),
		exercises: make(map[string]types.Exercise),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) GetByID(ctx context.Context, id string) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memStore) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memStore) Create(ctx context.Context, user types.User) (types.User, error) {
	if m.duplicateOnCreate {
		m.duplicateOnCreate = false
		seeded := types.User{ID: m.nextID("user"), Username: user.Username, ExerciseIDs: []string{}}
		m.users[seeded.ID] = seeded
		return types.User{}, store.ErrDuplicate
	}
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = m.nextID("user")
	user.ExerciseIDs = []string{}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) AppendExercise(ctx context.Context, userID, exerciseID string) error {
	if m.appendFailures > 0 {
		m.appendFailures--
		m.appendCalls++
		return fmt.Errorf("transient store failure")
	}
	m.appendCalls++
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.ExerciseIDs = append(user.ExerciseIDs, exerciseID)
	m.users[userID] = user
	return nil
}

func (m *memStore) GetWithExercises(ctx context.Context, id string, filter types.LogFilter) (types.User, []types.Exercise, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, nil, store.ErrNotFound
	}

	refs := user.ExerciseIDs
	if filter.From == nil && filter.Limit > 0 && filter.Limit < len(refs) {
		refs = refs[:filter.Limit]
	}

	exercises := make([]types.Exercise, 0, len(refs))
	for _, ref := range refs {
		exercise, ok := m.exercises[ref]
		if !ok {
			continue
		}
		if filter.From != nil {
			if exercise.Date.Before(*filter.From) {
				continue
			}
			if filter.To != nil && exercise.Date.After(*filter.To) {
				continue
			}
		}
		exercises = append(exercises, exercise)
	}
	return user, exercises, nil
}

func (m *memStore) CreateExercise(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	exercise.ID = m.nextID("exercise")
	m.exercises[exercise.ID] = exercise
	return exercise, nil
}

// exerciseRepo adapts memStore to the ExerciseRepository interface.
type exerciseRepo struct {
	store *memStore
}

func (r exerciseRepo) Create(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	return r.store.CreateExercise(ctx, exercise)
}
