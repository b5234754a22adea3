package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/fittrack/apiserver/internal/services"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/fittrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// memRepo is a minimal in-memory repository backing the handler tests.
type memRepo struct {
	users     map[string]types.User
	exercises map[string]types.Exercise
	seq       int
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     make(map[string]types.User),
		exercises: make(map[string]types.Exercise),
	}
}

func (m *memRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *memRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	user.ExerciseIDs = []string{}
	m.users[user.ID] = user
	return user, nil
}

func (m *memRepo) AppendExercise(ctx context.Context, userID, exerciseID string) error {
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.ExerciseIDs = append(user.ExerciseIDs, exerciseID)
	m.users[userID] = user
	return nil
}

func (m *memRepo) GetWithExercises(ctx context.Context, id string, filter types.LogFilter) (types.User, []types.Exercise, error) {
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

func (m *memRepo) CreateExercise(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	m.seq++
	exercise.ID = fmt.Sprintf("exercise-%d", m.seq)
	m.exercises[exercise.ID] = exercise
	return exercise, nil
}

type exerciseRepo struct{ repo *memRepo }

func (r exerciseRepo) Create(ctx context.Context, exercise types.Exercise) (types.Exercise, error) {
	return r.repo.CreateExercise(ctx, exercise)
}

func newTestRouter() *chi.Mux {
	repo := newMemRepo()
	userService := services.NewUserService(repo)
	exerciseService := services.NewExerciseService(repo, exerciseRepo{repo: repo}, nil)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, userService, exerciseService, nil)
	})
	return router
}

func postForm(t *testing.T, router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterAndListUsers(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"rockstar1"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("register status %d: %s", rr.Code, rr.Body.String())
	}

	var created types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Username != "rockstar1" || created.ID == "" {
		t.Fatalf("unexpected register response %+v", created)
	}

	rr = getPath(t, router, "/api/users")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d", rr.Code)
	}
	var users []types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 1 || users[0].ID != created.ID {
		t.Fatalf("unexpected user list %+v", users)
	}
}

func TestRegisterInvalidUsernameAnswers(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"abc"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Fatalf("error body must carry a message")
	}
}

func TestLogAndFetchFlow(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"rockstar1"}})
	var user types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = postForm(t, router, "/api/users/"+user.ID+"/exercises", url.Values{
		"description": {"run"},
		"duration":    {"30"},
		"date":        {"2025-08-28"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("log status %d: %s", rr.Code, rr.Body.String())
	}
	var view types.ExerciseView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != user.ID {
		t.Fatalf("exercise view id must be the user id, got %q", view.ID)
	}
	if view.Date != "Thu Aug 28 2025" {
		t.Fatalf("unexpected date %q", view.Date)
	}

	rr = getPath(t, router, "/api/users/"+user.ID+"/logs")
	if rr.Code != http.StatusOK {
		t.Fatalf("logs status %d", rr.Code)
	}
	var logView types.LogView
	if err := json.Unmarshal(rr.Body.Bytes(), &logView); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if logView.ID != user.ID || logView.Username != "rockstar1" {
		t.Fatalf("unexpected log header %+v", logView)
	}
	if logView.Count != 1 || len(logView.Log) != 1 {
		t.Fatalf("expected single entry, got %+v", logView)
	}
	entry := logView.Log[0]
	if entry.Description != "run" || entry.Duration != 30 || entry.Date != "Thu Aug 28 2025" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestLogExerciseValidation(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"rockstar1"}})
	var user types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for name, form := range map[string]url.Values{
		"missing description": {"duration": {"30"}},
		"missing duration":    {"description": {"run"}},
		"negative duration":   {"description": {"run"}, "duration": {"-5"}},
		"non-numeric":         {"description": {"run"}, "duration": {"soon"}},
	} {
		rr := postForm(t, router, "/api/users/"+user.ID+"/exercises", form)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rr.Code)
		}
	}
}

func TestUnknownUserAlwaysAnswers(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users/nope/exercises", url.Values{
		"description": {"run"},
		"duration":    {"30"},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("exercises: expected 404, got %d", rr.Code)
	}

	rr = getPath(t, router, "/api/users/nope/logs")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("logs: expected 404, got %d", rr.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "unknown user" {
		t.Fatalf("unexpected error message %q", body.Error)
	}
}

func TestLogsQueryParameters(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"rockstar1"}})
	var user types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for _, entry := range [][2]string{
		{"first", "2025-08-01"},
		{"second", "2025-08-15"},
		{"third", "2025-08-28"},
	} {
		postForm(t, router, "/api/users/"+user.ID+"/exercises", url.Values{
			"description": {entry[0]},
			"duration":    {"10"},
			"date":        {entry[1]},
		})
	}

	fetch := func(query string) types.LogView {
		rr := getPath(t, router, "/api/users/"+user.ID+"/logs"+query)
		if rr.Code != http.StatusOK {
			t.Fatalf("logs%s status %d", query, rr.Code)
		}
		var view types.LogView
		if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return view
	}

	if view := fetch("?limit=2"); view.Count != 2 || view.Log[0].Description != "first" {
		t.Fatalf("limit: unexpected view %+v", view)
	}
	if view := fetch("?from=2025-08-10"); view.Count != 2 {
		t.Fatalf("from: unexpected view %+v", view)
	}
	if view := fetch("?from=2025-08-10&limit=1"); view.Count != 2 {
		t.Fatalf("range must ignore limit: %+v", view)
	}
	if view := fetch("?from=2025-08-10&to=2025-08-20"); view.Count != 1 || view.Log[0].Description != "second" {
		t.Fatalf("range: unexpected view %+v", view)
	}
	if view := fetch("?limit=banana"); view.Count != 3 {
		t.Fatalf("bad limit should be ignored: %+v", view)
	}
}

func TestExportUnconfigured(t *testing.T) {
	router := newTestRouter()

	rr := postForm(t, router, "/api/users", url.Values{"username": {"rockstar1"}})
	var user types.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = postForm(t, router, "/api/users/"+user.ID+"/logs/export", url.Values{})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when storage is unconfigured, got %d", rr.Code)
	}
}
