package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fittrack/apiserver/internal/dates"
	"github.com/fittrack/apiserver/internal/services"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/fittrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	formFieldUsername    = "username"
	formFieldDescription = "description"
	formFieldDuration    = "duration"
	formFieldDate        = "date"
)

// UserHandler provides the /api/users endpoints.
type UserHandler struct {
	userService     *services.UserService
	exerciseService *services.ExerciseService
	exportService   *services.ExportService
}

// NewUserHandler constructs a handler with the provided services. The
// export service may be nil when no object storage is configured.
func NewUserHandler(
	userService *services.UserService,
	exerciseService *services.ExerciseService,
	exportService *services.ExportService,
) *UserHandler {
	return &UserHandler{
		userService:     userService,
		exerciseService: exerciseService,
		exportService:   exportService,
	}
}

// UserRouter registers the user routes on the given router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	exerciseService *services.ExerciseService,
	exportService *services.ExportService,
) {
	handler := NewUserHandler(userService, exerciseService, exportService)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.RegisterUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.Post("/exercises", handler.LogExercise)
		r.Get("/logs", handler.GetLogs)
		r.Post("/logs/export", handler.ExportLogs)
	})
}

// ListUsers returns every registered user as {id, username} pairs.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	views := make([]types.UserView, 0, len(users))
	for _, user := range users {
		views = append(views, user.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// RegisterUser creates (or idempotently returns) a user for the posted
// username form field.
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	username := strings.TrimSpace(r.PostFormValue(formFieldUsername))
	user, err := h.userService.Register(r.Context(), username)
	if err != nil {
		if errors.Is(err, services.ErrInvalidUsername) {
			writeError(w, http.StatusBadRequest, "invalid username")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeJSON(w, http.StatusOK, user.View())
}

// LogExercise records an exercise against the user in the path. The
// response's id field is the user's id.
func (h *UserHandler) LogExercise(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	description := strings.TrimSpace(r.PostFormValue(formFieldDescription))
	if description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	duration, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(formFieldDuration)))
	if err != nil || duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be a positive number of minutes")
		return
	}

	userID := chi.URLParam(r, "userID")
	view, err := h.exerciseService.Log(r.Context(), userID, description, duration, r.PostFormValue(formFieldDate))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown user")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to log exercise")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetLogs returns the user's exercise log, optionally bounded by from,
// to and limit query parameters.
func (h *UserHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	from := parseQueryDate(r.URL.Query().Get("from"))
	to := parseQueryDate(r.URL.Query().Get("to"))
	limit := parseQueryLimit(r.URL.Query().Get("limit"))

	view, err := h.exerciseService.Logs(r.Context(), userID, from, to, limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown user")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch logs")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ExportLogs writes a snapshot of the user's full log to object
// storage.
func (h *UserHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	if h.exportService == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	userID := chi.URLParam(r, "userID")
	result, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown user")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to export logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseQueryDate reads an optional date query parameter. Unparseable
// values are treated as absent rather than failing the request.
func parseQueryDate(raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, ok := dates.Parse(raw)
	if !ok {
		return nil
	}
	return &t
}

// parseQueryLimit reads an optional positive integer limit. Anything
// else is treated as absent.
func parseQueryLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 1 {
		return 0
	}
	return limit
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
