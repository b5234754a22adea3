package types

import "time"

// ExerciseLoggedEvent is the payload published to the message broker
// after an exercise is persisted.
type ExerciseLoggedEvent struct {
	// UserID identifies the user the exercise was logged against.
	UserID string `json:"user_id"`

	// Username is the user's registered name at the time of logging.
	Username string `json:"username"`

	// ExerciseID identifies the stored exercise record.
	ExerciseID string `json:"exercise_id"`

	// Description and Duration mirror the stored exercise fields.
	Description string `json:"description"`
	Duration    int    `json:"duration"`

	// Date is the canonical display string of the exercise date.
	Date string `json:"date"`

	// LoggedAt is the server time the exercise was persisted.
	LoggedAt time.Time `json:"logged_at"`
}

// ExerciseLoggedChannel is the broker channel exercise events are
// published on.
const ExerciseLoggedChannel = "exercise.logged"
