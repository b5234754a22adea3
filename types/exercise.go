package types

import "time"

// Exercise represents a single logged exercise. Exercises are created
// once and never edited; the owning user references them by id.
type Exercise struct {
	// ID is the unique identifier of the exercise.
	ID string `json:"id" bson:"_id,omitempty" db:"id"`

	// UserID references the owning user. Required, immutable.
	UserID string `json:"user_id" bson:"userid" db:"user_id"`

	// Description is a free-form label for the exercise.
	Description string `json:"description" bson:"description" db:"description"`

	// Duration is the length of the exercise in minutes.
	Duration int `json:"duration" bson:"duration" db:"duration"`

	// Date is the calendar date the exercise is attributed to. When
	// the caller supplied an unparseable date this holds the zero
	// instant, which renders as "Invalid Date".
	Date time.Time `json:"date" bson:"date" db:"date"`
}

// ExerciseView is the response shape for a logged exercise. The ID
// field carries the owning user's id, not the exercise id; that is the
// documented external contract.
type ExerciseView struct {
	Username    string `json:"username"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
	ID          string `json:"id"`
}

// LogEntry is a single exercise inside a log view. No ids are exposed
// per entry.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogView is the response shape for a user's exercise log.
type LogView struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}

// LogFilter describes how a user's exercise references are resolved
// into full records. Exactly one of the three variants applies:
//
//   - From set: keep exercises whose date falls in [From, To]
//     inclusive; a nil To means no upper bound. Limit is ignored.
//   - Limit > 0 (From nil): resolve only the first Limit references,
//     in stored order.
//   - neither: resolve everything.
type LogFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
