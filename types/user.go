package types

// User represents an account that exercises are logged against.
type User struct {
	// ID is the unique identifier of the user, assigned by the store
	// on creation. It is treated as an opaque string by the rest of
	// the application.
	ID string `json:"id" bson:"_id,omitempty" db:"id"`

	// Username is the unique name chosen at registration. It must
	// match ^[A-Za-z0-9_]{5,}$ and no two users share one.
	Username string `json:"username" bson:"username" db:"username"`

	// ExerciseIDs is the ordered list of exercise references owned by
	// the user. Order is insertion order, which is the order exercises
	// were logged in, regardless of their logical dates.
	ExerciseIDs []string `json:"-" bson:"loggedExercises" db:"exercise_ids"`
}

// UserView is the public shape of a user returned by the API.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// View returns the public projection of the user.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username}
}
