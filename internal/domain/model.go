package domain

import (
	"fmt"
	"time"
)

// OwnershipMode selects what owns an Exercise. The service runs one mode for
// its whole lifetime; it is never switched per request.
type OwnershipMode string

const (
	// OwnershipUser scopes exercises and sets to the authenticated user.
	OwnershipUser OwnershipMode = "user"
	// OwnershipWorkout nests exercises under a workout session.
	OwnershipWorkout OwnershipMode = "workout"
	// OwnershipNone treats exercises as global resources.
	OwnershipNone OwnershipMode = "none"
)

// ParseOwnershipMode validates a configured mode string.
func ParseOwnershipMode(raw string) (OwnershipMode, error) {
	switch OwnershipMode(raw) {
	case OwnershipUser, OwnershipWorkout, OwnershipNone:
		return OwnershipMode(raw), nil
	}
	return "", fmt.Errorf("unknown ownership mode %q", raw)
}

// Scope narrows repository queries to one user's rows. The zero value is
// unscoped and matches everything; repositories must treat a non-empty UserID
// as an implicit filter on every read and write it applies to.
type Scope struct {
	UserID string
}

// Scoped reports whether the scope restricts visibility.
func (s Scope) Scoped() bool { return s.UserID != "" }

// User is a registered account keyed by an external platform identity.
type User struct {
	ID         string
	ExternalID string
	FullName   string
	Username   string
	CreatedAt  time.Time
}

// Workout is a dated training session grouping exercises (workout mode only).
type Workout struct {
	ID        string
	Date      time.Time
	Comments  string
	CreatedAt time.Time
}

// Exercise is a named activity under which sets are logged. Exactly one of
// UserID/WorkoutID is populated in the user and workout modes respectively;
// both are empty when exercises are global.
type Exercise struct {
	ID          string
	UserID      string
	WorkoutID   string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Set is one recorded repetition group within an exercise session.
// UserID mirrors the owning exercise's user in user mode for scoped queries.
type Set struct {
	ID         string
	UserID     string
	ExerciseID string
	Weight     float64
	Reps       int
	SetNumber  int
	Date       time.Time
	CreatedAt  time.Time
}
