// Package domain defines the entity model and business logic for the workout log.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserExists indicates a registration collided with an existing external id.
	ErrUserExists = errors.New("user already exists for external id")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrWorkoutNotFound is returned when a workout is absent.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrExerciseNotFound is returned when an exercise is absent or outside the
	// caller's scope. Non-owned and nonexistent are deliberately the same error.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrSetNotFound is returned when a set is absent or outside the caller's scope.
	ErrSetNotFound = errors.New("set not found")
)

// DefaultRecentLimit bounds a recent-sets query when the caller names no limit.
const DefaultRecentLimit = 10

// SetFilter narrows a set listing.
type SetFilter struct {
	ExerciseID string // empty: all visible sets
	Limit      int    // <=0: unbounded
}

// Repository captures persistence operations. Each method executes inside one
// transaction on the backing store: a failed create leaves no rows, and the
// cascading deletes remove children and parent atomically.
type Repository interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)

	CreateWorkout(ctx context.Context, workout Workout) error
	GetWorkout(ctx context.Context, workoutID string) (*Workout, error)
	ListWorkouts(ctx context.Context) ([]Workout, error)
	// DeleteWorkout removes the workout, its exercises, and their sets.
	// Returns ErrWorkoutNotFound when no row matches.
	DeleteWorkout(ctx context.Context, workoutID string) error

	// CreateExercise inserts the exercise. When the exercise references a
	// workout, its existence is verified in the same transaction as the
	// insert; returns ErrWorkoutNotFound when that parent is absent.
	CreateExercise(ctx context.Context, exercise Exercise) error
	GetExercise(ctx context.Context, scope Scope, exerciseID string) (*Exercise, error)
	ListExercises(ctx context.Context, scope Scope) ([]Exercise, error)
	// DeleteExercise removes the exercise and its sets.
	DeleteExercise(ctx context.Context, scope Scope, exerciseID string) error

	// CreateSet verifies the parent exercise is visible in scope and inserts the
	// set in the same transaction; returns ErrExerciseNotFound otherwise.
	CreateSet(ctx context.Context, scope Scope, set Set) error
	// ListSets returns visible sets ordered by date descending.
	ListSets(ctx context.Context, scope Scope, filter SetFilter) ([]Set, error)
	DeleteSet(ctx context.Context, scope Scope, setID string) error
}

// Service orchestrates entity workflows for one ownership mode.
type Service struct {
	repo Repository
	mode OwnershipMode
}

// NewService constructs a Service.
func NewService(repo Repository, mode OwnershipMode) *Service {
	return &Service{repo: repo, mode: mode}
}

// Mode reports the configured ownership mode.
func (s *Service) Mode() OwnershipMode { return s.mode }

// RegisterUserInput captures the payload from the API layer.
type RegisterUserInput struct {
	ExternalID string
	FullName   string
	Username   string
}

// RegisterUser creates an account keyed by the external platform id.
func (s *Service) RegisterUser(ctx context.Context, input RegisterUserInput) (*User, error) {
	user := User{
		ID:         uuid.NewString(),
		ExternalID: input.ExternalID,
		FullName:   input.FullName,
		Username:   input.Username,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveUser looks up an account by external platform id.
func (s *Service) ResolveUser(ctx context.Context, externalID string) (*User, error) {
	user, err := s.repo.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateWorkoutInput captures a new workout session.
type CreateWorkoutInput struct {
	Date     time.Time
	Comments string
}

// CreateWorkout records a session (workout mode).
func (s *Service) CreateWorkout(ctx context.Context, input CreateWorkoutInput) (*Workout, error) {
	workout := Workout{
		ID:        uuid.NewString(),
		Date:      input.Date.UTC(),
		Comments:  input.Comments,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateWorkout(ctx, workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// GetWorkout fetches a workout by id.
func (s *Service) GetWorkout(ctx context.Context, workoutID string) (*Workout, error) {
	workout, err := s.repo.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

// ListWorkouts returns all recorded sessions.
func (s *Service) ListWorkouts(ctx context.Context) ([]Workout, error) {
	return s.repo.ListWorkouts(ctx)
}

// DeleteWorkout removes a session and cascades to its exercises and sets.
func (s *Service) DeleteWorkout(ctx context.Context, workoutID string) error {
	return s.repo.DeleteWorkout(ctx, workoutID)
}

// CreateExerciseInput captures the payload from the API layer. WorkoutID is
// consulted only in workout mode.
type CreateExerciseInput struct {
	Name        string
	Description string
	WorkoutID   string
}

// CreateExercise attaches a new exercise to its mode-dependent owner: the
// caller's user, the named workout, or nothing.
func (s *Service) CreateExercise(ctx context.Context, scope Scope, input CreateExerciseInput) (*Exercise, error) {
	exercise := Exercise{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}

	switch s.mode {
	case OwnershipUser:
		exercise.UserID = scope.UserID
	case OwnershipWorkout:
		// The repository verifies the referenced workout inside the insert's
		// transaction, so a concurrent cascade delete cannot orphan the row.
		exercise.WorkoutID = input.WorkoutID
	}

	if err := s.repo.CreateExercise(ctx, exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// GetExercise fetches by id within the caller's scope.
func (s *Service) GetExercise(ctx context.Context, scope Scope, exerciseID string) (*Exercise, error) {
	exercise, err := s.repo.GetExercise(ctx, scope, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

// ListExercises returns the exercises visible to the caller.
func (s *Service) ListExercises(ctx context.Context, scope Scope) ([]Exercise, error) {
	return s.repo.ListExercises(ctx, scope)
}

// DeleteExercise removes an exercise and cascades to its sets.
func (s *Service) DeleteExercise(ctx context.Context, scope Scope, exerciseID string) error {
	return s.repo.DeleteExercise(ctx, scope, exerciseID)
}

// LogSetInput captures one repetition group from the API layer.
type LogSetInput struct {
	ExerciseID string
	Weight     float64
	Reps       int
	SetNumber  int
	Date       time.Time
}

// LogSet records a set under an exercise the caller can see. The owning user
// is attached from the scope, never from the payload.
func (s *Service) LogSet(ctx context.Context, scope Scope, input LogSetInput) (*Set, error) {
	set := Set{
		ID:         uuid.NewString(),
		UserID:     scope.UserID,
		ExerciseID: input.ExerciseID,
		Weight:     input.Weight,
		Reps:       input.Reps,
		SetNumber:  input.SetNumber,
		Date:       input.Date.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateSet(ctx, scope, set); err != nil {
		return nil, err
	}
	return &set, nil
}

// ListSets returns visible sets, optionally filtered by exercise, ordered by
// date descending.
func (s *Service) ListSets(ctx context.Context, scope Scope, filter SetFilter) ([]Set, error) {
	return s.repo.ListSets(ctx, scope, filter)
}

// RecentSets returns the most recent sets, at most limit (default 10).
func (s *Service) RecentSets(ctx context.Context, scope Scope, limit int) ([]Set, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.repo.ListSets(ctx, scope, SetFilter{Limit: limit})
}

// DeleteSet removes a set the caller owns.
func (s *Service) DeleteSet(ctx context.Context, scope Scope, setID string) error {
	return s.repo.DeleteSet(ctx, scope, setID)
}
