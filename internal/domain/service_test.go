package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	Repository
	workouts   map[string]Workout
	exercises  []Exercise
	sets       []Set
	lastFilter SetFilter
}

func (f *fakeRepo) GetWorkout(ctx context.Context, workoutID string) (*Workout, error) {
	if w, ok := f.workouts[workoutID]; ok {
		return &w, nil
	}
	return nil, nil
}

func (f *fakeRepo) CreateExercise(ctx context.Context, exercise Exercise) error {
	if exercise.WorkoutID != "" {
		if _, ok := f.workouts[exercise.WorkoutID]; !ok {
			return ErrWorkoutNotFound
		}
	}
	f.exercises = append(f.exercises, exercise)
	return nil
}

func (f *fakeRepo) CreateSet(ctx context.Context, scope Scope, set Set) error {
	f.sets = append(f.sets, set)
	return nil
}

func (f *fakeRepo) ListSets(ctx context.Context, scope Scope, filter SetFilter) ([]Set, error) {
	f.lastFilter = filter
	return nil, nil
}

// vanishingWorkoutRepo answers parent lookups from a snapshot but has lost the
// workout by insert time, like a cascading delete landing in between.
type vanishingWorkoutRepo struct {
	fakeRepo
}

func (v *vanishingWorkoutRepo) CreateExercise(ctx context.Context, exercise Exercise) error {
	v.workouts = nil
	return v.fakeRepo.CreateExercise(ctx, exercise)
}

func TestParseOwnershipMode(t *testing.T) {
	for _, valid := range []string{"user", "workout", "none"} {
		mode, err := ParseOwnershipMode(valid)
		require.NoError(t, err)
		require.Equal(t, OwnershipMode(valid), mode)
	}

	_, err := ParseOwnershipMode("tenant")
	require.Error(t, err)
}

func TestCreateExerciseOwnerByMode(t *testing.T) {
	ctx := context.Background()

	t.Run("user mode attaches scope owner", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo, OwnershipUser)

		exercise, err := svc.CreateExercise(ctx, Scope{UserID: "u1"}, CreateExerciseInput{Name: "Bench Press"})
		require.NoError(t, err)
		require.Equal(t, "u1", exercise.UserID)
		require.Empty(t, exercise.WorkoutID)
		require.NotEmpty(t, exercise.ID)
	})

	t.Run("workout mode requires existing parent", func(t *testing.T) {
		repo := &fakeRepo{workouts: map[string]Workout{"w1": {ID: "w1"}}}
		svc := NewService(repo, OwnershipWorkout)

		exercise, err := svc.CreateExercise(ctx, Scope{}, CreateExerciseInput{Name: "Squat", WorkoutID: "w1"})
		require.NoError(t, err)
		require.Equal(t, "w1", exercise.WorkoutID)
		require.Empty(t, exercise.UserID)

		_, err = svc.CreateExercise(ctx, Scope{}, CreateExerciseInput{Name: "Squat", WorkoutID: "ghost"})
		require.ErrorIs(t, err, ErrWorkoutNotFound)
		require.Len(t, repo.exercises, 1, "failed create must not persist")
	})

	t.Run("workout deleted before insert leaves no orphan", func(t *testing.T) {
		// The parent check must live inside the insert's transaction, so a
		// lookup that raced a cascading delete cannot produce an exercise
		// referencing a dead workout.
		repo := &vanishingWorkoutRepo{fakeRepo: fakeRepo{workouts: map[string]Workout{"w1": {ID: "w1"}}}}
		svc := NewService(repo, OwnershipWorkout)

		_, err := svc.CreateExercise(ctx, Scope{}, CreateExerciseInput{Name: "Squat", WorkoutID: "w1"})
		require.ErrorIs(t, err, ErrWorkoutNotFound)
		require.Empty(t, repo.exercises)
	})

	t.Run("global mode leaves exercise unowned", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo, OwnershipNone)

		exercise, err := svc.CreateExercise(ctx, Scope{}, CreateExerciseInput{Name: "Bench Press"})
		require.NoError(t, err)
		require.Empty(t, exercise.UserID)
		require.Empty(t, exercise.WorkoutID)
	})
}

func TestLogSetAttachesScopeUser(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, OwnershipUser)

	set, err := svc.LogSet(context.Background(), Scope{UserID: "u1"}, LogSetInput{
		ExerciseID: "e1",
		Weight:     80,
		Reps:       5,
		SetNumber:  1,
		Date:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "u1", set.UserID)
	require.Equal(t, "e1", set.ExerciseID)
	require.NotEmpty(t, set.ID)
	require.Len(t, repo.sets, 1)
}

func TestRecentSetsDefaultsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, OwnershipUser)

	_, err := svc.RecentSets(context.Background(), Scope{UserID: "u1"}, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultRecentLimit, repo.lastFilter.Limit)

	_, err = svc.RecentSets(context.Background(), Scope{UserID: "u1"}, 3)
	require.NoError(t, err)
	require.Equal(t, 3, repo.lastFilter.Limit)
}
