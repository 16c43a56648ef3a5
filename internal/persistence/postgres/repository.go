// Package postgres provides pgx-backed persistence for the workout log.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workoutlog/internal/domain"
)

// Repository implements domain.Repository over a pgx connection pool. Each
// operation acquires its own connection and releases it before returning.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// CreateUser inserts a user, mapping a duplicate external id to ErrUserExists.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, external_id, full_name, username, created_at)
        VALUES ($1,$2,$3,$4,$5)`

	_, err := r.pool.Exec(ctx, stmt, user.ID, user.ExternalID, user.FullName, user.Username, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByExternalID returns the user for an external platform id, or nil.
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `SELECT user_id, external_id, full_name, username, created_at
        FROM users WHERE external_id=$1`

	row := r.pool.QueryRow(ctx, query, externalID)
	var user domain.User
	if err := row.Scan(&user.ID, &user.ExternalID, &user.FullName, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateWorkout inserts a workout session.
func (r *Repository) CreateWorkout(ctx context.Context, workout domain.Workout) error {
	const stmt = `INSERT INTO workouts (workout_id, workout_date, comments, created_at)
        VALUES ($1,$2,$3,$4)`

	if _, err := r.pool.Exec(ctx, stmt, workout.ID, workout.Date, workout.Comments, workout.CreatedAt); err != nil {
		return fmt.Errorf("create workout: %w", err)
	}
	return nil
}

// GetWorkout returns a workout by id, or nil.
func (r *Repository) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	const query = `SELECT workout_id, workout_date, comments, created_at
        FROM workouts WHERE workout_id=$1`

	row := r.pool.QueryRow(ctx, query, workoutID)
	var workout domain.Workout
	if err := row.Scan(&workout.ID, &workout.Date, &workout.Comments, &workout.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &workout, nil
}

// ListWorkouts returns all workouts ordered by date descending.
func (r *Repository) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	const query = `SELECT workout_id, workout_date, comments, created_at
        FROM workouts ORDER BY workout_date DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := make([]domain.Workout, 0)
	for rows.Next() {
		var w domain.Workout
		if err := rows.Scan(&w.ID, &w.Date, &w.Comments, &w.CreatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// DeleteWorkout removes the workout and cascades to its exercises and their
// sets inside one transaction.
func (r *Repository) DeleteWorkout(ctx context.Context, workoutID string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM workouts WHERE workout_id=$1`, workoutID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrWorkoutNotFound
		return err
	}
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx,
		`DELETE FROM sets WHERE exercise_id IN (SELECT exercise_id FROM exercises WHERE workout_id=$1)`,
		workoutID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM exercises WHERE workout_id=$1`, workoutID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM workouts WHERE workout_id=$1`, workoutID); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// CreateExercise inserts an exercise. A referenced workout is verified inside
// the same transaction so the insert cannot race a cascading workout delete.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if exercise.WorkoutID != "" {
		var exists int
		err = tx.QueryRow(ctx, `SELECT 1 FROM workouts WHERE workout_id=$1`, exercise.WorkoutID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrWorkoutNotFound
			return err
		}
		if err != nil {
			return err
		}
	}

	const stmt = `INSERT INTO exercises (exercise_id, user_id, workout_id, name, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	if _, err = tx.Exec(ctx, stmt,
		exercise.ID, exercise.UserID, exercise.WorkoutID, exercise.Name, exercise.Description, exercise.CreatedAt); err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	err = tx.Commit(ctx)
	return err
}

// GetExercise returns an exercise visible in scope, or nil.
func (r *Repository) GetExercise(ctx context.Context, scope domain.Scope, exerciseID string) (*domain.Exercise, error) {
	query := `SELECT exercise_id, user_id, workout_id, name, description, created_at
        FROM exercises WHERE exercise_id=$1`
	args := []interface{}{exerciseID}
	if scope.Scoped() {
		query += ` AND user_id=$2`
		args = append(args, scope.UserID)
	}

	row := r.pool.QueryRow(ctx, query, args...)
	var e domain.Exercise
	if err := row.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Name, &e.Description, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ListExercises returns the exercises visible in scope.
func (r *Repository) ListExercises(ctx context.Context, scope domain.Scope) ([]domain.Exercise, error) {
	query := `SELECT exercise_id, user_id, workout_id, name, description, created_at FROM exercises`
	args := []interface{}{}
	if scope.Scoped() {
		query += ` WHERE user_id=$1`
		args = append(args, scope.UserID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]domain.Exercise, 0)
	for rows.Next() {
		var e domain.Exercise
		if err := rows.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Name, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

// DeleteExercise removes an exercise visible in scope and cascades to its sets.
func (r *Repository) DeleteExercise(ctx context.Context, scope domain.Scope, exerciseID string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `SELECT 1 FROM exercises WHERE exercise_id=$1`
	args := []interface{}{exerciseID}
	if scope.Scoped() {
		query += ` AND user_id=$2`
		args = append(args, scope.UserID)
	}
	var exists int
	err = tx.QueryRow(ctx, query, args...).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrExerciseNotFound
		return err
	}
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM sets WHERE exercise_id=$1`, exerciseID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM exercises WHERE exercise_id=$1`, exerciseID); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// CreateSet verifies the parent exercise is visible in scope and inserts the
// set in the same transaction.
func (r *Repository) CreateSet(ctx context.Context, scope domain.Scope, set domain.Set) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `SELECT 1 FROM exercises WHERE exercise_id=$1`
	args := []interface{}{set.ExerciseID}
	if scope.Scoped() {
		query += ` AND user_id=$2`
		args = append(args, scope.UserID)
	}
	var exists int
	err = tx.QueryRow(ctx, query, args...).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrExerciseNotFound
		return err
	}
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO sets (set_id, user_id, exercise_id, weight, reps, set_number, set_date, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	if _, err = tx.Exec(ctx, stmt,
		set.ID, set.UserID, set.ExerciseID, set.Weight, set.Reps, set.SetNumber, set.Date, set.CreatedAt); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// ListSets returns visible sets ordered by date descending.
func (r *Repository) ListSets(ctx context.Context, scope domain.Scope, filter domain.SetFilter) ([]domain.Set, error) {
	query := `SELECT set_id, user_id, exercise_id, weight, reps, set_number, set_date, created_at FROM sets WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if scope.Scoped() {
		query += ` AND user_id=` + arg(scope.UserID)
	}
	if filter.ExerciseID != "" {
		query += ` AND exercise_id=` + arg(filter.ExerciseID)
	}
	query += ` ORDER BY set_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]domain.Set, 0)
	for rows.Next() {
		var s domain.Set
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.Weight, &s.Reps, &s.SetNumber, &s.Date, &s.CreatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// DeleteSet removes a set visible in scope.
func (r *Repository) DeleteSet(ctx context.Context, scope domain.Scope, setID string) error {
	query := `DELETE FROM sets WHERE set_id=$1`
	args := []interface{}{setID}
	if scope.Scoped() {
		query += ` AND user_id=$2`
		args = append(args, scope.UserID)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSetNotFound
	}
	return nil
}
