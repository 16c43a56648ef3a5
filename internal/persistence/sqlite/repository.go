// Package sqlite provides an embedded store backend using modernc.org/sqlite
// (pure Go, no CGO required).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/workoutlog/internal/domain"
)

// Repository implements domain.Repository over a SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serialises
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	r := &Repository{db: db}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return r, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateUser inserts a user, rejecting duplicate external ids.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE external_id = ?`, user.ExternalID).Scan(&exists)
	if err == nil {
		return domain.ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, external_id, full_name, username, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.ExternalID, user.FullName, user.Username, formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return tx.Commit()
}

// GetUserByExternalID returns the user for an external platform id, or nil.
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, full_name, username, created_at FROM users WHERE external_id = ?`,
		externalID,
	)
	var user domain.User
	var createdAt string
	if err := row.Scan(&user.ID, &user.ExternalID, &user.FullName, &user.Username, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = created
	return &user, nil
}

// CreateWorkout inserts a workout session.
func (r *Repository) CreateWorkout(ctx context.Context, workout domain.Workout) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workouts (id, workout_date, comments, created_at) VALUES (?, ?, ?, ?)`,
		workout.ID, formatTime(workout.Date), workout.Comments, formatTime(workout.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create workout: %w", err)
	}
	return nil
}

// GetWorkout returns a workout by id, or nil.
func (r *Repository) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, workout_date, comments, created_at FROM workouts WHERE id = ?`, workoutID)
	return scanWorkout(row)
}

// ListWorkouts returns all workouts ordered by date descending.
func (r *Repository) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workout_date, comments, created_at FROM workouts ORDER BY workout_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := make([]domain.Workout, 0)
	for rows.Next() {
		var w domain.Workout
		var date, createdAt string
		if err := rows.Scan(&w.ID, &date, &w.Comments, &createdAt); err != nil {
			return nil, err
		}
		if w.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// DeleteWorkout removes the workout and cascades to its exercises and their
// sets inside one transaction.
func (r *Repository) DeleteWorkout(ctx context.Context, workoutID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM workouts WHERE id = ?`, workoutID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrWorkoutNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sets WHERE exercise_id IN (SELECT id FROM exercises WHERE workout_id = ?)`,
		workoutID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exercises WHERE workout_id = ?`, workoutID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, workoutID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateExercise inserts an exercise with its mode-dependent owner columns.
// A referenced workout is verified inside the same transaction so the insert
// cannot race a cascading workout delete.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if exercise.WorkoutID != "" {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM workouts WHERE id = ?`, exercise.WorkoutID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrWorkoutNotFound
		}
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exercises (id, user_id, workout_id, name, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		exercise.ID, exercise.UserID, exercise.WorkoutID, exercise.Name, exercise.Description, formatTime(exercise.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	return tx.Commit()
}

// GetExercise returns an exercise visible in scope, or nil.
func (r *Repository) GetExercise(ctx context.Context, scope domain.Scope, exerciseID string) (*domain.Exercise, error) {
	query := `SELECT id, user_id, workout_id, name, description, created_at FROM exercises WHERE id = ?`
	args := []interface{}{exerciseID}
	if scope.Scoped() {
		query += ` AND user_id = ?`
		args = append(args, scope.UserID)
	}
	return scanExercise(r.db.QueryRowContext(ctx, query, args...))
}

// ListExercises returns the exercises visible in scope.
func (r *Repository) ListExercises(ctx context.Context, scope domain.Scope) ([]domain.Exercise, error) {
	query := `SELECT id, user_id, workout_id, name, description, created_at FROM exercises`
	args := []interface{}{}
	if scope.Scoped() {
		query += ` WHERE user_id = ?`
		args = append(args, scope.UserID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]domain.Exercise, 0)
	for rows.Next() {
		var e domain.Exercise
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Name, &e.Description, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

// DeleteExercise removes an exercise visible in scope and cascades to its sets.
func (r *Repository) DeleteExercise(ctx context.Context, scope domain.Scope, exerciseID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT 1 FROM exercises WHERE id = ?`
	args := []interface{}{exerciseID}
	if scope.Scoped() {
		query += ` AND user_id = ?`
		args = append(args, scope.UserID)
	}
	var exists int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrExerciseNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE exercise_id = ?`, exerciseID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, exerciseID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateSet verifies the parent exercise is visible in scope and inserts the
// set in the same transaction.
func (r *Repository) CreateSet(ctx context.Context, scope domain.Scope, set domain.Set) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT 1 FROM exercises WHERE id = ?`
	args := []interface{}{set.ExerciseID}
	if scope.Scoped() {
		query += ` AND user_id = ?`
		args = append(args, scope.UserID)
	}
	var exists int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrExerciseNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sets (id, user_id, exercise_id, weight, reps, set_number, set_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		set.ID, set.UserID, set.ExerciseID, set.Weight, set.Reps, set.SetNumber,
		formatTime(set.Date), formatTime(set.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create set: %w", err)
	}
	return tx.Commit()
}

// ListSets returns visible sets ordered by date descending.
func (r *Repository) ListSets(ctx context.Context, scope domain.Scope, filter domain.SetFilter) ([]domain.Set, error) {
	query := `SELECT id, user_id, exercise_id, weight, reps, set_number, set_date, created_at FROM sets WHERE 1=1`
	args := []interface{}{}
	if scope.Scoped() {
		query += ` AND user_id = ?`
		args = append(args, scope.UserID)
	}
	if filter.ExerciseID != "" {
		query += ` AND exercise_id = ?`
		args = append(args, filter.ExerciseID)
	}
	query += ` ORDER BY set_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]domain.Set, 0)
	for rows.Next() {
		var s domain.Set
		var date, createdAt string
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.Weight, &s.Reps, &s.SetNumber, &date, &createdAt); err != nil {
			return nil, err
		}
		if s.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// DeleteSet removes a set visible in scope.
func (r *Repository) DeleteSet(ctx context.Context, scope domain.Scope, setID string) error {
	query := `DELETE FROM sets WHERE id = ?`
	args := []interface{}{setID}
	if scope.Scoped() {
		query += ` AND user_id = ?`
		args = append(args, scope.UserID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSetNotFound
	}
	return nil
}

func scanWorkout(row *sql.Row) (*domain.Workout, error) {
	var w domain.Workout
	var date, createdAt string
	if err := row.Scan(&w.ID, &date, &w.Comments, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var err error
	if w.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanExercise(row *sql.Row) (*domain.Exercise, error) {
	var e domain.Exercise
	var createdAt string
	if err := row.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Name, &e.Description, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Times are stored as RFC3339 UTC strings at second precision so date
// ordering matches string ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t.UTC(), nil
}
