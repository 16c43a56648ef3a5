package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id     TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    full_name   TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS workouts (
    workout_id   TEXT PRIMARY KEY,
    workout_date TIMESTAMPTZ NOT NULL,
    comments     TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS exercises (
    exercise_id TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    workout_id  TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sets (
    set_id      TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    exercise_id TEXT NOT NULL,
    weight      DOUBLE PRECISION NOT NULL,
    reps        INTEGER NOT NULL,
    set_number  INTEGER NOT NULL,
    set_date    TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exercises_user ON exercises(user_id);
CREATE INDEX IF NOT EXISTS idx_exercises_workout ON exercises(workout_id);
CREATE INDEX IF NOT EXISTS idx_sets_exercise ON sets(exercise_id);
CREATE INDEX IF NOT EXISTS idx_sets_user_date ON sets(user_id, set_date DESC);
`

// Migrate applies the schema. Safe to run at every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
