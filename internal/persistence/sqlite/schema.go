package sqlite

// initSchema creates the tables and indexes if they do not exist. Foreign keys
// are declared for documentation; cascade deletes are performed explicitly in
// the repository so the behavior does not depend on PRAGMA foreign_keys.
func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workouts (
		id TEXT PRIMARY KEY,
		workout_date DATETIME NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		workout_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (workout_id) REFERENCES workouts(id)
	);

	CREATE TABLE IF NOT EXISTS sets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		exercise_id TEXT NOT NULL,
		weight REAL NOT NULL,
		reps INTEGER NOT NULL,
		set_number INTEGER NOT NULL,
		set_date DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (exercise_id) REFERENCES exercises(id)
	);

	CREATE INDEX IF NOT EXISTS idx_exercises_user ON exercises(user_id);
	CREATE INDEX IF NOT EXISTS idx_exercises_workout ON exercises(workout_id);
	CREATE INDEX IF NOT EXISTS idx_sets_exercise ON sets(exercise_id);
	CREATE INDEX IF NOT EXISTS idx_sets_user_date ON sets(user_id, set_date DESC);
	`

	_, err := r.db.Exec(schema)
	return err
}
