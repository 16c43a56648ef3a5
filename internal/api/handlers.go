// Package api exposes HTTP handlers for the workout log service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/workoutlog/internal/auth"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux. Workout routes exist only in
// workout mode; user registration only where users have a role.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mode := h.service.Mode()

	if mode != domain.OwnershipWorkout {
		mux.HandleFunc("/v1/users", h.users)
	}
	if mode == domain.OwnershipWorkout {
		mux.HandleFunc("/v1/workouts", h.workouts)
		mux.HandleFunc("/v1/workouts/", h.workoutByID)
	}
	mux.HandleFunc("/v1/exercises", h.exercises)
	mux.HandleFunc("/v1/exercises/", h.exercisePath)
	mux.HandleFunc("/v1/sets", h.sets)
	mux.HandleFunc("/v1/sets/recent", h.recentSets)
	mux.HandleFunc("/v1/sets/", h.setByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// scope resolves the caller's visibility scope. In user mode a resolved
// identity is mandatory; the other modes run unscoped.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (domain.Scope, bool) {
	if h.service.Mode() != domain.OwnershipUser {
		return domain.Scope{}, true
	}
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Scope{}, false
	}
	return domain.Scope{UserID: identity.UserID}, true
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	user, err := h.service.RegisterUser(r.Context(), domain.RegisterUserInput{
		ExternalID: req.ExternalID,
		FullName:   req.FullName,
		Username:   req.Username,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	date, err := req.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), domain.CreateWorkoutInput{
		Date:     date,
		Comments: req.Comments,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(*workout))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := h.service.ListWorkouts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]WorkoutView, 0, len(workouts))
	for _, workout := range workouts {
		items = append(items, toWorkoutView(workout))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		workout, err := h.service.GetWorkout(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWorkoutView(*workout))
	case http.MethodDelete:
		if err := h.service.DeleteWorkout(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		observability.RecordCascadeDelete("workout")
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) exercises(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createExercise(w, r)
	case http.MethodGet:
		h.listExercises(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req CreateExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(h.service.Mode()); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	exercise, err := h.service.CreateExercise(r.Context(), scope, domain.CreateExerciseInput{
		Name:        req.Name,
		Description: req.Description,
		WorkoutID:   req.WorkoutID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExerciseView(*exercise))
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	exercises, err := h.service.ListExercises(r.Context(), scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]ExerciseView, 0, len(exercises))
	for _, exercise := range exercises {
		items = append(items, toExerciseView(exercise))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) exercisePath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/exercises/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.exerciseByID(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] == "sets":
		h.exerciseSets(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) exerciseByID(w http.ResponseWriter, r *http.Request, id string) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		exercise, err := h.service.GetExercise(r.Context(), scope, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExerciseView(*exercise))
	case http.MethodDelete:
		if err := h.service.DeleteExercise(r.Context(), scope, id); err != nil {
			writeDomainError(w, err)
			return
		}
		observability.RecordCascadeDelete("exercise")
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// exerciseSets lists the sets logged under one exercise, newest first. A
// nonexistent or non-owned exercise is a 404 either way.
func (h *Handler) exerciseSets(w http.ResponseWriter, r *http.Request, exerciseID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if _, err := h.service.GetExercise(r.Context(), scope, exerciseID); err != nil {
		writeDomainError(w, err)
		return
	}

	sets, err := h.service.ListSets(r.Context(), scope, domain.SetFilter{ExerciseID: exerciseID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSetViews(sets))
}

func (h *Handler) sets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSet(w, r)
	case http.MethodGet:
		h.listSets(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createSet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req LogSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	date, err := req.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	set, err := h.service.LogSet(r.Context(), scope, domain.LogSetInput{
		ExerciseID: req.ExerciseID,
		Weight:     req.Weight,
		Reps:       req.Reps,
		SetNumber:  req.SetNumber,
		Date:       date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSetLogged(set.CreatedAt)
	writeJSON(w, http.StatusCreated, toSetView(*set))
}

func (h *Handler) listSets(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	filter := domain.SetFilter{ExerciseID: r.URL.Query().Get("exercise_id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	sets, err := h.service.ListSets(r.Context(), scope, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSetViews(sets))
}

func (h *Handler) recentSets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	limit := domain.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 50 {
				parsed = 50
			}
			limit = parsed
		}
	}

	sets, err := h.service.RecentSets(r.Context(), scope, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSetViews(sets))
}

func (h *Handler) setByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/sets/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing set id")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSet(r.Context(), scope, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterUserRequest is the payload for POST /v1/users.
type RegisterUserRequest struct {
	ExternalID string `json:"external_id"`
	FullName   string `json:"full_name"`
	Username   string `json:"username"`
}

// Validate ensures request correctness.
func (r RegisterUserRequest) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return errors.New("external_id is required")
	}
	return nil
}

// CreateWorkoutRequest is the payload for POST /v1/workouts.
type CreateWorkoutRequest struct {
	Date     string `json:"date"`
	Comments string `json:"comments"`
}

// Validate ensures request correctness and parses the session date.
func (r CreateWorkoutRequest) Validate() (time.Time, error) {
	return parseDate(r.Date)
}

// CreateExerciseRequest is the payload for POST /v1/exercises.
type CreateExerciseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WorkoutID   string `json:"workout_id"`
}

// Validate ensures request correctness for the active ownership mode.
func (r CreateExerciseRequest) Validate(mode domain.OwnershipMode) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if mode == domain.OwnershipWorkout && strings.TrimSpace(r.WorkoutID) == "" {
		return errors.New("workout_id is required")
	}
	return nil
}

// LogSetRequest is the payload for POST /v1/sets.
type LogSetRequest struct {
	ExerciseID string  `json:"exercise_id"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
	SetNumber  int     `json:"set_number"`
	Date       string  `json:"date"`
}

// Validate ensures request correctness and parses the set date.
func (r LogSetRequest) Validate() (time.Time, error) {
	if strings.TrimSpace(r.ExerciseID) == "" {
		return time.Time{}, errors.New("exercise_id is required")
	}
	if r.Weight < 0 {
		return time.Time{}, errors.New("weight must be >= 0")
	}
	if r.Reps <= 0 {
		return time.Time{}, errors.New("reps must be > 0")
	}
	if r.SetNumber <= 0 {
		return time.Time{}, errors.New("set_number must be > 0")
	}
	return parseDate(r.Date)
}

// parseDate accepts either a calendar date (2006-01-02) or a full RFC 3339
// timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
}

// UserView exposes a registered account.
type UserView struct {
	UserID     string    `json:"user_id"`
	ExternalID string    `json:"external_id"`
	FullName   string    `json:"full_name,omitempty"`
	Username   string    `json:"username,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// WorkoutView exposes a workout session.
type WorkoutView struct {
	WorkoutID string    `json:"workout_id"`
	Date      time.Time `json:"date"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExerciseView exposes an exercise with its mode-dependent owner.
type ExerciseView struct {
	ExerciseID  string    `json:"exercise_id"`
	UserID      string    `json:"user_id,omitempty"`
	WorkoutID   string    `json:"workout_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SetView exposes one logged repetition group.
type SetView struct {
	SetID      string    `json:"set_id"`
	UserID     string    `json:"user_id,omitempty"`
	ExerciseID string    `json:"exercise_id"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	SetNumber  int       `json:"set_number"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserView(user domain.User) UserView {
	return UserView{
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		FullName:   user.FullName,
		Username:   user.Username,
		CreatedAt:  user.CreatedAt,
	}
}

func toWorkoutView(workout domain.Workout) WorkoutView {
	return WorkoutView{
		WorkoutID: workout.ID,
		Date:      workout.Date,
		Comments:  workout.Comments,
		CreatedAt: workout.CreatedAt,
	}
}

func toExerciseView(exercise domain.Exercise) ExerciseView {
	return ExerciseView{
		ExerciseID:  exercise.ID,
		UserID:      exercise.UserID,
		WorkoutID:   exercise.WorkoutID,
		Name:        exercise.Name,
		Description: exercise.Description,
		CreatedAt:   exercise.CreatedAt,
	}
}

func toSetView(set domain.Set) SetView {
	return SetView{
		SetID:      set.ID,
		UserID:     set.UserID,
		ExerciseID: set.ExerciseID,
		Weight:     set.Weight,
		Reps:       set.Reps,
		SetNumber:  set.SetNumber,
		Date:       set.Date,
		CreatedAt:  set.CreatedAt,
	}
}

func toSetViews(sets []domain.Set) []SetView {
	items := make([]SetView, 0, len(sets))
	for _, set := range sets {
		items = append(items, toSetView(set))
	}
	return items
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		writeError(w, http.StatusConflict, "conflict", "user already exists")
	case errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
	case errors.Is(err, domain.ErrExerciseNotFound):
		writeError(w, http.StatusNotFound, "not_found", "exercise not found")
	case errors.Is(err, domain.ErrSetNotFound):
		writeError(w, http.StatusNotFound, "not_found", "set not found")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
