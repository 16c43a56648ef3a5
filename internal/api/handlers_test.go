package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"example.com/workoutlog/internal/auth"
	"example.com/workoutlog/internal/domain"
)

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	identity := &auth.Identity{UserID: userID, ExternalID: "ext-" + userID}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func TestCreateExerciseAttachesCaller(t *testing.T) {
	repo := &mockRepo{}
	handler := NewHandler(domain.NewService(repo, domain.OwnershipUser))

	req := authedRequest(http.MethodPost, "/v1/exercises", `{"name":"Bench Press","description":"barbell"}`, "user-1")
	rr := httptest.NewRecorder()
	handler.createExercise(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ExerciseView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != "user-1" {
		t.Fatalf("expected owner user-1 got %q", resp.UserID)
	}
	if resp.Name != "Bench Press" {
		t.Fatalf("unexpected name %q", resp.Name)
	}
	if resp.ExerciseID == "" {
		t.Fatal("expected an assigned id")
	}
	if len(repo.exercises) != 1 || repo.exercises[0].UserID != "user-1" {
		t.Fatalf("exercise not persisted with owner: %+v", repo.exercises)
	}
}

func TestCreateExerciseRequiresName(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	req := authedRequest(http.MethodPost, "/v1/exercises", `{"description":"no name"}`, "user-1")
	rr := httptest.NewRecorder()
	handler.createExercise(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestCreateExerciseUnauthenticated(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	req := httptest.NewRequest(http.MethodPost, "/v1/exercises", strings.NewReader(`{"name":"Bench Press"}`))
	rr := httptest.NewRecorder()
	handler.createExercise(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestCreateExerciseWorkoutModeMissingParent(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipWorkout))

	req := httptest.NewRequest(http.MethodPost, "/v1/exercises",
		strings.NewReader(`{"name":"Squat","workout_id":"missing"}`))
	rr := httptest.NewRecorder()
	handler.createExercise(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateSetUnknownExercise(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	req := authedRequest(http.MethodPost, "/v1/sets",
		`{"exercise_id":"ghost","weight":80,"reps":5,"set_number":1,"date":"2024-01-01"}`, "user-1")
	rr := httptest.NewRecorder()
	handler.createSet(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["type"] != "not_found" {
		t.Fatalf("expected not_found envelope got %q", resp["type"])
	}
}

func TestCreateSetValidation(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	cases := []struct {
		name string
		body string
	}{
		{"missing exercise", `{"weight":80,"reps":5,"set_number":1,"date":"2024-01-01"}`},
		{"zero reps", `{"exercise_id":"e1","weight":80,"reps":0,"set_number":1,"date":"2024-01-01"}`},
		{"missing date", `{"exercise_id":"e1","weight":80,"reps":5,"set_number":1}`},
		{"bad date", `{"exercise_id":"e1","weight":80,"reps":5,"set_number":1,"date":"yesterday"}`},
	}
	for _, tc := range cases {
		req := authedRequest(http.MethodPost, "/v1/sets", tc.body, "user-1")
		rr := httptest.NewRecorder()
		handler.createSet(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", tc.name, rr.Code)
		}
	}
}

func TestRecentSetsDefaultLimit(t *testing.T) {
	repo := &mockRepo{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		repo.sets = append(repo.sets, domain.Set{
			ID:         "set-" + string(rune('a'+i)),
			UserID:     "user-1",
			ExerciseID: "e1",
			Date:       base.AddDate(0, 0, i),
		})
	}
	handler := NewHandler(domain.NewService(repo, domain.OwnershipUser))

	req := authedRequest(http.MethodGet, "/v1/sets/recent", "", "user-1")
	rr := httptest.NewRecorder()
	handler.recentSets(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var resp []SetView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != domain.DefaultRecentLimit {
		t.Fatalf("expected %d sets got %d", domain.DefaultRecentLimit, len(resp))
	}
}

func TestRecentSetsExplicitLimit(t *testing.T) {
	repo := &mockRepo{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		repo.sets = append(repo.sets, domain.Set{
			ID:         "set-" + string(rune('a'+i)),
			UserID:     "user-1",
			ExerciseID: "e1",
			Date:       base.AddDate(0, 0, i),
		})
	}
	handler := NewHandler(domain.NewService(repo, domain.OwnershipUser))

	req := authedRequest(http.MethodGet, "/v1/sets/recent?limit=3", "", "user-1")
	rr := httptest.NewRecorder()
	handler.recentSets(rr, req)

	var resp []SetView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 3 {
		t.Fatalf("expected 3 sets got %d", len(resp))
	}
}

func TestRecentSetsClampsLimit(t *testing.T) {
	repo := &mockRepo{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		repo.sets = append(repo.sets, domain.Set{
			ID:         "set-" + strconv.Itoa(i),
			UserID:     "user-1",
			ExerciseID: "e1",
			Date:       base.AddDate(0, 0, i),
		})
	}
	handler := NewHandler(domain.NewService(repo, domain.OwnershipUser))

	req := authedRequest(http.MethodGet, "/v1/sets/recent?limit=200", "", "user-1")
	rr := httptest.NewRecorder()
	handler.recentSets(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var resp []SetView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 50 {
		t.Fatalf("expected 50 sets got %d", len(resp))
	}
	if !resp[0].Date.After(resp[1].Date) || !resp[1].Date.After(resp[2].Date) {
		t.Fatalf("expected date-descending order: %v", resp)
	}
}

func TestDeleteSetNotFound(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	req := authedRequest(http.MethodDelete, "/v1/sets/ghost", "", "user-1")
	rr := httptest.NewRecorder()
	handler.setByID(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestRegisterUserConflict(t *testing.T) {
	repo := &mockRepo{userErr: domain.ErrUserExists}
	handler := NewHandler(domain.NewService(repo, domain.OwnershipUser))

	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(`{"external_id":"tg-1"}`))
	rr := httptest.NewRecorder()
	handler.users(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterUserRequiresExternalID(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))

	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(`{"full_name":"No ID"}`))
	rr := httptest.NewRecorder()
	handler.users(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestWorkoutRoutesAbsentOutsideWorkoutMode(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}, domain.OwnershipUser))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := authedRequest(http.MethodGet, "/v1/workouts", "", "user-1")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

// mockRepo is an in-memory domain.Repository used by handler tests.
type mockRepo struct {
	users     []domain.User
	workouts  []domain.Workout
	exercises []domain.Exercise
	sets      []domain.Set
	userErr   error
}

func (m *mockRepo) CreateUser(ctx context.Context, user domain.User) error {
	if m.userErr != nil {
		return m.userErr
	}
	m.users = append(m.users, user)
	return nil
}

func (m *mockRepo) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ExternalID == externalID {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) CreateWorkout(ctx context.Context, workout domain.Workout) error {
	m.workouts = append(m.workouts, workout)
	return nil
}

func (m *mockRepo) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	for _, w := range m.workouts {
		if w.ID == workoutID {
			return &w, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	return m.workouts, nil
}

func (m *mockRepo) DeleteWorkout(ctx context.Context, workoutID string) error {
	for i, w := range m.workouts {
		if w.ID == workoutID {
			m.workouts = append(m.workouts[:i], m.workouts[i+1:]...)
			return nil
		}
	}
	return domain.ErrWorkoutNotFound
}

func (m *mockRepo) CreateExercise(ctx context.Context, exercise domain.Exercise) error {
	if exercise.WorkoutID != "" {
		workout, err := m.GetWorkout(ctx, exercise.WorkoutID)
		if err != nil {
			return err
		}
		if workout == nil {
			return domain.ErrWorkoutNotFound
		}
	}
	m.exercises = append(m.exercises, exercise)
	return nil
}

func (m *mockRepo) GetExercise(ctx context.Context, scope domain.Scope, exerciseID string) (*domain.Exercise, error) {
	for _, e := range m.exercises {
		if e.ID == exerciseID && (!scope.Scoped() || e.UserID == scope.UserID) {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListExercises(ctx context.Context, scope domain.Scope) ([]domain.Exercise, error) {
	out := make([]domain.Exercise, 0)
	for _, e := range m.exercises {
		if !scope.Scoped() || e.UserID == scope.UserID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepo) DeleteExercise(ctx context.Context, scope domain.Scope, exerciseID string) error {
	for i, e := range m.exercises {
		if e.ID == exerciseID && (!scope.Scoped() || e.UserID == scope.UserID) {
			m.exercises = append(m.exercises[:i], m.exercises[i+1:]...)
			return nil
		}
	}
	return domain.ErrExerciseNotFound
}

func (m *mockRepo) CreateSet(ctx context.Context, scope domain.Scope, set domain.Set) error {
	exercise, err := m.GetExercise(ctx, scope, set.ExerciseID)
	if err != nil {
		return err
	}
	if exercise == nil {
		return domain.ErrExerciseNotFound
	}
	m.sets = append(m.sets, set)
	return nil
}

func (m *mockRepo) ListSets(ctx context.Context, scope domain.Scope, filter domain.SetFilter) ([]domain.Set, error) {
	out := make([]domain.Set, 0)
	for _, s := range m.sets {
		if scope.Scoped() && s.UserID != scope.UserID {
			continue
		}
		if filter.ExerciseID != "" && s.ExerciseID != filter.ExerciseID {
			continue
		}
		out = append(out, s)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Date.After(out[i].Date) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockRepo) DeleteSet(ctx context.Context, scope domain.Scope, setID string) error {
	for i, s := range m.sets {
		if s.ID == setID && (!scope.Scoped() || s.UserID == scope.UserID) {
			m.sets = append(m.sets[:i], m.sets[i+1:]...)
			return nil
		}
	}
	return domain.ErrSetNotFound
}
