package tui

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"github.com/lowaak/workout-session/workout-session-app/internal/api"
	"github.com/lowaak/workout-session/workout-session-app/internal/auth"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeBackend serves both the screens and the session controller.
type fakeBackend struct {
	mu             sync.Mutex
	workouts       map[int64]*models.Workout
	history        []models.Workout
	goals          []models.Goal
	goalFilters    []models.GoalFilter
	completeResult *models.CompletionResult
	completeErr    error
	loginErr       error
	generated      []int
	deleted        []int64
	meCalls        int
	listCalls      int
	previews       []models.Level
	notes          map[int64]string
	calendarMonths [][2]int
	calendarDays   []models.CalendarDay
	newGoals       []models.NewGoal
	progress       map[int64]float64
	newRecords     []models.NewRecord
	recordResult   *models.RecordResult
	deletedRecords []int64
	historyOf      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		workouts: make(map[int64]*models.Workout),
		notes:    make(map[int64]string),
		progress: make(map[int64]float64),
	}
}

func (f *fakeBackend) addWorkout(w *models.Workout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workouts[w.ID] = w
	f.history = append(f.history, *w)
}

func (f *fakeBackend) Login(_ context.Context, email, _ string) (*models.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResult{User: models.User{ID: 1, Email: email, Name: "Ana"}, Token: "token"}, nil
}

func (f *fakeBackend) Register(ctx context.Context, email, password, _ string) (*models.AuthResult, error) {
	return f.Login(ctx, email, password)
}

func (f *fakeBackend) Me(context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	return &models.User{ID: 1, Name: "Ana", CurrentLevel: models.LevelIntermediate, WorkoutsCompleted: f.meCalls}, nil
}

func (f *fakeBackend) GenerateWorkout(_ context.Context, durationMinutes int) (*models.Workout, error) {
	f.mu.Lock()
	f.generated = append(f.generated, durationMinutes)
	id := int64(100 + len(f.generated))
	f.mu.Unlock()

	w := newTestWorkout(id, 2, 3)
	w.DurationMinutes = durationMinutes
	f.addWorkout(w)
	return w.Clone(), nil
}

func (f *fakeBackend) ListWorkouts(context.Context, int, int) ([]models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]models.Workout(nil), f.history...), nil
}

func (f *fakeBackend) DeleteWorkout(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	kept := f.history[:0]
	for _, w := range f.history {
		if w.ID != id {
			kept = append(kept, w)
		}
	}
	f.history = kept
	return nil
}

func (f *fakeBackend) WorkoutStats(context.Context) (*models.WorkoutStats, error) {
	return &models.WorkoutStats{}, nil
}

func (f *fakeBackend) PreviewWorkout(_ context.Context, level models.Level, durationMinutes int) (*models.WorkoutPreview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, level)
	return &models.WorkoutPreview{Level: string(level), TotalMinutes: durationMinutes}, nil
}

func (f *fakeBackend) UpdateWorkoutNotes(_ context.Context, id int64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[id] = notes
	for i := range f.history {
		if f.history[i].ID == id {
			f.history[i].Notes = notes
		}
	}
	return nil
}

func (f *fakeBackend) WorkoutCalendar(_ context.Context, year, month int) ([]models.CalendarDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendarMonths = append(f.calendarMonths, [2]int{year, month})
	return append([]models.CalendarDay(nil), f.calendarDays...), nil
}

func (f *fakeBackend) CreateGoal(_ context.Context, goal models.NewGoal) (*models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newGoals = append(f.newGoals, goal)
	created := models.Goal{ID: int64(len(f.goals) + 1), Description: goal.Description, Type: goal.Type, TargetValue: goal.TargetValue}
	f.goals = append(f.goals, created)
	return &created, nil
}

func (f *fakeBackend) UpdateGoalProgress(_ context.Context, id int64, currentValue float64) (*models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = currentValue
	for i := range f.goals {
		if f.goals[i].ID != id {
			continue
		}
		g := &f.goals[i]
		g.CurrentValue = currentValue
		g.Progress = currentValue / g.TargetValue * 100
		g.Completed = currentValue >= g.TargetValue
		out := *g
		return &out, nil
	}
	return nil, fmt.Errorf("goal %d: %w", id, api.ErrNotFound)
}

func (f *fakeBackend) CreateRecord(_ context.Context, record models.NewRecord) (*models.RecordResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newRecords = append(f.newRecords, record)
	if f.recordResult != nil {
		out := *f.recordResult
		return &out, nil
	}
	return &models.RecordResult{Record: models.PersonalRecord{Exercise: record.Exercise, Type: record.Type, Value: record.Value}}, nil
}

func (f *fakeBackend) ExerciseHistory(_ context.Context, exercise string, recordType models.RecordType) (*models.ExerciseHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyOf = append(f.historyOf, exercise)
	entries := []models.PersonalRecord{
		{ID: 1, Exercise: exercise, Type: recordType, Value: 80, Unit: "kg", IsPR: true},
		{ID: 2, Exercise: exercise, Type: recordType, Value: 75, Unit: "kg"},
	}
	return &models.ExerciseHistory{History: entries, BestRecord: &entries[0], TotalEntries: len(entries)}, nil
}

func (f *fakeBackend) DeleteRecord(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedRecords = append(f.deletedRecords, id)
	return nil
}

// backendCalls is what the fake saw, copied out for assertions.
type backendCalls struct {
	previews       []models.Level
	notes          map[int64]string
	calendarMonths [][2]int
	newGoals       []models.NewGoal
	progress       map[int64]float64
	newRecords     []models.NewRecord
	deletedRecords []int64
	historyOf      []string
}

func (f *fakeBackend) recorded() backendCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return backendCalls{
		previews:       append([]models.Level(nil), f.previews...),
		notes:          maps.Clone(f.notes),
		calendarMonths: append([][2]int(nil), f.calendarMonths...),
		newGoals:       append([]models.NewGoal(nil), f.newGoals...),
		progress:       maps.Clone(f.progress),
		newRecords:     append([]models.NewRecord(nil), f.newRecords...),
		deletedRecords: append([]int64(nil), f.deletedRecords...),
		historyOf:      append([]string(nil), f.historyOf...),
	}
}

func (f *fakeBackend) ListGoals(_ context.Context, filter models.GoalFilter) ([]models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goalFilters = append(f.goalFilters, filter)
	return append([]models.Goal(nil), f.goals...), nil
}

func (f *fakeBackend) CompleteGoal(context.Context, int64) error { return nil }

func (f *fakeBackend) DeleteGoal(context.Context, int64) error { return nil }

func (f *fakeBackend) GoalStats(context.Context) (*models.GoalStats, error) {
	return &models.GoalStats{Total: 1, Active: 1}, nil
}

func (f *fakeBackend) PersonalRecords(context.Context, models.RecordType) ([]models.PersonalRecord, error) {
	return []models.PersonalRecord{{ID: 1, Exercise: "Sentadilla", Type: models.RecordTypeWeight, Value: 80, Unit: "kg", IsPR: true}}, nil
}

func (f *fakeBackend) RecentPRs(context.Context, int) ([]models.PersonalRecord, error) {
	return nil, nil
}

func (f *fakeBackend) GetWorkout(_ context.Context, id int64) (*models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok {
		return nil, fmt.Errorf("workout %d: %w", id, api.ErrNotFound)
	}
	return w.Clone(), nil
}

func (f *fakeBackend) CompleteWorkout(context.Context, int64) (*models.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if f.completeResult != nil {
		out := *f.completeResult
		return &out, nil
	}
	return &models.CompletionResult{}, nil
}

func (f *fakeBackend) calls() (me, list int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls, f.listCalls
}

func newTestWorkout(id int64, sizes ...int) *models.Workout {
	w := &models.Workout{ID: id, Date: "2026-03-14", Level: models.LevelIntermediate, DurationMinutes: 45}
	for i, n := range sizes {
		block := models.WorkoutBlock{Name: "Bloque " + string(rune('A'+i)), DurationMinutes: 10}
		for j := 0; j < n; j++ {
			block.Exercises = append(block.Exercises, models.Exercise{Name: "Ejercicio", MuscleGroup: "Piernas", Order: j})
		}
		w.Blocks = append(w.Blocks, block)
	}
	return w
}

// fixtureNow is the wall clock the controller under test sees.
var fixtureNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

type uiFixture struct {
	model   *UIModel
	ctrl    *UIController
	backend *fakeBackend
	auth    *auth.Session
	session *session.Controller
	notices chan string
}

func newUIFixture(t *testing.T) *uiFixture {
	t.Helper()
	logger := newTestLogger()
	backend := newFakeBackend()

	timer := session.NewTimer(session.NewTimerArg{Logger: logger})
	sess := session.NewController(session.NewControllerArg{API: backend, Timer: timer, Logger: logger})
	authSession := auth.NewSession(auth.NewSessionArg{
		Logger: logger,
		Path:   filepath.Join(t.TempDir(), "session.json"),
	})

	model := NewUIModel(NewUIModelArg{
		Session:         sess,
		Logger:          logger,
		UILogChan:       make(chan string),
		GenerateMinutes: 45,
	})
	notices := make(chan string, 32)
	unregister := model.ListenToNotice(notices)

	ctrl := NewUIController(NewUIControllerArg{
		Model:   model,
		Backend: backend,
		Auth:    authSession,
		Session: sess,
		Logger:  logger,
		Now:     func() time.Time { return fixtureNow },
	})

	t.Cleanup(func() {
		ctrl.Shutdown()
		unregister()
		model.Shutdown()
		sess.Close()
	})

	return &uiFixture{model: model, ctrl: ctrl, backend: backend, auth: authSession, session: sess, notices: notices}
}

func (f *uiFixture) signIn(t *testing.T) {
	t.Helper()
	f.ctrl.Login("ana@example.com", "secret")
	f.waitForMode(t, UIModeWorkouts)
}

func (f *uiFixture) waitForMode(t *testing.T, mode UIMode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.model.GetUIState().Mode != mode {
		if time.Now().After(deadline) {
			t.Fatalf("mode is %s, want %s", f.model.GetUIState().Mode, mode)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForNotice drains notices until one equal to want arrives.
func (f *uiFixture) waitForNotice(t *testing.T, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	var seen []string
	for {
		select {
		case got := <-f.notices:
			if got == want {
				return
			}
			seen = append(seen, got)
		case <-timeout:
			t.Fatalf("notice %q not received, got %q", want, seen)
		}
	}
}
