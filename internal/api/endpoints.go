package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

// --- Auth ---

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var out models.AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*models.AuthResult, error) {
	var out models.AuthResult
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// --- Workouts ---

// GenerateWorkout asks the server for a new routine of durationMinutes at the
// user's current level.
func (c *Client) GenerateWorkout(ctx context.Context, durationMinutes int) (*models.Workout, error) {
	var out struct {
		Workout models.Workout `json:"workout"`
	}
	body := map[string]int{"duration": durationMinutes}
	if err := c.do(ctx, http.MethodPost, "/workouts/generate", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Workout, nil
}

// PreviewWorkout describes the routine the generator would build. Zero values
// leave the choice to the server.
func (c *Client) PreviewWorkout(ctx context.Context, level models.Level, durationMinutes int) (*models.WorkoutPreview, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", string(level))
	}
	if durationMinutes > 0 {
		q.Set("duration", strconv.Itoa(durationMinutes))
	}
	var out struct {
		Preview models.WorkoutPreview `json:"preview"`
	}
	if err := c.do(ctx, http.MethodGet, "/workouts/preview", q, nil, &out); err != nil {
		return nil, err
	}
	return &out.Preview, nil
}

func (c *Client) ListWorkouts(ctx context.Context, page, limit int) ([]models.Workout, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	if limit <= 0 {
		limit = 20
	}
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		Workouts []models.Workout `json:"workouts"`
	}
	if err := c.do(ctx, http.MethodGet, "/workouts", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Workouts, nil
}

func (c *Client) GetWorkout(ctx context.Context, id int64) (*models.Workout, error) {
	var out struct {
		Workout *models.Workout `json:"workout"`
	}
	if err := c.do(ctx, http.MethodGet, workoutPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Workout, nil
}

func (c *Client) CompleteWorkout(ctx context.Context, id int64) (*models.CompletionResult, error) {
	var out models.CompletionResult
	if err := c.do(ctx, http.MethodPost, workoutPath(id)+"/complete", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWorkoutNotes(ctx context.Context, id int64, notes string) error {
	return c.do(ctx, http.MethodPut, workoutPath(id), nil, map[string]string{"notes": notes}, nil)
}

func (c *Client) DeleteWorkout(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, workoutPath(id), nil, nil, nil)
}

func (c *Client) WorkoutCalendar(ctx context.Context, year, month int) ([]models.CalendarDay, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	var out struct {
		Calendar []models.CalendarDay `json:"calendar"`
	}
	if err := c.do(ctx, http.MethodGet, "/workouts/calendar", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Calendar, nil
}

func (c *Client) WorkoutStats(ctx context.Context) (*models.WorkoutStats, error) {
	var out models.WorkoutStats
	if err := c.do(ctx, http.MethodGet, "/workouts/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Goals ---

func (c *Client) ListGoals(ctx context.Context, filter models.GoalFilter) ([]models.Goal, error) {
	q := url.Values{}
	if filter != "" && filter != models.GoalFilterAll {
		q.Set("filter", string(filter))
	}
	var out struct {
		Goals []models.Goal `json:"goals"`
	}
	if err := c.do(ctx, http.MethodGet, "/goals", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func (c *Client) CreateGoal(ctx context.Context, goal models.NewGoal) (*models.Goal, error) {
	var out struct {
		Goal models.Goal `json:"goal"`
	}
	if err := c.do(ctx, http.MethodPost, "/goals", nil, goal, &out); err != nil {
		return nil, err
	}
	return &out.Goal, nil
}

func (c *Client) UpdateGoalProgress(ctx context.Context, id int64, currentValue float64) (*models.Goal, error) {
	var out struct {
		Goal models.Goal `json:"goal"`
	}
	body := map[string]float64{"currentValue": currentValue}
	if err := c.do(ctx, http.MethodPut, goalPath(id)+"/progress", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Goal, nil
}

func (c *Client) CompleteGoal(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, goalPath(id)+"/complete", nil, nil, nil)
}

func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, goalPath(id), nil, nil, nil)
}

func (c *Client) GoalStats(ctx context.Context) (*models.GoalStats, error) {
	var out struct {
		Stats models.GoalStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/goals/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

// --- Records ---

func (c *Client) CreateRecord(ctx context.Context, record models.NewRecord) (*models.RecordResult, error) {
	var out models.RecordResult
	if err := c.do(ctx, http.MethodPost, "/records", nil, record, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersonalRecords returns the best record per exercise, optionally for one type.
func (c *Client) PersonalRecords(ctx context.Context, recordType models.RecordType) ([]models.PersonalRecord, error) {
	q := url.Values{}
	if recordType != "" {
		q.Set("type", string(recordType))
	}
	var out struct {
		PRs []models.PersonalRecord `json:"prs"`
	}
	if err := c.do(ctx, http.MethodGet, "/records/prs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.PRs, nil
}

func (c *Client) RecentPRs(ctx context.Context, limit int) ([]models.PersonalRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		PRs []models.PersonalRecord `json:"prs"`
	}
	if err := c.do(ctx, http.MethodGet, "/records/recent-prs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.PRs, nil
}

func (c *Client) ExerciseHistory(ctx context.Context, exercise string, recordType models.RecordType) (*models.ExerciseHistory, error) {
	q := url.Values{}
	if recordType != "" {
		q.Set("type", string(recordType))
	}
	var out models.ExerciseHistory
	if err := c.do(ctx, http.MethodGet, "/records/exercise/"+url.PathEscape(exercise), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/records/%d", id), nil, nil, nil)
}

func workoutPath(id int64) string {
	return fmt.Sprintf("/workouts/%d", id)
}

func goalPath(id int64) string {
	return fmt.Sprintf("/goals/%d", id)
}
