package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/api"
	"github.com/lowaak/workout-session/workout-session-app/internal/auth"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
	"github.com/lowaak/workout-session/workout-session-app/internal/safego"
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
)

// Backend is the part of the remote API the screens outside the session use.
type Backend interface {
	auth.Authenticator
	GenerateWorkout(ctx context.Context, durationMinutes int) (*models.Workout, error)
	PreviewWorkout(ctx context.Context, level models.Level, durationMinutes int) (*models.WorkoutPreview, error)
	ListWorkouts(ctx context.Context, page, limit int) ([]models.Workout, error)
	UpdateWorkoutNotes(ctx context.Context, id int64, notes string) error
	DeleteWorkout(ctx context.Context, id int64) error
	WorkoutStats(ctx context.Context) (*models.WorkoutStats, error)
	WorkoutCalendar(ctx context.Context, year, month int) ([]models.CalendarDay, error)
	ListGoals(ctx context.Context, filter models.GoalFilter) ([]models.Goal, error)
	CreateGoal(ctx context.Context, goal models.NewGoal) (*models.Goal, error)
	UpdateGoalProgress(ctx context.Context, id int64, currentValue float64) (*models.Goal, error)
	CompleteGoal(ctx context.Context, id int64) error
	DeleteGoal(ctx context.Context, id int64) error
	GoalStats(ctx context.Context) (*models.GoalStats, error)
	CreateRecord(ctx context.Context, record models.NewRecord) (*models.RecordResult, error)
	PersonalRecords(ctx context.Context, recordType models.RecordType) ([]models.PersonalRecord, error)
	RecentPRs(ctx context.Context, limit int) ([]models.PersonalRecord, error)
	ExerciseHistory(ctx context.Context, exercise string, recordType models.RecordType) (*models.ExerciseHistory, error)
	DeleteRecord(ctx context.Context, id int64) error
}

var (
	_ Backend            = (*api.Client)(nil)
	_ session.WorkoutAPI = (*api.Client)(nil)
)

const (
	historyPageSize = 20
	recentPRCount   = 5
)

// UIController handles UI events and coordinates with the UIModel
type UIController struct {
	model   *UIModel
	backend Backend
	auth    *auth.Session
	session *session.Controller
	logger  logrus.FieldLogger
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewUIControllerArg holds the arguments for creating a UIController.
type NewUIControllerArg struct {
	Model   *UIModel
	Backend Backend
	Auth    *auth.Session
	Session *session.Controller
	Logger  logrus.FieldLogger
	Now     func() time.Time // picks the calendar's first month; defaults to time.Now
}

// NewUIController creates a new UIController with the given dependencies
func NewUIController(args NewUIControllerArg) *UIController {
	if args.Model == nil {
		panic("UIController: model cannot be nil")
	}
	if args.Backend == nil {
		panic("UIController: backend cannot be nil")
	}
	if args.Auth == nil {
		panic("UIController: auth cannot be nil")
	}
	if args.Session == nil {
		panic("UIController: session cannot be nil")
	}
	if args.Logger == nil {
		panic("UIController: logger cannot be nil")
	}

	now := args.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &UIController{
		model:   args.Model,
		backend: args.Backend,
		auth:    args.Auth,
		session: args.Session,
		logger:  args.Logger,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
	}

	c.wg.Add(3)
	safego.Go(c.logger, func() { c.listenToAuth() })
	safego.Go(c.logger, func() { c.listenToNavigation() })
	safego.Go(c.logger, func() { c.listenToSessionErrors() })

	return c
}

// listenToAuth keeps the UI in step with the credential state: a dropped
// session, from logout or a rejected token, always lands on the login screen.
func (c *UIController) listenToAuth() {
	defer c.wg.Done()

	ch := make(chan auth.State, 1)
	unregister := c.auth.ListenToState(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			c.model.SetUser(state.User)
			if !state.Authenticated {
				c.session.Unload()
				c.model.SetMode(UIModeLogin)
				if state.Expired {
					c.model.SetNotice("Session expired, please sign in again")
				}
				continue
			}
			if c.model.GetUIState().Mode == UIModeLogin {
				c.OnModeChange(UIModeWorkouts)
			}
		}
	}
}

func (c *UIController) listenToNavigation() {
	defer c.wg.Done()

	ch := make(chan session.Navigation, 1)
	unregister := c.session.ListenToNavigation(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case nav, ok := <-ch:
			if !ok {
				return
			}
			c.logger.Debugf("UIController: session navigation %s", nav)
			c.session.Unload()
			c.OnModeChange(UIModeWorkouts)
			if nav == session.NavigateDashboard {
				// Completion changes the user's counters and maybe level
				c.refreshUser()
			}
		}
	}
}

func (c *UIController) listenToSessionErrors() {
	defer c.wg.Done()

	ch := make(chan error, 1)
	unregister := c.session.ListenToErrors(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case err, ok := <-ch:
			if !ok {
				return
			}
			c.model.SetNotice(describeError(err))
		}
	}
}

// OnEscapeKey leaves the session screen, or quits from anywhere else
func (c *UIController) OnEscapeKey() {
	if c.model.GetUIState().Mode == UIModeSession {
		c.session.Back()
		return
	}
	c.model.RequestCloseApplication()
}

// OnModeChange handles when the user requests a mode change
func (c *UIController) OnModeChange(mode UIMode) {
	info, ok := GetUIModeInfo(mode)
	if !ok {
		return
	}
	if info.NeedsAuth && !c.auth.Authenticated() {
		c.model.SetNotice("Sign in first")
		return
	}
	c.logger.Debugf("UIController: switching to %s mode", info.DisplayName)
	c.model.SetMode(mode)

	switch mode {
	case UIModeWorkouts:
		c.RefreshWorkouts()
	case UIModeGoals:
		c.RefreshGoals()
	case UIModeRecords:
		c.RefreshRecords()
	case UIModeCalendar:
		c.RefreshCalendar()
	}
}

// --- Login Methods ---

func (c *UIController) Login(email, password string) {
	c.async("login", func(ctx context.Context) error {
		return c.auth.Login(ctx, c.backend, email, password)
	})
}

func (c *UIController) Register(email, password, name string) {
	c.async("register", func(ctx context.Context) error {
		return c.auth.Register(ctx, c.backend, email, password, name)
	})
}

func (c *UIController) Logout() {
	c.auth.Logout()
}

// --- Workouts Methods ---

// AdjustGenerateMinutes changes the length of the next generated routine by
// steps of GenerateStepMinutes.
func (c *UIController) AdjustGenerateMinutes(steps int) {
	c.model.UpdateWorkouts(func(s *WorkoutsState) {
		s.GenerateMinutes = ClampGenerateMinutes(s.GenerateMinutes + steps*GenerateStepMinutes)
		s.Preview = nil
	})
}

// PreviewWorkout asks the generator what a routine of the selected length
// would contain at the user's level, without saving anything.
func (c *UIController) PreviewWorkout() {
	minutes := c.model.GetWorkoutsState().GenerateMinutes
	level := models.LevelBeginner
	if user := c.model.GetUIState().User; user != nil && user.CurrentLevel != "" {
		level = user.CurrentLevel
	}
	c.async("preview workout", func(ctx context.Context) error {
		preview, err := c.backend.PreviewWorkout(ctx, level, minutes)
		if err != nil {
			return err
		}
		c.model.UpdateWorkouts(func(s *WorkoutsState) {
			if s.GenerateMinutes != minutes {
				// the length changed while the request was out
				return
			}
			s.Preview = preview
		})
		return nil
	})
}

// GenerateWorkout asks the server for a routine and opens it.
func (c *UIController) GenerateWorkout() {
	minutes := c.model.GetWorkoutsState().GenerateMinutes
	c.setWorkoutsBusy(true)
	c.async("generate workout", func(ctx context.Context) error {
		defer c.setWorkoutsBusy(false)
		workout, err := c.backend.GenerateWorkout(ctx, minutes)
		if err != nil {
			return err
		}
		c.logger.Infof("UIController: generated workout %d (%d min)", workout.ID, minutes)
		c.OpenWorkout(workout.ID)
		return nil
	})
}

// OpenWorkout shows the session screen for workout id and loads it.
func (c *UIController) OpenWorkout(id int64) {
	if id <= 0 {
		c.model.SetNotice("Invalid workout")
		return
	}
	c.model.SetMode(UIModeSession)
	c.async("load workout", func(ctx context.Context) error {
		// The controller publishes load failures as StatusError itself
		if err := c.session.Load(ctx, id); err != nil {
			c.logger.Warnf("UIController: load workout %d: %v", id, err)
		}
		return nil
	})
}

// OnWorkoutSelected opens the history entry at index
func (c *UIController) OnWorkoutSelected(index int) {
	workouts := c.model.GetWorkoutsState().Workouts
	if index < 0 || index >= len(workouts) {
		c.logger.Debugf("UIController: invalid workout index: %d", index)
		return
	}
	c.OpenWorkout(workouts[index].ID)
}

// DeleteWorkout removes the history entry at index
func (c *UIController) DeleteWorkout(index int) {
	workouts := c.model.GetWorkoutsState().Workouts
	if index < 0 || index >= len(workouts) {
		return
	}
	id := workouts[index].ID
	c.async("delete workout", func(ctx context.Context) error {
		if err := c.backend.DeleteWorkout(ctx, id); err != nil {
			return err
		}
		c.model.SetNotice(fmt.Sprintf("Workout %d deleted", id))
		c.RefreshWorkouts()
		return nil
	})
}

// UpdateWorkoutNotes replaces the notes of the history entry at index
func (c *UIController) UpdateWorkoutNotes(index int, notes string) {
	workouts := c.model.GetWorkoutsState().Workouts
	if index < 0 || index >= len(workouts) {
		c.model.SetNotice("Select a workout first")
		return
	}
	id := workouts[index].ID
	notes = strings.TrimSpace(notes)
	c.async("save notes", func(ctx context.Context) error {
		if err := c.backend.UpdateWorkoutNotes(ctx, id, notes); err != nil {
			return err
		}
		c.model.SetNotice("Notes saved")
		c.RefreshWorkouts()
		return nil
	})
}

// RefreshWorkouts reloads the history list and stats
func (c *UIController) RefreshWorkouts() {
	c.setWorkoutsBusy(true)
	c.async("list workouts", func(ctx context.Context) error {
		defer c.setWorkoutsBusy(false)
		workouts, err := c.backend.ListWorkouts(ctx, 1, historyPageSize)
		if err != nil {
			return err
		}
		stats, err := c.backend.WorkoutStats(ctx)
		if err != nil {
			c.logger.Warnf("UIController: workout stats: %v", err)
		}
		c.model.UpdateWorkouts(func(s *WorkoutsState) {
			s.Workouts = workouts
			if stats != nil {
				s.Stats = stats
			}
		})
		return nil
	})
}

// --- Session Methods ---

func (c *UIController) ToggleTimer() {
	c.report(c.session.ToggleTimer())
}

func (c *UIController) ResetTimer() {
	c.report(c.session.ResetTimer())
}

func (c *UIController) ToggleTimerMode() {
	c.report(c.session.ToggleTimerMode())
}

// QuickRest starts the countdown with the quick pick at index
func (c *UIController) QuickRest(index int) {
	picks := c.session.QuickPicks()
	if index < 0 || index >= len(picks) {
		return
	}
	c.report(c.session.QuickRest(picks[index]))
}

func (c *UIController) ToggleBlock(block int) {
	c.report(c.session.ToggleBlock(block))
}

func (c *UIController) ToggleExercise(block, exercise int) {
	c.report(c.session.ToggleExercise(block, exercise))
}

// CompleteWorkout marks the loaded workout complete. The session controller
// rejects a second call while the first is in flight.
func (c *UIController) CompleteWorkout() {
	c.async("complete workout", func(ctx context.Context) error {
		_, err := c.session.Complete(ctx)
		switch {
		case err == nil, errors.Is(err, session.ErrCompletionInFlight):
			return nil
		case errors.Is(err, session.ErrNotReady):
			return err
		}
		// Server failures already reach the notice line through ListenToErrors
		return nil
	})
}

func (c *UIController) AcknowledgeLevelUp() {
	c.session.AcknowledgeLevelUp()
}

func (c *UIController) LeaveSession() {
	c.session.Back()
}

// --- Goals Methods ---

// CycleGoalFilter moves to the next goal filter and reloads
func (c *UIController) CycleGoalFilter() {
	c.model.UpdateGoals(func(s *GoalsState) {
		s.Filter = nextGoalFilter(s.Filter)
	})
	c.RefreshGoals()
}

func (c *UIController) RefreshGoals() {
	filter := c.model.GetGoalsState().Filter
	c.async("list goals", func(ctx context.Context) error {
		goals, err := c.backend.ListGoals(ctx, filter)
		if err != nil {
			return err
		}
		stats, err := c.backend.GoalStats(ctx)
		if err != nil {
			c.logger.Warnf("UIController: goal stats: %v", err)
		}
		c.model.UpdateGoals(func(s *GoalsState) {
			if s.Filter != filter {
				// a newer refresh is on its way
				return
			}
			s.Goals = goals
			if stats != nil {
				s.Stats = stats
			}
		})
		return nil
	})
}

// CreateGoal validates the form fields and saves a new goal. deadline is
// optional and uses the YYYY-MM-DD layout.
func (c *UIController) CreateGoal(description string, goalType models.GoalType, target, deadline string) {
	goal := models.NewGoal{Description: strings.TrimSpace(description), Type: goalType}
	if goal.Description == "" {
		c.model.SetNotice("Goal needs a description")
		return
	}
	if !isGoalType(goalType) {
		c.model.SetNotice(fmt.Sprintf("Unknown goal type %q", goalType))
		return
	}
	value, err := parsePositive(target)
	if err != nil {
		c.model.SetNotice("Target " + err.Error())
		return
	}
	goal.TargetValue = value
	if deadline = strings.TrimSpace(deadline); deadline != "" {
		if _, err := time.Parse(time.DateOnly, deadline); err != nil {
			c.model.SetNotice("Deadline must look like 2026-12-31")
			return
		}
		goal.Deadline = deadline
	}

	c.async("create goal", func(ctx context.Context) error {
		created, err := c.backend.CreateGoal(ctx, goal)
		if err != nil {
			return err
		}
		c.logger.Infof("UIController: created goal %d", created.ID)
		c.model.SetNotice("Goal created")
		c.RefreshGoals()
		return nil
	})
}

// UpdateGoalProgress records the current value of the goal at index
func (c *UIController) UpdateGoalProgress(index int, current string) {
	goal, ok := c.goalAt(index)
	if !ok {
		c.model.SetNotice("Select a goal first")
		return
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(current), 64)
	if err != nil || value < 0 {
		c.model.SetNotice("Progress must be a number, zero or more")
		return
	}
	c.async("update goal", func(ctx context.Context) error {
		updated, err := c.backend.UpdateGoalProgress(ctx, goal.ID, value)
		if err != nil {
			return err
		}
		if updated.Completed && !goal.Completed {
			c.model.SetNotice("Goal reached: " + updated.Description)
		} else {
			c.model.SetNotice(fmt.Sprintf("Progress saved (%.0f%%)", updated.Progress))
		}
		c.RefreshGoals()
		return nil
	})
}

func (c *UIController) CompleteGoal(index int) {
	goal, ok := c.goalAt(index)
	if !ok {
		return
	}
	if goal.Completed {
		c.model.SetNotice("Goal already completed")
		return
	}
	c.async("complete goal", func(ctx context.Context) error {
		if err := c.backend.CompleteGoal(ctx, goal.ID); err != nil {
			return err
		}
		c.RefreshGoals()
		return nil
	})
}

func (c *UIController) DeleteGoal(index int) {
	goal, ok := c.goalAt(index)
	if !ok {
		return
	}
	c.async("delete goal", func(ctx context.Context) error {
		if err := c.backend.DeleteGoal(ctx, goal.ID); err != nil {
			return err
		}
		c.RefreshGoals()
		return nil
	})
}

// --- Records Methods ---

func (c *UIController) RefreshRecords() {
	c.async("list records", func(ctx context.Context) error {
		prs, err := c.backend.PersonalRecords(ctx, "")
		if err != nil {
			return err
		}
		recent, err := c.backend.RecentPRs(ctx, recentPRCount)
		if err != nil {
			c.logger.Warnf("UIController: recent records: %v", err)
		}
		c.model.UpdateRecords(func(s *RecordsState) {
			s.PersonalRecords = prs
			s.Recent = recent
		})
		return nil
	})
}

// LogRecord validates the form fields and logs a measurement. The server
// decides whether it beats the previous best.
func (c *UIController) LogRecord(exercise string, recordType models.RecordType, value, notes string) {
	record := models.NewRecord{
		Exercise: strings.TrimSpace(exercise),
		Type:     recordType,
		Notes:    strings.TrimSpace(notes),
	}
	if record.Exercise == "" {
		c.model.SetNotice("Record needs an exercise")
		return
	}
	if !isRecordType(recordType) {
		c.model.SetNotice(fmt.Sprintf("Unknown record type %q", recordType))
		return
	}
	v, err := parsePositive(value)
	if err != nil {
		c.model.SetNotice("Value " + err.Error())
		return
	}
	record.Value = v

	c.async("log record", func(ctx context.Context) error {
		result, err := c.backend.CreateRecord(ctx, record)
		if err != nil {
			return err
		}
		c.model.SetNotice(recordNotice(result))
		c.RefreshRecords()
		return nil
	})
}

// ShowExerciseHistory loads every entry logged for the record at index
func (c *UIController) ShowExerciseHistory(index int) {
	pr, ok := c.recordAt(index)
	if !ok {
		c.model.SetNotice("Select a record first")
		return
	}
	c.async("exercise history", func(ctx context.Context) error {
		history, err := c.backend.ExerciseHistory(ctx, pr.Exercise, pr.Type)
		if err != nil {
			return err
		}
		c.model.UpdateRecords(func(s *RecordsState) {
			s.History = history
			s.HistoryOf = pr.Exercise
		})
		return nil
	})
}

func (c *UIController) DeleteRecord(index int) {
	pr, ok := c.recordAt(index)
	if !ok {
		return
	}
	c.async("delete record", func(ctx context.Context) error {
		if err := c.backend.DeleteRecord(ctx, pr.ID); err != nil {
			return err
		}
		c.model.UpdateRecords(func(s *RecordsState) {
			if s.HistoryOf == pr.Exercise {
				s.History, s.HistoryOf = nil, ""
			}
		})
		c.RefreshRecords()
		return nil
	})
}

// --- Calendar Methods ---

// ShiftCalendarMonth moves the calendar delta months and reloads it
func (c *UIController) ShiftCalendarMonth(delta int) {
	c.model.UpdateCalendar(func(s *CalendarState) {
		c.defaultMonth(s)
		s.Year, s.Month = shiftMonth(s.Year, s.Month, delta)
		s.Days = nil
	})
	c.RefreshCalendar()
}

// RefreshCalendar loads the trained days of the shown month, starting at
// the current month.
func (c *UIController) RefreshCalendar() {
	var year, month int
	c.model.UpdateCalendar(func(s *CalendarState) {
		c.defaultMonth(s)
		year, month = s.Year, s.Month
	})
	c.async("load calendar", func(ctx context.Context) error {
		days, err := c.backend.WorkoutCalendar(ctx, year, month)
		if err != nil {
			return err
		}
		c.model.UpdateCalendar(func(s *CalendarState) {
			if s.Year != year || s.Month != month {
				// a newer month is on its way
				return
			}
			s.Days = days
		})
		return nil
	})
}

// Shutdown stops in-flight requests and the listeners
func (c *UIController) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

// --- Private methods ---

// async runs fn off the UI goroutine. Failures go to the log and the notice
// line.
func (c *UIController) async(what string, fn func(ctx context.Context) error) {
	c.wg.Add(1)
	safego.Go(c.logger, func() {
		defer c.wg.Done()
		started := time.Now()
		err := fn(c.ctx)
		if err == nil {
			c.logger.Debugf("UIController: %s done in %s", what, time.Since(started).Round(time.Millisecond))
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Warnf("UIController: %s failed: %v", what, err)
		c.model.SetNotice(fmt.Sprintf("%s failed: %s", what, describeError(err)))
	})
}

// report surfaces a synchronous session error
func (c *UIController) report(err error) {
	if err == nil {
		return
	}
	c.logger.Debugf("UIController: %v", err)
	c.model.SetNotice(describeError(err))
}

func (c *UIController) refreshUser() {
	c.async("refresh user", func(ctx context.Context) error {
		return c.auth.Refresh(ctx, c.backend)
	})
}

func (c *UIController) setWorkoutsBusy(busy bool) {
	c.model.UpdateWorkouts(func(s *WorkoutsState) { s.Busy = busy })
}

// defaultMonth MUST be called from inside a model update.
func (c *UIController) defaultMonth(s *CalendarState) {
	if s.Year == 0 {
		now := c.now()
		s.Year, s.Month = now.Year(), int(now.Month())
	}
}

func (c *UIController) recordAt(index int) (models.PersonalRecord, bool) {
	prs := c.model.GetRecordsState().PersonalRecords
	if index < 0 || index >= len(prs) {
		return models.PersonalRecord{}, false
	}
	return prs[index], true
}

func (c *UIController) goalAt(index int) (models.Goal, bool) {
	goals := c.model.GetGoalsState().Goals
	if index < 0 || index >= len(goals) {
		return models.Goal{}, false
	}
	return goals[index], true
}

// parsePositive reads a form number that must be above zero
func parsePositive(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, errors.New("must be a number")
	}
	if v <= 0 {
		return 0, errors.New("must be above zero")
	}
	return v, nil
}

// recordNotice summarizes a logged record for the status line
func recordNotice(result *models.RecordResult) string {
	value := formatRecordValue(result.Record)
	if !result.IsPR {
		return fmt.Sprintf("Record saved: %s %s", result.Record.Exercise, value)
	}
	msg := fmt.Sprintf("New personal record: %s %s", result.Record.Exercise, value)
	if imp := result.Improvement; imp != nil && imp.IsPositive {
		msg += fmt.Sprintf(" (+%g, +%s%%)", imp.Absolute, imp.Percentage)
	}
	return msg
}

// describeError turns known errors into short status line text
func describeError(err error) string {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, api.ErrUnauthorized):
		return "not signed in"
	case errors.Is(err, session.ErrWorkoutCompleted):
		return "workout already completed"
	case errors.Is(err, session.ErrNotReady):
		return "no workout ready"
	case errors.Is(err, auth.ErrMissingCredentials):
		return auth.ErrMissingCredentials.Error()
	}
	return err.Error()
}
