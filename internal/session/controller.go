package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/events"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

//go:generate mockgen -source=$GOFILE -destination=workout_api_mock_test.go -package=session

// WorkoutAPI is the part of the remote API the session needs.
type WorkoutAPI interface {
	GetWorkout(ctx context.Context, id int64) (*models.Workout, error)
	CompleteWorkout(ctx context.Context, id int64) (*models.CompletionResult, error)
}

// Status is the lifecycle state of the session controller.
type Status int

const (
	StatusIdle       Status = iota // Nothing loaded
	StatusLoading                  // Fetching the workout
	StatusReady                    // Loaded, timer and progress interactive
	StatusCompleting               // Completion request in flight
	StatusCompleted                // Workout completed, read-only
	StatusError                    // Load failed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusCompleting:
		return "completing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Navigation is a request for the hosting layer to leave the session view.
type Navigation int

const (
	NavigateDashboard Navigation = iota // after a completed workout
	NavigateBack                        // manual "go back"
)

func (n Navigation) String() string {
	if n == NavigateDashboard {
		return "dashboard"
	}
	return "back"
}

// LevelUpNotice is shown after a completion that raised the user's level.
type LevelUpNotice struct {
	NewLevel            string
	WorkoutsToNextLevel int
}

var (
	// ErrNotReady is returned for interactions outside the Ready state.
	ErrNotReady = errors.New("session not ready")
	// ErrCompletionInFlight is returned when complete is invoked again while
	// a completion request is outstanding. The second call is ignored.
	ErrCompletionInFlight = errors.New("completion already in flight")

	errEmptyWorkout = errors.New("empty workout response")
)

// Snapshot is everything a view needs to render the session.
type Snapshot struct {
	Status       Status
	Workout      *models.Workout
	Expanded     []int
	Completed    []ExerciseKey
	Percentage   float64
	Timer        TimerState
	RestBaseline int // seconds a reset restores in rest mode
	QuickPicks   []int
	LevelUp      *LevelUpNotice
	Err          error // load error in StatusError, last completion error otherwise
}

// IsExpanded reports whether block is expanded in the snapshot.
func (s Snapshot) IsExpanded(block int) bool {
	for _, b := range s.Expanded {
		if b == block {
			return true
		}
	}
	return false
}

// IsCompleted reports whether the exercise is checked off in the snapshot.
func (s Snapshot) IsCompleted(block, exercise int) bool {
	for _, k := range s.Completed {
		if k.Block == block && k.Exercise == exercise {
			return true
		}
	}
	return false
}

// Interactive reports whether timer and progress interactions are allowed.
func (s Snapshot) Interactive() bool {
	return s.Status == StatusReady || s.Status == StatusCompleting
}

// Controller drives one viewing of one workout: it loads it, owns the
// progress tracker and the interval timer, and handles completion.
//
// Lock order is publishMu, then mu, then the timer's lock. Timer methods that notify
// listeners are only called with mu released, since those notifications
// re-enter the controller.
type Controller struct {
	api        WorkoutAPI
	timer      *Timer
	logger     logrus.FieldLogger
	quickPicks []int

	mu       sync.RWMutex
	status   Status
	workout  *models.Workout
	progress *Progress
	levelUp  *LevelUpNotice
	lastErr  error
	loadSeq  uint64 // bumped whenever the loaded workout is replaced or discarded

	// publishMu keeps snapshot building and notification in one step so
	// listeners never end on a snapshot older than the controller's state.
	publishMu       sync.Mutex
	stateEvent      *events.ChannelEvent[Snapshot]
	navigationEvent *events.ChannelEvent[Navigation]
	errorEvent      *events.ChannelEvent[error]

	unregisterTimer func()
	closeOnce       sync.Once
}

// DefaultQuickPicks are the rest shortcuts offered when none are configured.
var DefaultQuickPicks = []int{30, 60, 90, 120}

// NewControllerArg holds the arguments for creating a Controller.
type NewControllerArg struct {
	API        WorkoutAPI
	Timer      *Timer
	Logger     logrus.FieldLogger
	QuickPicks []int
}

// NewController creates an idle controller.
func NewController(args NewControllerArg) *Controller {
	if args.API == nil {
		panic("SessionController: api cannot be nil")
	}
	if args.Timer == nil {
		panic("SessionController: timer cannot be nil")
	}
	if args.Logger == nil {
		panic("SessionController: logger cannot be nil")
	}
	quickPicks := args.QuickPicks
	if len(quickPicks) == 0 {
		quickPicks = DefaultQuickPicks
	}

	c := &Controller{
		api:             args.API,
		timer:           args.Timer,
		logger:          args.Logger,
		quickPicks:      append([]int(nil), quickPicks...),
		status:          StatusIdle,
		stateEvent:      events.NewChannelEvent[Snapshot](true),
		navigationEvent: events.NewChannelEvent[Navigation](false),
		errorEvent:      events.NewChannelEvent[error](false),
	}
	c.unregisterTimer = c.timer.OnChange(func(TimerState) { c.publish() })
	return c
}

// ListenToState registers a channel for session snapshots. A new listener
// receives the latest snapshot right away.
func (c *Controller) ListenToState(ch chan Snapshot) func() {
	return c.stateEvent.Listen(ch)
}

// ListenToNavigation registers a channel for navigation requests.
func (c *Controller) ListenToNavigation(ch chan Navigation) func() {
	return c.navigationEvent.Listen(ch)
}

// ListenToErrors registers a channel for transient errors (failed completion).
func (c *Controller) ListenToErrors(ch chan error) func() {
	return c.errorEvent.Listen(ch)
}

// OnRestFinished registers cb for the end of a rest countdown, typically
// bound to an audio cue by the hosting layer.
func (c *Controller) OnRestFinished(cb func()) func() {
	return c.timer.OnFinished(cb)
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildSnapshot()
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Load fetches a workout and makes it the session's workout. Whatever was
// loaded before is discarded together with its progress and timer state.
func (c *Controller) Load(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.status = StatusLoading
	c.workout = nil
	c.progress = nil
	c.levelUp = nil
	c.lastErr = nil
	c.mu.Unlock()

	c.timer.SetMode(TimerModeRest)
	c.publish()
	c.logger.Infof("SessionController: loading workout %d", id)

	workout, err := c.api.GetWorkout(ctx, id)
	if err == nil && workout == nil {
		err = errEmptyWorkout
	}

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		c.logger.Debugf("SessionController: discarding stale load of workout %d", id)
		return nil
	}
	if err != nil {
		c.status = StatusError
		c.lastErr = err
		c.mu.Unlock()
		c.publish()
		c.logger.Errorf("SessionController: failed to load workout %d: %v", id, err)
		return fmt.Errorf("load workout %d: %w", id, err)
	}
	c.workout = workout.Clone()
	c.progress = NewProgress(c.workout)
	if c.workout.Completed {
		c.status = StatusCompleted
	} else {
		c.status = StatusReady
	}
	status := c.status
	exercises := c.workout.ExerciseCount()
	c.mu.Unlock()

	c.publish()
	c.logger.Infof("SessionController: workout %d loaded (%s, %d exercises)", id, status, exercises)
	return nil
}

// Complete submits the completion of the loaded workout. Partial progress is
// fine. A call while another submission is in flight is ignored and returns
// ErrCompletionInFlight. On failure the session goes back to Ready and the
// user may retry.
func (c *Controller) Complete(ctx context.Context) (*models.CompletionResult, error) {
	c.mu.Lock()
	switch c.status {
	case StatusCompleting:
		c.mu.Unlock()
		c.logger.Debugf("SessionController: complete ignored, submission in flight")
		return nil, ErrCompletionInFlight
	case StatusReady:
	default:
		status := c.status
		c.mu.Unlock()
		return nil, fmt.Errorf("complete in %s state: %w", status, ErrNotReady)
	}
	c.status = StatusCompleting
	c.lastErr = nil
	seq := c.loadSeq
	id := c.workout.ID
	c.mu.Unlock()

	c.publish()
	c.logger.Infof("SessionController: completing workout %d", id)

	result, err := c.api.CompleteWorkout(ctx, id)

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		c.logger.Debugf("SessionController: workout %d was replaced while completing", id)
		return result, err
	}
	if err != nil {
		c.status = StatusReady
		c.lastErr = err
		c.mu.Unlock()
		c.publish()
		c.errorEvent.Notify(err)
		c.logger.Errorf("SessionController: failed to complete workout %d: %v", id, err)
		return nil, fmt.Errorf("complete workout %d: %w", id, err)
	}
	if result == nil {
		result = &models.CompletionResult{}
	}
	c.workout.Completed = true
	c.progress.SetReadOnly()
	c.status = StatusCompleted
	if result.LeveledUp {
		c.levelUp = &LevelUpNotice{
			NewLevel:            result.NewLevel,
			WorkoutsToNextLevel: result.WorkoutsToNextLevel,
		}
	}
	c.mu.Unlock()

	// Completed workouts hide the timer.
	c.timer.Pause()
	c.publish()

	if result.LeveledUp {
		c.logger.Infof("SessionController: workout %d completed, level up to %s", id, result.NewLevel)
	} else {
		c.logger.Infof("SessionController: workout %d completed", id)
		c.navigationEvent.Notify(NavigateDashboard)
	}
	return result, nil
}

// AcknowledgeLevelUp dismisses the level-up notice and releases the deferred
// navigation to the dashboard.
func (c *Controller) AcknowledgeLevelUp() {
	c.mu.Lock()
	if c.levelUp == nil {
		c.mu.Unlock()
		return
	}
	c.levelUp = nil
	c.mu.Unlock()

	c.publish()
	c.navigationEvent.Notify(NavigateDashboard)
}

// Back requests navigation away from the session view.
func (c *Controller) Back() {
	c.navigationEvent.Notify(NavigateBack)
}

// ToggleBlock expands or collapses a block. Allowed whenever a workout is
// loaded, including completed ones.
func (c *Controller) ToggleBlock(block int) error {
	c.mu.Lock()
	if c.progress == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	_, err := c.progress.ToggleBlockExpanded(block)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.publish()
	return nil
}

// ToggleExercise checks an exercise off or back on. Pure local bookkeeping.
func (c *Controller) ToggleExercise(block, exercise int) error {
	c.mu.Lock()
	switch {
	case c.status == StatusCompleted:
		c.mu.Unlock()
		return ErrWorkoutCompleted
	case c.status != StatusReady && c.status != StatusCompleting:
		c.mu.Unlock()
		return ErrNotReady
	}
	_, err := c.progress.ToggleExerciseCompleted(block, exercise)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.publish()
	return nil
}

// StartTimer starts the interval timer.
func (c *Controller) StartTimer() error {
	return c.withTimer(func(t *Timer) { t.Start() })
}

// PauseTimer pauses the interval timer.
func (c *Controller) PauseTimer() error {
	return c.withTimer(func(t *Timer) { t.Pause() })
}

// ToggleTimer starts or pauses the interval timer.
func (c *Controller) ToggleTimer() error {
	return c.withTimer(func(t *Timer) { t.Toggle() })
}

// ResetTimer resets the active timer counter.
func (c *Controller) ResetTimer() error {
	return c.withTimer(func(t *Timer) { t.Reset() })
}

// SetTimerMode switches the timer mode, resetting both counters.
func (c *Controller) SetTimerMode(mode TimerMode) error {
	return c.withTimer(func(t *Timer) { t.SetMode(mode) })
}

// ToggleTimerMode flips between rest and stopwatch.
func (c *Controller) ToggleTimerMode() error {
	return c.withTimer(func(t *Timer) { t.ToggleMode() })
}

// QuickRest starts a rest countdown of seconds.
func (c *Controller) QuickRest(seconds int) error {
	var err error
	if werr := c.withTimer(func(t *Timer) { err = t.SetRestDuration(seconds) }); werr != nil {
		return werr
	}
	return err
}

// QuickPicks returns the configured rest shortcuts in seconds.
func (c *Controller) QuickPicks() []int {
	return append([]int(nil), c.quickPicks...)
}

// Unload discards the workout and cancels any scheduled tick, as when the
// user navigates away from the session view.
func (c *Controller) Unload() {
	c.mu.Lock()
	c.loadSeq++
	c.status = StatusIdle
	c.workout = nil
	c.progress = nil
	c.levelUp = nil
	c.lastErr = nil
	c.mu.Unlock()

	c.timer.SetMode(TimerModeRest)
	c.publish()
}

// Close releases the timer. Safe to call multiple times.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.logger.Debugf("SessionController: closing")
		c.unregisterTimer()
		c.timer.Close()
	})
}

// --- Private methods ---

func (c *Controller) withTimer(fn func(t *Timer)) error {
	c.mu.RLock()
	status := c.status
	c.mu.RUnlock()

	if status != StatusReady && status != StatusCompleting {
		return fmt.Errorf("timer in %s state: %w", status, ErrNotReady)
	}
	fn(c.timer)
	return nil
}

func (c *Controller) publish() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.RLock()
	snapshot := c.buildSnapshot()
	c.mu.RUnlock()
	c.stateEvent.Notify(snapshot)
}

// buildSnapshot copies the session state.
// MUST be called with mu held (at least read lock).
func (c *Controller) buildSnapshot() Snapshot {
	s := Snapshot{
		Status:       c.status,
		Workout:      c.workout.Clone(),
		Timer:        c.timer.State(),
		RestBaseline: c.timer.RestBaseline(),
		QuickPicks:   append([]int(nil), c.quickPicks...),
		Err:          c.lastErr,
	}
	if c.progress != nil {
		s.Expanded = c.progress.ExpandedBlocks()
		s.Completed = c.progress.CompletedExercises()
		s.Percentage = c.progress.Percentage()
	}
	if c.levelUp != nil {
		notice := *c.levelUp
		s.LevelUp = &notice
	}
	return s
}
