package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/events"
	"github.com/lowaak/workout-session/workout-session-app/internal/safego"
)

// TimerMode selects which counter the interval timer drives.
type TimerMode int

const (
	TimerModeRest      TimerMode = iota // Countdown between sets
	TimerModeStopwatch                  // Count-up for continuous efforts
)

func (m TimerMode) String() string {
	switch m {
	case TimerModeRest:
		return "rest"
	case TimerModeStopwatch:
		return "stopwatch"
	default:
		return fmt.Sprintf("TimerMode(%d)", int(m))
	}
}

// DefaultRestSeconds is the countdown baseline used by reset and mode switches.
const DefaultRestSeconds = 60

// ErrInvalidRestDuration is returned for non-positive countdown lengths.
var ErrInvalidRestDuration = errors.New("rest duration must be positive")

// TimerState is a snapshot of the interval timer.
type TimerState struct {
	Mode             TimerMode
	RestRemaining    int  // seconds left on the countdown
	StopwatchElapsed int  // seconds counted up
	Running          bool // a tick is currently scheduled
}

// Seconds returns the counter of the active mode.
func (s TimerState) Seconds() int {
	if s.Mode == TimerModeStopwatch {
		return s.StopwatchElapsed
	}
	return s.RestRemaining
}

// Display renders the active counter as MM:SS.
func (s TimerState) Display() string {
	return FormatClock(s.Seconds())
}

// FormatClock renders seconds as zero-padded MM:SS. Minutes keep growing past
// 59; there is no hour field.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// TickHandle cancels one scheduled repeating task.
type TickHandle interface {
	Cancel()
}

// Scheduler runs fn every interval until the returned handle is canceled.
type Scheduler interface {
	Every(interval time.Duration, fn func()) TickHandle
}

type tickerScheduler struct {
	logger logrus.FieldLogger
}

// NewTickerScheduler returns a Scheduler backed by one time.Ticker and one
// goroutine per scheduled task.
func NewTickerScheduler(logger logrus.FieldLogger) Scheduler {
	if logger == nil {
		panic("TickerScheduler: logger cannot be nil")
	}
	return &tickerScheduler{logger: logger}
}

type tickerHandle struct {
	done chan struct{}
	once sync.Once
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.done) })
}

func (s *tickerScheduler) Every(interval time.Duration, fn func()) TickHandle {
	h := &tickerHandle{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	safego.Go(s.logger, func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				// Cancel may have raced with this tick; prefer the cancel.
				select {
				case <-h.done:
					return
				default:
				}
				fn()
			}
		}
	})
	return h
}

// Timer is the two-mode rest timer / stopwatch.
//
// At most one tick task exists per Timer: every path that schedules a task
// cancels the previous handle first, and every path that stops the timer
// (pause, reset, mode switch, countdown end, Close) cancels it. Ticks carry
// the generation they were scheduled under so a tick that was already in
// flight when its handle was canceled is dropped.
type Timer struct {
	logger       logrus.FieldLogger
	scheduler    Scheduler
	interval     time.Duration
	restBaseline int

	mu         sync.Mutex
	state      TimerState
	handle     TickHandle
	generation uint64
	closed     bool

	stateEvent    *events.CallbackEvent[TimerState]
	finishedEvent *events.CallbackEvent[struct{}]
}

// NewTimerArg holds the arguments for creating a Timer.
type NewTimerArg struct {
	Logger      logrus.FieldLogger
	Scheduler   Scheduler     // defaults to NewTickerScheduler
	Interval    time.Duration // defaults to one second
	RestSeconds int           // countdown baseline, defaults to DefaultRestSeconds
}

// NewTimer creates a stopped timer in rest mode.
func NewTimer(args NewTimerArg) *Timer {
	if args.Logger == nil {
		panic("Timer: logger cannot be nil")
	}
	if args.Scheduler == nil {
		args.Scheduler = NewTickerScheduler(args.Logger)
	}
	if args.Interval <= 0 {
		args.Interval = time.Second
	}
	if args.RestSeconds <= 0 {
		args.RestSeconds = DefaultRestSeconds
	}
	return &Timer{
		logger:        args.Logger,
		scheduler:     args.Scheduler,
		interval:      args.Interval,
		restBaseline:  args.RestSeconds,
		state:         TimerState{Mode: TimerModeRest, RestRemaining: args.RestSeconds},
		stateEvent:    events.NewCallbackEvent[TimerState](false),
		finishedEvent: events.NewCallbackEvent[struct{}](false),
	}
}

// State returns the current snapshot.
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RestBaseline returns the countdown value restored by Reset and SetMode.
func (t *Timer) RestBaseline() int {
	return t.restBaseline
}

// OnChange registers cb for every state change, including each tick.
func (t *Timer) OnChange(cb func(TimerState)) func() {
	return t.stateEvent.Listen(cb)
}

// OnFinished registers cb for the end of a rest countdown. It fires once per
// countdown, after the state change that set Running to false.
func (t *Timer) OnFinished(cb func()) func() {
	return t.finishedEvent.Listen(func(struct{}) { cb() })
}

// Start begins ticking. It does nothing when already running, when closed, or
// when a rest countdown is already at zero.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.closed || t.state.Running {
		t.mu.Unlock()
		return
	}
	if t.state.Mode == TimerModeRest && t.state.RestRemaining <= 0 {
		t.mu.Unlock()
		t.logger.Debugf("Timer: countdown already at zero, not starting")
		return
	}
	t.state.Running = true
	t.scheduleLocked()
	state := t.state
	t.mu.Unlock()

	t.logger.Debugf("Timer: started in %s mode at %s", state.Mode, state.Display())
	t.stateEvent.Notify(state)
}

// Pause stops ticking without touching the counters.
func (t *Timer) Pause() {
	t.mu.Lock()
	if !t.state.Running {
		t.mu.Unlock()
		return
	}
	t.cancelLocked()
	t.state.Running = false
	state := t.state
	t.mu.Unlock()

	t.logger.Debugf("Timer: paused at %s", state.Display())
	t.stateEvent.Notify(state)
}

// Toggle pauses a running timer and starts a stopped one.
func (t *Timer) Toggle() {
	if t.State().Running {
		t.Pause()
	} else {
		t.Start()
	}
}

// Reset stops the timer and restores the active mode's counter to baseline.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.cancelLocked()
	t.state.Running = false
	if t.state.Mode == TimerModeRest {
		t.state.RestRemaining = t.restBaseline
	} else {
		t.state.StopwatchElapsed = 0
	}
	state := t.state
	t.mu.Unlock()

	t.stateEvent.Notify(state)
}

// SetMode stops the timer, switches mode and restores both counters.
func (t *Timer) SetMode(mode TimerMode) {
	t.mu.Lock()
	t.cancelLocked()
	t.state = TimerState{
		Mode:          mode,
		RestRemaining: t.restBaseline,
	}
	state := t.state
	t.mu.Unlock()

	t.logger.Debugf("Timer: switched to %s mode", mode)
	t.stateEvent.Notify(state)
}

// ToggleMode switches between rest and stopwatch.
func (t *Timer) ToggleMode() {
	if t.State().Mode == TimerModeRest {
		t.SetMode(TimerModeStopwatch)
	} else {
		t.SetMode(TimerModeRest)
	}
}

// SetRestDuration switches to rest mode with a countdown of seconds and
// starts it immediately. The stopwatch counter is left alone.
func (t *Timer) SetRestDuration(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRestDuration, seconds)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.cancelLocked()
	t.state.Mode = TimerModeRest
	t.state.RestRemaining = seconds
	t.state.Running = true
	t.scheduleLocked()
	state := t.state
	t.mu.Unlock()

	t.logger.Debugf("Timer: rest countdown of %ds started", seconds)
	t.stateEvent.Notify(state)
	return nil
}

// Close cancels any scheduled tick. The timer ignores further Start calls.
// Safe to call multiple times.
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	wasRunning := t.state.Running
	t.cancelLocked()
	t.state.Running = false
	state := t.state
	t.mu.Unlock()

	if wasRunning {
		t.stateEvent.Notify(state)
	}
}

// --- Private methods (caller holds mu where noted) ---

// scheduleLocked replaces any existing tick task with a fresh one.
// MUST be called with mu held.
func (t *Timer) scheduleLocked() {
	t.cancelLocked()
	gen := t.generation
	t.handle = t.scheduler.Every(t.interval, func() { t.tick(gen) })
}

// cancelLocked cancels the current tick task and invalidates in-flight ticks.
// MUST be called with mu held.
func (t *Timer) cancelLocked() {
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
	t.generation++
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.state.Running {
		t.mu.Unlock()
		return
	}

	finished := false
	switch t.state.Mode {
	case TimerModeRest:
		t.state.RestRemaining--
		if t.state.RestRemaining <= 0 {
			t.state.RestRemaining = 0
			t.state.Running = false
			t.cancelLocked()
			finished = true
		}
	case TimerModeStopwatch:
		t.state.StopwatchElapsed++
	}
	state := t.state
	t.mu.Unlock()

	// External calls after releasing lock
	t.stateEvent.Notify(state)
	if finished {
		t.logger.Infof("Timer: rest countdown finished")
		t.finishedEvent.Notify(struct{}{})
	}
}
