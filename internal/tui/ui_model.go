package tui

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/events"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
	"github.com/lowaak/workout-session/workout-session-app/internal/safego"
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
)

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
	User *models.User // nil when signed out
}

// WorkoutsState is what the workouts screen shows.
type WorkoutsState struct {
	Workouts        []models.Workout
	Stats           *models.WorkoutStats
	GenerateMinutes int
	Busy            bool                   // a generate or list request is in flight
	Preview         *models.WorkoutPreview // what generating at GenerateMinutes would give
}

// GoalsState is what the goals screen shows.
type GoalsState struct {
	Goals  []models.Goal
	Stats  *models.GoalStats
	Filter models.GoalFilter
}

// RecordsState is what the records screen shows.
type RecordsState struct {
	PersonalRecords []models.PersonalRecord
	Recent          []models.PersonalRecord
	History         *models.ExerciseHistory // entries for the exercise picked with ShowExerciseHistory
	HistoryOf       string
}

// CalendarState is what the calendar screen shows. Month is 1-12; a zero
// Year means no month has been picked yet.
type CalendarState struct {
	Year  int
	Month int
	Days  []models.CalendarDay
}

// SessionStateSource publishes session snapshots.
type SessionStateSource interface {
	ListenToState(ch chan session.Snapshot) func()
}

type UIModel struct {
	logEvent              *events.ChannelEvent[string]
	noticeEvent           *events.ChannelEvent[string]
	closeApplicationEvent *events.ChannelEvent[struct{}]
	uiStateEvent          *events.ChannelEvent[UIState]
	uiState               UIState
	workoutsEvent         *events.ChannelEvent[WorkoutsState]
	workoutsState         WorkoutsState
	goalsEvent            *events.ChannelEvent[GoalsState]
	goalsState            GoalsState
	recordsEvent          *events.ChannelEvent[RecordsState]
	recordsState          RecordsState
	calendarEvent         *events.ChannelEvent[CalendarState]
	calendarState         CalendarState
	sessionEvent          *events.ChannelEvent[session.Snapshot]
	sessionState          session.Snapshot
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex // also held across state notifications to keep them in order
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                logrus.FieldLogger
}

const maxLogLines = 1000

// NewUIModelArg holds the arguments for creating a UIModel.
type NewUIModelArg struct {
	Session         SessionStateSource
	Logger          logrus.FieldLogger
	UILogChan       <-chan string
	GenerateMinutes int
}

func NewUIModel(args NewUIModelArg) *UIModel {
	if args.Logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if args.UILogChan == nil {
		panic("UIModel: uiLogChan cannot be nil")
	}
	if args.Session == nil {
		panic("UIModel: session cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewChannelEvent[string](false),
		noticeEvent:           events.NewChannelEvent[string](false),
		closeApplicationEvent: events.NewChannelEvent[struct{}](true),
		uiStateEvent:          events.NewChannelEvent[UIState](true),
		uiState:               UIState{Mode: UIModeLogin},
		workoutsEvent:         events.NewChannelEvent[WorkoutsState](true),
		workoutsState:         WorkoutsState{GenerateMinutes: ClampGenerateMinutes(args.GenerateMinutes)},
		goalsEvent:            events.NewChannelEvent[GoalsState](true),
		goalsState:            GoalsState{Filter: models.GoalFilterAll},
		recordsEvent:          events.NewChannelEvent[RecordsState](true),
		calendarEvent:         events.NewChannelEvent[CalendarState](true),
		sessionEvent:          events.NewChannelEvent[session.Snapshot](true),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                args.Logger,
	}

	// Mirror session snapshots so views only ever talk to the model
	model.wg.Add(1)
	safego.Go(model.logger, func() { model.listenToSession(ctx, args.Session) })

	// Read from the UI log channel and populate logLines
	model.wg.Add(1)
	safego.Go(model.logger, func() { model.readFromLogChannel(ctx, args.UILogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Debugf("UIModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Debugf("UIModel: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToLog(ch chan string) func() {
	return m.logEvent.Listen(ch)
}

// ListenToNotice registers a channel for short user-facing messages
// (failed requests, validation errors).
func (m *UIModel) ListenToNotice(ch chan string) func() {
	return m.noticeEvent.Listen(ch)
}

// SetNotice shows msg in the status line.
func (m *UIModel) SetNotice(msg string) {
	m.noticeEvent.Notify(msg)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToCloseApplication(ch chan struct{}) func() {
	return m.closeApplicationEvent.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Notify(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToUIState(ch chan UIState) func() {
	return m.uiStateEvent.Listen(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiStateCopy()
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiStateCopy()
	m.uiStateEvent.Notify(state)
	m.mu.Unlock()
}

// SetUser records the signed-in user; nil means signed out.
func (m *UIModel) SetUser(user *models.User) {
	m.mu.Lock()
	m.uiState.User = copyUser(user)
	state := m.uiStateCopy()
	m.uiStateEvent.Notify(state)
	m.mu.Unlock()
}

// ListenToWorkouts registers a channel to receive workouts screen updates
func (m *UIModel) ListenToWorkouts(ch chan WorkoutsState) func() {
	return m.workoutsEvent.Listen(ch)
}

// GetWorkoutsState returns the current workouts screen state
func (m *UIModel) GetWorkoutsState() WorkoutsState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workoutsStateCopy()
}

// UpdateWorkouts applies fn to the workouts state and notifies listeners
func (m *UIModel) UpdateWorkouts(fn func(s *WorkoutsState)) {
	m.mu.Lock()
	fn(&m.workoutsState)
	state := m.workoutsStateCopy()
	m.workoutsEvent.Notify(state)
	m.mu.Unlock()
}

// ListenToGoals registers a channel to receive goals screen updates
func (m *UIModel) ListenToGoals(ch chan GoalsState) func() {
	return m.goalsEvent.Listen(ch)
}

// GetGoalsState returns the current goals screen state
func (m *UIModel) GetGoalsState() GoalsState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.goalsStateCopy()
}

// UpdateGoals applies fn to the goals state and notifies listeners
func (m *UIModel) UpdateGoals(fn func(s *GoalsState)) {
	m.mu.Lock()
	fn(&m.goalsState)
	state := m.goalsStateCopy()
	m.goalsEvent.Notify(state)
	m.mu.Unlock()
}

// ListenToRecords registers a channel to receive records screen updates
func (m *UIModel) ListenToRecords(ch chan RecordsState) func() {
	return m.recordsEvent.Listen(ch)
}

// GetRecordsState returns the current records screen state
func (m *UIModel) GetRecordsState() RecordsState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recordsStateCopy()
}

// UpdateRecords applies fn to the records state and notifies listeners
func (m *UIModel) UpdateRecords(fn func(s *RecordsState)) {
	m.mu.Lock()
	fn(&m.recordsState)
	state := m.recordsStateCopy()
	m.recordsEvent.Notify(state)
	m.mu.Unlock()
}

// ListenToCalendar registers a channel to receive calendar screen updates
func (m *UIModel) ListenToCalendar(ch chan CalendarState) func() {
	return m.calendarEvent.Listen(ch)
}

// GetCalendarState returns the current calendar screen state
func (m *UIModel) GetCalendarState() CalendarState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calendarStateCopy()
}

// UpdateCalendar applies fn to the calendar state and notifies listeners
func (m *UIModel) UpdateCalendar(fn func(s *CalendarState)) {
	m.mu.Lock()
	fn(&m.calendarState)
	state := m.calendarStateCopy()
	m.calendarEvent.Notify(state)
	m.mu.Unlock()
}

// ListenToSession registers a channel to receive session snapshots
func (m *UIModel) ListenToSession(ch chan session.Snapshot) func() {
	return m.sessionEvent.Listen(ch)
}

// GetSessionState returns the latest session snapshot
func (m *UIModel) GetSessionState() session.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionState
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n > len(m.logLines) {
		n = len(m.logLines)
	}
	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}

// listenToSession keeps the latest session snapshot and re-emits it
func (m *UIModel) listenToSession(ctx context.Context, source SessionStateSource) {
	defer m.wg.Done()

	ch := make(chan session.Snapshot, 1)
	unregister := source.ListenToState(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			m.mu.Lock()
			m.sessionState = snapshot
			m.mu.Unlock()

			m.sessionEvent.Notify(snapshot)
		}
	}
}

// The copy helpers below MUST be called with mu held.

func (m *UIModel) uiStateCopy() UIState {
	return UIState{Mode: m.uiState.Mode, User: copyUser(m.uiState.User)}
}

func (m *UIModel) workoutsStateCopy() WorkoutsState {
	s := m.workoutsState
	s.Workouts = append([]models.Workout(nil), s.Workouts...)
	return s
}

func (m *UIModel) goalsStateCopy() GoalsState {
	s := m.goalsState
	s.Goals = append([]models.Goal(nil), s.Goals...)
	return s
}

func (m *UIModel) recordsStateCopy() RecordsState {
	s := m.recordsState
	s.PersonalRecords = append([]models.PersonalRecord(nil), s.PersonalRecords...)
	s.Recent = append([]models.PersonalRecord(nil), s.Recent...)
	if s.History != nil {
		h := *s.History
		h.History = append([]models.PersonalRecord(nil), h.History...)
		if h.BestRecord != nil {
			best := *h.BestRecord
			h.BestRecord = &best
		}
		s.History = &h
	}
	return s
}

func (m *UIModel) calendarStateCopy() CalendarState {
	s := m.calendarState
	s.Days = append([]models.CalendarDay(nil), s.Days...)
	return s
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
