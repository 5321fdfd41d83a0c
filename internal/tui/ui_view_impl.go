package tui

import (
	"github.com/lowaak/workout-session/workout-session-app/internal/session"
)

// UIViewImpl defines the interface for framework-specific UI implementations
type UIViewImpl interface {
	// Initialize is called after construction to set up framework-specific widgets
	// controller is used to handle UI events
	Initialize(controller *UIController)

	// SetupKeyboardHandlers sets up keyboard event handlers
	// controller is used to handle keyboard events
	SetupKeyboardHandlers(controller *UIController)

	// Run starts the UI framework and blocks until it exits
	Run() error

	// Stop stops the UI framework
	Stop()

	// Draw refreshes/redraws the UI
	Draw() error

	// Beep plays the audible cue at the end of a rest countdown
	Beep()

	// --- Mode Management ---

	// SetMode switches the UI to the specified mode
	SetMode(mode UIMode)

	// GetCurrentMode returns the currently active UI mode
	GetCurrentMode() UIMode

	// SetUIState updates the header (signed-in user, mode hints)
	SetUIState(state UIState)

	// SetNotice shows a transient message in the status line
	SetNotice(msg string)

	// --- Log View (shared across modes) ---

	// GetLogViewHeight returns the visible height of the log view
	GetLogViewHeight() int

	// ClearLogView clears the log view
	ClearLogView()

	// WriteLogLine writes a line to the log view
	WriteLogLine(line string) error

	// --- Per-mode content ---

	// UpdateWorkouts refreshes the generator and history screen
	UpdateWorkouts(state WorkoutsState)

	// UpdateSession refreshes the session screen
	UpdateSession(snapshot session.Snapshot)

	// UpdateGoals refreshes the goals screen
	UpdateGoals(state GoalsState)

	// UpdateRecords refreshes the records screen
	UpdateRecords(state RecordsState)

	// UpdateCalendar refreshes the month view
	UpdateCalendar(state CalendarState)
}
