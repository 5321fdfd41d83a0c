// Package tui is the terminal front end: a UIModel holding what is shown, a
// UIController turning key presses into calls on the session engine and the
// API, and a tview view that renders the model.
package tui

import (
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeLogin    UIMode = iota // Sign in or register
	UIModeWorkouts               // Generate a workout, browse history
	UIModeSession                // The in-session workout view
	UIModeGoals                  // Goals list and stats
	UIModeRecords                // Personal records
	UIModeCalendar               // Month view of trained days
)

func (m UIMode) String() string {
	if info, ok := GetUIModeInfo(m); ok {
		return info.DisplayName
	}
	return fmt.Sprintf("UIMode(%d)", int(m))
}

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  tcell.Key // function key that activates the mode; KeyNUL for none
	NeedsAuth   bool
}

// AllUIModes defines all available UI modes in order. Digits are left free
// for the rest quick picks on the session screen.
var AllUIModes = []UIModeInfo{
	{Mode: UIModeLogin, DisplayName: "Login", KeyBinding: tcell.KeyNUL},
	{Mode: UIModeWorkouts, DisplayName: "Workouts", KeyBinding: tcell.KeyF1, NeedsAuth: true},
	{Mode: UIModeSession, DisplayName: "Session", KeyBinding: tcell.KeyF2, NeedsAuth: true},
	{Mode: UIModeGoals, DisplayName: "Goals", KeyBinding: tcell.KeyF3, NeedsAuth: true},
	{Mode: UIModeRecords, DisplayName: "Records", KeyBinding: tcell.KeyF4, NeedsAuth: true},
	{Mode: UIModeCalendar, DisplayName: "Calendar", KeyBinding: tcell.KeyF5, NeedsAuth: true},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key tcell.Key) (UIMode, bool) {
	if key == tcell.KeyNUL {
		return 0, false
	}
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

// Generate duration bounds, in minutes.
const (
	MinGenerateMinutes  = 15
	MaxGenerateMinutes  = 120
	GenerateStepMinutes = 5
)

// ClampGenerateMinutes keeps a requested routine length inside the bounds
// the generator accepts.
func ClampGenerateMinutes(minutes int) int {
	return min(max(minutes, MinGenerateMinutes), MaxGenerateMinutes)
}

// goalFilterCycle is the order the filter key walks through.
var goalFilterCycle = []models.GoalFilter{
	models.GoalFilterAll,
	models.GoalFilterActive,
	models.GoalFilterCompleted,
	models.GoalFilterOverdue,
}

func nextGoalFilter(current models.GoalFilter) models.GoalFilter {
	for i, f := range goalFilterCycle {
		if f == current {
			return goalFilterCycle[(i+1)%len(goalFilterCycle)]
		}
	}
	return models.GoalFilterAll
}

// Choices offered by the goal and record forms, in display order.
var (
	goalTypes   = []models.GoalType{models.GoalTypeWeight, models.GoalTypeReps, models.GoalTypeTime, models.GoalTypeWorkouts, models.GoalTypeCustom}
	recordTypes = []models.RecordType{models.RecordTypeWeight, models.RecordTypeReps, models.RecordTypeTime, models.RecordTypeDistance}
)

func isGoalType(t models.GoalType) bool {
	return slices.Contains(goalTypes, t)
}

func isRecordType(t models.RecordType) bool {
	return slices.Contains(recordTypes, t)
}

// shiftMonth moves year/month by delta months.
func shiftMonth(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month())
}

// formatMinutes formats a duration in minutes for display
func formatMinutes(minutes int) string {
	if minutes >= 60 {
		hours := minutes / 60
		mins := minutes % 60
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%d min", minutes)
}
