// Package models holds the data shapes exchanged with the training API.
//
// Field names on the wire follow the API (Spanish exercise keys, "exercises"
// holding blocks); Go names describe what the fields are.
package models

import (
	"time"
)

// Level is the coarse skill tier of a user or a workout. Values are the
// localized labels the API returns.
type Level string

const (
	LevelBeginner     Level = "Principiante"
	LevelIntermediate Level = "Intermedio"
	LevelAdvanced     Level = "Avanzado"
)

// AllLevels lists the tiers from lowest to highest.
var AllLevels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Exercise is one entry inside a workout block.
type Exercise struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"nombre"`
	MuscleGroup string `json:"grupoMuscular"`
	Level       string `json:"nivel"`
	Order       int    `json:"order,omitempty"`
}

// WorkoutBlock is a named group of exercises (warm-up, main set, ...).
type WorkoutBlock struct {
	Name            string     `json:"block"`
	DurationMinutes int        `json:"duration"`
	Exercises       []Exercise `json:"exercises"`
}

// Workout is a generated routine. Block and exercise order is stable, so
// positions double as identity.
type Workout struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"userId,omitempty"`
	Date            string         `json:"date"`
	Level           Level          `json:"level"`
	DurationMinutes int            `json:"duration"`
	Blocks          []WorkoutBlock `json:"exercises"`
	Completed       bool           `json:"completed"`
	Notes           string         `json:"notes,omitempty"`
}

// ExerciseCount returns the number of exercises across all blocks.
func (w *Workout) ExerciseCount() int {
	total := 0
	for _, b := range w.Blocks {
		total += len(b.Exercises)
	}
	return total
}

// Clone returns a deep copy so snapshots handed to views never alias the
// controller's workout.
func (w *Workout) Clone() *Workout {
	if w == nil {
		return nil
	}
	out := *w
	out.Blocks = make([]WorkoutBlock, len(w.Blocks))
	for i, b := range w.Blocks {
		out.Blocks[i] = b
		out.Blocks[i].Exercises = append([]Exercise(nil), b.Exercises...)
	}
	return &out
}

// ParsedDate returns the workout date, accepting both full timestamps and
// plain calendar dates.
func (w *Workout) ParsedDate() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, w.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompletionResult is returned by POST /workouts/{id}/complete.
type CompletionResult struct {
	LeveledUp           bool   `json:"leveledUp"`
	NewLevel            string `json:"newLevel,omitempty"`
	WorkoutsToNextLevel int    `json:"workoutsToNextLevel,omitempty"`
}

// WorkoutPreview describes what the generator would produce for a level and
// duration without persisting anything.
type WorkoutPreview struct {
	Level        string `json:"level"`
	TotalMinutes int    `json:"totalMinutes"`
	Blocks       []struct {
		Key           string `json:"key"`
		Name          string `json:"name"`
		Duration      int    `json:"duration"`
		ExerciseCount int    `json:"exerciseCount"`
	} `json:"blocks"`
}

// WorkoutStats aggregates the user's workout history.
type WorkoutStats struct {
	Total struct {
		TotalWorkouts     int     `json:"totalWorkouts"`
		CompletedWorkouts int     `json:"completedWorkouts"`
		TotalDuration     int     `json:"totalDuration"`
		AvgDuration       float64 `json:"avgDuration"`
	} `json:"total"`
	Weekly []struct {
		Week          string `json:"week"`
		Count         int    `json:"count"`
		TotalDuration int    `json:"totalDuration"`
	} `json:"weekly"`
	ByLevel map[string]int `json:"byLevel"`
}

// CalendarDay is one entry of GET /workouts/calendar.
type CalendarDay struct {
	Date      string `json:"date"`
	Level     string `json:"level"`
	Completed bool   `json:"completed"`
	Duration  int    `json:"duration"`
}

// LevelProgress tracks how far the user is from the next level.
type LevelProgress struct {
	Current    int     `json:"current"`
	Required   int     `json:"required"`
	Percentage float64 `json:"percentage"`
}

// User is the authenticated account.
type User struct {
	ID                int64         `json:"id"`
	Email             string        `json:"email"`
	Name              string        `json:"name"`
	CurrentLevel      Level         `json:"currentLevel"`
	WorkoutsCompleted int           `json:"workoutsCompleted"`
	LevelProgress     LevelProgress `json:"levelProgress"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// GoalType classifies what a goal measures.
type GoalType string

const (
	GoalTypeWeight   GoalType = "weight"
	GoalTypeReps     GoalType = "reps"
	GoalTypeTime     GoalType = "time"
	GoalTypeWorkouts GoalType = "workouts"
	GoalTypeCustom   GoalType = "custom"
)

// GoalFilter narrows GET /goals.
type GoalFilter string

const (
	GoalFilterAll       GoalFilter = "all"
	GoalFilterActive    GoalFilter = "active"
	GoalFilterCompleted GoalFilter = "completed"
	GoalFilterOverdue   GoalFilter = "overdue"
)

// Goal is a user-defined target.
type Goal struct {
	ID           int64    `json:"id"`
	Description  string   `json:"description"`
	Type         GoalType `json:"type"`
	TargetValue  float64  `json:"targetValue"`
	CurrentValue float64  `json:"currentValue"`
	Progress     float64  `json:"progress"`
	Deadline     *string  `json:"deadline"`
	Completed    bool     `json:"completed"`
	IsOverdue    bool     `json:"isOverdue"`
}

// NewGoal is the body of POST /goals.
type NewGoal struct {
	Description string   `json:"description"`
	Type        GoalType `json:"type"`
	TargetValue float64  `json:"targetValue"`
	Deadline    string   `json:"deadline,omitempty"`
}

// GoalStats summarizes goals by state.
type GoalStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
	Overdue   int `json:"overdue"`
}

// RecordType classifies a personal record measurement.
type RecordType string

const (
	RecordTypeWeight   RecordType = "weight"
	RecordTypeReps     RecordType = "reps"
	RecordTypeTime     RecordType = "time"
	RecordTypeDistance RecordType = "distance"
)

// PersonalRecord is one logged measurement for an exercise.
type PersonalRecord struct {
	ID       int64      `json:"id"`
	Exercise string     `json:"exercise"`
	Type     RecordType `json:"type"`
	Value    float64    `json:"value"`
	Unit     string     `json:"unit"`
	Notes    string     `json:"notes"`
	IsPR     bool       `json:"isPR"`
	Date     string     `json:"date"`
}

// NewRecord is the body of POST /records.
type NewRecord struct {
	Exercise string     `json:"exercise"`
	Type     RecordType `json:"type"`
	Value    float64    `json:"value"`
	Notes    string     `json:"notes,omitempty"`
}

// RecordResult is returned when a record is logged.
type RecordResult struct {
	Record       PersonalRecord `json:"record"`
	IsPR         bool           `json:"isPR"`
	PreviousBest *float64       `json:"previousBest"`
	Improvement  *struct {
		Absolute   float64 `json:"absolute"`
		Percentage string  `json:"percentage"`
		IsPositive bool    `json:"isPositive"`
	} `json:"improvement"`
}

// ExerciseHistory lists every record logged for one exercise.
type ExerciseHistory struct {
	History      []PersonalRecord `json:"history"`
	BestRecord   *PersonalRecord  `json:"bestRecord"`
	TotalEntries int              `json:"totalEntries"`
}
