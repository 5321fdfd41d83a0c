package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

var (
	// ErrWorkoutCompleted is returned when a completed (read-only) workout is edited.
	ErrWorkoutCompleted = errors.New("workout already completed")
	// ErrIndexOutOfRange is returned for block or exercise positions outside the workout.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ExerciseKey identifies an exercise by its position. Exercises carry no
// stable id in a generated routine, so position is identity.
type ExerciseKey struct {
	Block    int
	Exercise int
}

func (k ExerciseKey) String() string {
	return fmt.Sprintf("%d-%d", k.Block, k.Exercise)
}

// Progress tracks which blocks are expanded and which exercises are checked
// off for one loaded workout. It is plain bookkeeping: no I/O and no locking,
// the owning Controller serializes access.
type Progress struct {
	blockSizes []int
	total      int
	expanded   map[int]struct{}
	completed  map[ExerciseKey]struct{}
	readOnly   bool
}

// NewProgress creates the tracker for a freshly loaded workout: first block
// expanded, nothing completed.
func NewProgress(workout *models.Workout) *Progress {
	p := &Progress{
		expanded:  make(map[int]struct{}),
		completed: make(map[ExerciseKey]struct{}),
	}
	if workout == nil {
		return p
	}
	p.blockSizes = make([]int, len(workout.Blocks))
	for i, b := range workout.Blocks {
		p.blockSizes[i] = len(b.Exercises)
		p.total += len(b.Exercises)
	}
	if len(p.blockSizes) > 0 {
		p.expanded[0] = struct{}{}
	}
	p.readOnly = workout.Completed
	return p
}

// ToggleBlockExpanded flips whether block is expanded and returns the new
// membership. Any number of blocks may be expanded at once.
func (p *Progress) ToggleBlockExpanded(block int) (bool, error) {
	if block < 0 || block >= len(p.blockSizes) {
		return false, fmt.Errorf("block %d: %w", block, ErrIndexOutOfRange)
	}
	if _, ok := p.expanded[block]; ok {
		delete(p.expanded, block)
		return false, nil
	}
	p.expanded[block] = struct{}{}
	return true, nil
}

// ToggleExerciseCompleted flips the done mark of one exercise and returns the
// new membership. Completed workouts reject the change.
func (p *Progress) ToggleExerciseCompleted(block, exercise int) (bool, error) {
	if p.readOnly {
		return false, ErrWorkoutCompleted
	}
	if block < 0 || block >= len(p.blockSizes) || exercise < 0 || exercise >= p.blockSizes[block] {
		return false, fmt.Errorf("exercise %d-%d: %w", block, exercise, ErrIndexOutOfRange)
	}
	key := ExerciseKey{Block: block, Exercise: exercise}
	if _, ok := p.completed[key]; ok {
		delete(p.completed, key)
		return false, nil
	}
	p.completed[key] = struct{}{}
	return true, nil
}

// IsExpanded reports whether block is expanded.
func (p *Progress) IsExpanded(block int) bool {
	_, ok := p.expanded[block]
	return ok
}

// IsCompleted reports whether the exercise is checked off.
func (p *Progress) IsCompleted(block, exercise int) bool {
	_, ok := p.completed[ExerciseKey{Block: block, Exercise: exercise}]
	return ok
}

// ExpandedBlocks returns the expanded block indices in ascending order.
func (p *Progress) ExpandedBlocks() []int {
	out := make([]int, 0, len(p.expanded))
	for b := range p.expanded {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// CompletedExercises returns the checked-off exercises ordered by position.
func (p *Progress) CompletedExercises() []ExerciseKey {
	out := make([]ExerciseKey, 0, len(p.completed))
	for k := range p.completed {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Exercise < out[j].Exercise
	})
	return out
}

// CompletedCount returns how many exercises are checked off.
func (p *Progress) CompletedCount() int {
	return len(p.completed)
}

// TotalExercises returns the exercise count of the workout.
func (p *Progress) TotalExercises() int {
	return p.total
}

// Percentage returns 100 * completed / total, or 0 for an empty workout.
func (p *Progress) Percentage() float64 {
	if p.total == 0 {
		return 0
	}
	return 100 * float64(len(p.completed)) / float64(p.total)
}

// SetReadOnly freezes exercise completion. Block expansion stays available.
func (p *Progress) SetReadOnly() {
	p.readOnly = true
}

// ReadOnly reports whether exercise completion is frozen.
func (p *Progress) ReadOnly() bool {
	return p.readOnly
}
