package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

// newTestWorkout builds a workout with one block per entry in sizes.
func newTestWorkout(id int64, sizes ...int) *models.Workout {
	w := &models.Workout{
		ID:              id,
		Date:            "2026-10-15",
		Level:           models.LevelIntermediate,
		DurationMinutes: 45,
	}
	names := []string{"Calentamiento", "Principal", "Finisher", "Enfriamiento"}
	for b, size := range sizes {
		block := models.WorkoutBlock{Name: names[b%len(names)], DurationMinutes: 10}
		for e := 0; e < size; e++ {
			block.Exercises = append(block.Exercises, models.Exercise{
				Name:        "Sentadilla",
				MuscleGroup: "Piernas",
				Level:       string(models.LevelIntermediate),
			})
		}
		w.Blocks = append(w.Blocks, block)
	}
	return w
}

func TestNewProgress_FirstBlockExpanded(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 3, 2))

	assert.Equal(t, []int{0}, p.ExpandedBlocks())
	assert.Empty(t, p.CompletedExercises())
	assert.Equal(t, 5, p.TotalExercises())
	assert.Equal(t, 0.0, p.Percentage())
	assert.False(t, p.ReadOnly())
}

func TestNewProgress_NoBlocks(t *testing.T) {
	p := NewProgress(newTestWorkout(1))

	assert.Empty(t, p.ExpandedBlocks())
	assert.Equal(t, 0, p.TotalExercises())
	assert.Equal(t, 0.0, p.Percentage())

	_, err := p.ToggleBlockExpanded(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNewProgress_ZeroExercises(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 0, 0))

	assert.Equal(t, []int{0}, p.ExpandedBlocks())
	assert.Equal(t, 0.0, p.Percentage())
	_, err := p.ToggleExerciseCompleted(0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNewProgress_CompletedWorkoutIsReadOnly(t *testing.T) {
	w := newTestWorkout(1, 2)
	w.Completed = true
	p := NewProgress(w)

	assert.True(t, p.ReadOnly())
	_, err := p.ToggleExerciseCompleted(0, 0)
	assert.ErrorIs(t, err, ErrWorkoutCompleted)

	expanded, err := p.ToggleBlockExpanded(0)
	require.NoError(t, err)
	assert.False(t, expanded)
}

func TestProgress_PercentageAfterThreeOfFive(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 3, 2))

	for _, k := range []ExerciseKey{{0, 0}, {0, 2}, {1, 1}} {
		done, err := p.ToggleExerciseCompleted(k.Block, k.Exercise)
		require.NoError(t, err)
		assert.True(t, done)
	}

	assert.Equal(t, 60.0, p.Percentage())
	assert.Equal(t, 3, p.CompletedCount())
	assert.Equal(t, []ExerciseKey{{0, 0}, {0, 2}, {1, 1}}, p.CompletedExercises())
	assert.True(t, p.IsCompleted(0, 2))
	assert.False(t, p.IsCompleted(0, 1))
}

func TestProgress_ToggleTwiceRestoresState(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 3, 2, 1))

	for b, size := range []int{3, 2, 1} {
		for e := 0; e < size; e++ {
			before := p.CompletedExercises()
			_, err := p.ToggleExerciseCompleted(b, e)
			require.NoError(t, err)
			_, err = p.ToggleExerciseCompleted(b, e)
			require.NoError(t, err)
			assert.Equal(t, before, p.CompletedExercises(), "exercise %d-%d", b, e)
		}

		before := p.ExpandedBlocks()
		_, err := p.ToggleBlockExpanded(b)
		require.NoError(t, err)
		_, err = p.ToggleBlockExpanded(b)
		require.NoError(t, err)
		assert.Equal(t, before, p.ExpandedBlocks(), "block %d", b)
	}
}

func TestProgress_PercentageMonotonic(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 4, 3))

	last := p.Percentage()
	for b, size := range []int{4, 3} {
		for e := 0; e < size; e++ {
			_, err := p.ToggleExerciseCompleted(b, e)
			require.NoError(t, err)
			pct := p.Percentage()
			assert.Greater(t, pct, last)
			assert.LessOrEqual(t, pct, 100.0)
			last = pct
		}
	}
	assert.Equal(t, 100.0, last)

	for b, size := range []int{4, 3} {
		for e := 0; e < size; e++ {
			_, err := p.ToggleExerciseCompleted(b, e)
			require.NoError(t, err)
			pct := p.Percentage()
			assert.Less(t, pct, last)
			assert.GreaterOrEqual(t, pct, 0.0)
			last = pct
		}
	}
	assert.Equal(t, 0.0, last)
}

func TestProgress_MultipleBlocksExpanded(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 1, 1, 1))

	expanded, err := p.ToggleBlockExpanded(2)
	require.NoError(t, err)
	assert.True(t, expanded)

	assert.Equal(t, []int{0, 2}, p.ExpandedBlocks())
	assert.True(t, p.IsExpanded(2))
	assert.False(t, p.IsExpanded(1))
}

func TestProgress_OutOfRange(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 2))

	_, err := p.ToggleBlockExpanded(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = p.ToggleBlockExpanded(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = p.ToggleExerciseCompleted(0, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = p.ToggleExerciseCompleted(1, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, 0, p.CompletedCount())
}

func TestProgress_SetReadOnlyKeepsMarks(t *testing.T) {
	p := NewProgress(newTestWorkout(1, 2))
	_, err := p.ToggleExerciseCompleted(0, 1)
	require.NoError(t, err)

	p.SetReadOnly()
	_, err = p.ToggleExerciseCompleted(0, 1)
	assert.ErrorIs(t, err, ErrWorkoutCompleted)
	assert.Equal(t, 50.0, p.Percentage())
}

func TestExerciseKey_String(t *testing.T) {
	assert.Equal(t, "1-3", ExerciseKey{Block: 1, Exercise: 3}.String())
}
