package session

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// manualScheduler hands out tasks that only run when the test calls Tick.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	scheduler *manualScheduler
	fn        func()
	canceled  bool
}

func (t *manualTask) Cancel() {
	t.scheduler.mu.Lock()
	t.canceled = true
	t.scheduler.mu.Unlock()
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) TickHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{scheduler: s, fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Active returns how many tasks are scheduled and not canceled.
func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.tasks {
		if !task.canceled {
			n++
		}
	}
	return n
}

// Last returns the most recently scheduled task.
func (s *manualScheduler) Last() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	return s.tasks[len(s.tasks)-1]
}

// Tick fires every active task n times, one round at a time.
func (s *manualScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		active := make([]*manualTask, 0, len(s.tasks))
		for _, task := range s.tasks {
			if !task.canceled {
				active = append(active, task)
			}
		}
		s.mu.Unlock()

		for _, task := range active {
			task.fn()
		}
	}
}

func newManualTimer(restSeconds int) (*Timer, *manualScheduler) {
	scheduler := &manualScheduler{}
	timer := NewTimer(NewTimerArg{
		Logger:      newTestLogger(),
		Scheduler:   scheduler,
		RestSeconds: restSeconds,
	})
	return timer, scheduler
}
