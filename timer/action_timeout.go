// timer/action_timeout.go
package timer

import (
	"sync"
	"time"
)

// ActionTimeout is the dual-deadline timer armed for one requested move.
// The soft deadline flags the move as late but keeps waiting; the hard
// deadline is final. At most one ActionTimeout is live per game.
type ActionTimeout struct {
	manager *TimerManager

	softDuration time.Duration
	hardDuration time.Duration
	canTimeout   bool

	startedAt time.Time
	softFired bool
	hardFired bool
	stopped   bool

	softTimerID int64
	hardTimerID int64

	mutex sync.Mutex
}

// NewActionTimeout creates a timeout with the given budgets. With
// canTimeout false the timer never fires and Start is a no-op apart
// from recording the start time.
func NewActionTimeout(manager *TimerManager, canTimeout bool, soft, hard time.Duration) *ActionTimeout {
	return &ActionTimeout{
		manager:      manager,
		canTimeout:   canTimeout,
		softDuration: soft,
		hardDuration: hard,
	}
}

// Start arms both deadlines. onSoft and onHard run on the timer
// goroutine, at most once each; neither runs after Stop returns true
// for the race (see fire).
func (t *ActionTimeout) Start(onSoft, onHard func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.startedAt = time.Now()
	if !t.canTimeout {
		return
	}

	t.softTimerID = t.manager.AddTimer(t.softDuration, func() {
		if t.fire(&t.softFired) {
			onSoft()
		}
	})
	t.hardTimerID = t.manager.AddTimer(t.hardDuration, func() {
		if t.fire(&t.hardFired) {
			onHard()
		}
	})
}

// fire resolves the race between a deadline and Stop.
func (t *ActionTimeout) fire(flag *bool) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.stopped {
		return false
	}
	*flag = true
	return true
}

// Stop cancels pending deadlines. The soft flag survives: a move that
// arrives between the two deadlines is accepted but marked late.
func (t *ActionTimeout) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.canTimeout {
		t.manager.RemoveTimer(t.softTimerID)
		t.manager.RemoveTimer(t.hardTimerID)
	}
}

func (t *ActionTimeout) DidSoftTimeout() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.softFired
}

func (t *ActionTimeout) DidHardTimeout() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.hardFired
}

// TimeDiff reports how long the move has been outstanding.
func (t *ActionTimeout) TimeDiff() time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return time.Since(t.startedAt)
}
