package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_FiresCallback(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	var fired atomic.Bool
	manager.AddTimer(5*time.Millisecond, func() { fired.Store(true) })

	deadline := time.Now().Add(time.Second)
	for !fired.Load() {
		if time.Now().After(deadline) {
			t.Fatal("Timer did not fire within a second")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTimerManager_RemoveCancels(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	var fired atomic.Bool
	id := manager.AddTimer(20*time.Millisecond, func() { fired.Store(true) })
	manager.RemoveTimer(id)

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Fatal("Removed timer should not fire")
	}
}

func TestActionTimeout_SoftThenHard(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	timeout := NewActionTimeout(manager, true, 10*time.Millisecond, 40*time.Millisecond)

	var softAt, hardAt atomic.Int64
	timeout.Start(
		func() { softAt.Store(time.Now().UnixNano()) },
		func() { hardAt.Store(time.Now().UnixNano()) },
	)

	deadline := time.Now().Add(time.Second)
	for hardAt.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Hard deadline did not fire")
		}
		time.Sleep(time.Millisecond)
	}

	if softAt.Load() == 0 {
		t.Fatal("Soft deadline should fire before the hard deadline")
	}
	if softAt.Load() > hardAt.Load() {
		t.Error("Soft deadline fired after the hard deadline")
	}
	if !timeout.DidSoftTimeout() || !timeout.DidHardTimeout() {
		t.Error("Both fired flags should be set")
	}
}

func TestActionTimeout_StopCancelsDeadlines(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	timeout := NewActionTimeout(manager, true, 20*time.Millisecond, 40*time.Millisecond)

	var fired atomic.Bool
	timeout.Start(
		func() { fired.Store(true) },
		func() { fired.Store(true) },
	)
	timeout.Stop()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Fatal("Stopped timeout should not fire")
	}
	if timeout.DidSoftTimeout() || timeout.DidHardTimeout() {
		t.Error("Fired flags should stay clear after Stop")
	}
}

func TestActionTimeout_DisabledNeverFires(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	timeout := NewActionTimeout(manager, false, time.Millisecond, 2*time.Millisecond)

	var fired atomic.Bool
	timeout.Start(
		func() { fired.Store(true) },
		func() { fired.Store(true) },
	)

	time.Sleep(30 * time.Millisecond)
	if fired.Load() {
		t.Fatal("A timeout with canTimeout=false must never fire")
	}
}

func TestActionTimeout_TimeDiff(t *testing.T) {
	manager := NewTimerManagerWithTick(time.Millisecond)
	defer manager.Stop()

	timeout := NewActionTimeout(manager, false, 0, 0)
	timeout.Start(func() {}, func() {})

	time.Sleep(10 * time.Millisecond)
	if timeout.TimeDiff() < 10*time.Millisecond {
		t.Errorf("TimeDiff too small: %v", timeout.TimeDiff())
	}
}
