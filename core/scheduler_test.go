package core

import (
	"testing"
	"time"
)

// TestSchedulerRunToCompletionWithNoYield checks that a Task whose entry
// function never yields is reported finished by a single drain pass.
func TestSchedulerRunToCompletionWithNoYield(t *testing.T) {
	s := newScheduler(ReadyFIFO)
	task, err := newTask(nil, 1, func(t *Task, fd int) {})
	if err != nil {
		t.Fatal(err)
	}

	s.enqueueReady(task)

	finished := false
	s.drain(func(fin *Task) { finished = true })

	if !finished {
		t.Fatal("expected the task to finish on the first drain pass")
	}
}

func TestSchedulerYieldAndWake(t *testing.T) {
	s := newScheduler(ReadyFIFO)
	reachedYield := make(chan struct{})
	resumed := make(chan struct{})

	task, err := newTask(nil, 42, func(t *Task, fd int) {
		s.yieldOn(t, fd, WaitRead)
		close(resumed)
	})
	if err != nil {
		t.Fatal(err)
	}
	task.worker = &Worker{sched: s}

	go func() {
		s.enqueueReady(task)
		s.drain(func(*Task) {})
		close(reachedYield)
	}()

	<-reachedYield

	select {
	case <-resumed:
		t.Fatal("task should not resume before wake")
	case <-time.After(20 * time.Millisecond):
	}

	s.wake(42, WaitRead)
	s.drain(func(*Task) {})

	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Fatal("task should have resumed after wake")
	}
}

func TestSchedulerYieldOnReadTimeout(t *testing.T) {
	s := newScheduler(ReadyFIFO)
	var timedOut bool
	done := make(chan struct{})

	task, err := newTask(nil, 9, func(t *Task, fd int) {
		timedOut = s.yieldOnRead(t, fd, time.Now().Add(-time.Millisecond))
		close(done)
	})
	if err != nil {
		t.Fatal(err)
	}
	task.worker = &Worker{sched: s}

	s.enqueueReady(task)
	s.drain(func(*Task) {})

	s.sweepDeadlines(time.Now())
	s.drain(func(*Task) {})

	<-done
	if !timedOut {
		t.Fatal("expected yieldOnRead to report a timeout")
	}
}

func TestSchedulerDestroyRemovesFromBothStructures(t *testing.T) {
	s := newScheduler(ReadyFIFO)
	task := &Task{}

	s.enqueueReady(task)
	s.waits.park(3, WaitRead, task)

	s.destroy(task)

	if s.ready.len() != 0 {
		t.Fatal("destroy should remove the task from the ready queue")
	}
	if s.waits.take(3, WaitRead) != nil {
		t.Fatal("destroy should remove the task from the wait table")
	}
}
