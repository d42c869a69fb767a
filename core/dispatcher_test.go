package core

import "testing"

func TestDispatcherPickWorkerRoundRobin(t *testing.T) {
	workers := []*Worker{{id: 0}, {id: 1}, {id: 2}}
	d := &Dispatcher{workers: workers}

	var got []int
	for i := 0; i < 7; i++ {
		got = append(got, d.pickWorker().id)
	}

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pick %d: expected worker %d, got %d (full sequence %v)", i, want[i], got[i], got)
		}
	}
}

func TestDispatcherPickWorkerSingleWorker(t *testing.T) {
	only := &Worker{id: 5}
	d := &Dispatcher{workers: []*Worker{only}}

	for i := 0; i < 3; i++ {
		if got := d.pickWorker(); got != only {
			t.Fatalf("expected the only worker every time, got %v", got)
		}
	}
}
