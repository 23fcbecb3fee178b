package audio

import "testing"

func TestScheduler_FiresInTimeOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	s.At(3.0, func() { order = append(order, 3) })
	s.At(1.0, func() { order = append(order, 1) })
	s.At(2.0, func() { order = append(order, 2) })

	s.Tick(5.0)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("fire order = %v, want [1 2 3]", order)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d after firing everything", s.Pending())
	}
}

func TestScheduler_SameTimeFiresInArmOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	s.At(1.0, func() { order = append(order, 1) })
	s.At(1.0, func() { order = append(order, 2) })

	s.Tick(1.0)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("fire order = %v, want [1 2]", order)
	}
}

func TestScheduler_NotDueYet(t *testing.T) {
	s := NewScheduler()
	fired := false
	s.At(2.0, func() { fired = true })

	s.Tick(1.9)
	if fired {
		t.Error("event fired before its time")
	}
	s.Tick(2.0)
	if !fired {
		t.Error("event did not fire at its time")
	}
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	s := NewScheduler()
	fired := false
	e := s.At(1.0, func() { fired = true })
	e.Cancel()
	e.Cancel() // second cancel is a no-op

	s.Tick(2.0)
	if fired {
		t.Error("canceled event fired")
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d after cancel", s.Pending())
	}
}

func TestScheduler_CancelAfterFireIsNoop(t *testing.T) {
	s := NewScheduler()
	count := 0
	e := s.At(1.0, func() { count++ })
	s.Tick(1.0)
	e.Cancel()
	s.Tick(2.0)
	if count != 1 {
		t.Errorf("fire count = %d, want 1", count)
	}
}

func TestScheduler_EventArmedDuringFireWaitsForNextTick(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.At(1.0, func() {
		order = append(order, "outer")
		s.At(0.5, func() { order = append(order, "inner") })
	})

	s.Tick(2.0)
	if len(order) != 1 || order[0] != "outer" {
		t.Fatalf("after first tick order = %v, want [outer]", order)
	}
	s.Tick(2.0)
	if len(order) != 2 || order[1] != "inner" {
		t.Errorf("after second tick order = %v, want [outer inner]", order)
	}
}

func TestPendingSet_FireRemovesTracking(t *testing.T) {
	s := NewScheduler()
	var p PendingSet
	fired := false
	p.At(s, 1.0, func() { fired = true })

	if p.Len() != 1 {
		t.Fatalf("len = %d before fire", p.Len())
	}
	s.Tick(1.0)
	if !fired {
		t.Fatal("event did not fire")
	}
	if p.Len() != 0 {
		t.Errorf("len = %d after fire, want 0", p.Len())
	}
}

func TestPendingSet_DrainCancelsEverything(t *testing.T) {
	s := NewScheduler()
	var p PendingSet
	count := 0
	p.At(s, 1.0, func() { count++ })
	p.At(s, 2.0, func() { count++ })
	p.At(s, 3.0, func() { count++ })

	p.Drain()

	s.Tick(10.0)
	if count != 0 {
		t.Errorf("fired %d events after drain", count)
	}
	if s.Pending() != 0 {
		t.Errorf("scheduler pending = %d after drain", s.Pending())
	}
	if p.Len() != 0 {
		t.Errorf("set len = %d after drain", p.Len())
	}
}

func TestPendingSet_CancelSingle(t *testing.T) {
	s := NewScheduler()
	var p PendingSet
	var fired []int
	e1 := p.At(s, 1.0, func() { fired = append(fired, 1) })
	p.At(s, 2.0, func() { fired = append(fired, 2) })

	p.Cancel(e1)
	p.Cancel(nil) // nil-safe

	s.Tick(10.0)
	if len(fired) != 1 || fired[0] != 2 {
		t.Errorf("fired = %v, want [2]", fired)
	}
}
