package audio

import "sort"

// The engine is single-threaded and cooperative: every "wait" is a deferred
// callback armed against the audio clock and fired from the per-frame tick.
// A ScheduledEvent is either fired exactly once or canceled exactly once.

// ScheduledEvent is a pending future trigger.
type ScheduledEvent struct {
	id   uint64
	at   float64
	fn   func()
	s    *Scheduler
	done bool
}

// Time returns the event's target fire time on the audio clock.
func (e *ScheduledEvent) Time() float64 {
	return e.at
}

// Cancel removes the event without firing it. Canceling an already-fired or
// already-canceled event is a no-op.
func (e *ScheduledEvent) Cancel() {
	if e == nil || e.done {
		return
	}
	e.done = true
	delete(e.s.pending, e.id)
}

// Scheduler owns the set of armed deferred callbacks. It is driven only from
// the per-frame update tick; it never blocks and never spawns OS timers.
type Scheduler struct {
	nextID  uint64
	pending map[uint64]*ScheduledEvent
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[uint64]*ScheduledEvent)}
}

// At arms fn to fire once the clock reaches t.
func (s *Scheduler) At(t float64, fn func()) *ScheduledEvent {
	s.nextID++
	e := &ScheduledEvent{id: s.nextID, at: t, fn: fn, s: s}
	s.pending[e.id] = e
	return e
}

// Pending returns the number of armed events.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Tick fires every event whose time has been reached, in time order. Events
// armed by a firing callback are picked up on a later tick, never this one.
func (s *Scheduler) Tick(now float64) {
	if len(s.pending) == 0 {
		return
	}
	due := make([]*ScheduledEvent, 0, 4)
	for _, e := range s.pending {
		if e.at <= now {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].id < due[j].id
	})
	for _, e := range due {
		if e.done {
			continue
		}
		e.done = true
		delete(s.pending, e.id)
		e.fn()
	}
}

// PendingSet is a per-owner collection of armed events. Owning everything a
// module schedules in one place turns "did I forget a timer" into a
// structural invariant: Drain cancels the lot unconditionally.
type PendingSet struct {
	events map[*ScheduledEvent]struct{}
}

// At arms fn on s and tracks the event until it fires or is drained.
func (p *PendingSet) At(s *Scheduler, t float64, fn func()) *ScheduledEvent {
	if p.events == nil {
		p.events = make(map[*ScheduledEvent]struct{})
	}
	var e *ScheduledEvent
	e = s.At(t, func() {
		delete(p.events, e)
		fn()
	})
	p.events[e] = struct{}{}
	return e
}

// Forget stops tracking e without canceling it.
func (p *PendingSet) Forget(e *ScheduledEvent) {
	delete(p.events, e)
}

// Cancel cancels e and stops tracking it.
func (p *PendingSet) Cancel(e *ScheduledEvent) {
	if e == nil {
		return
	}
	e.Cancel()
	delete(p.events, e)
}

// Drain cancels every tracked event.
func (p *PendingSet) Drain() {
	for e := range p.events {
		e.Cancel()
	}
	p.events = nil
}

// Len returns the number of tracked events.
func (p *PendingSet) Len() int {
	return len(p.events)
}
