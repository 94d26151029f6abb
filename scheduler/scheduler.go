// Package scheduler implements the global event queue the nsm package
// drives: a min-heap of per-compartment next-event times, kept in sync
// with an index -> heap-position handle table so a compartment's
// priority can be updated or removed in O(log n) without a linear scan.
package scheduler

import "container/heap"

const notScheduled = -1

// maxFinite is larger than any legitimate firing time produced by an
// exponential draw in practice; ResetPriority treats anything beyond it
// as the caller's spelling of "never".
const maxFinite = 1e300

type item struct {
	compartment int
	nextEvent   float64
}

// queue implements heap.Interface over items, keeping handles in sync
// on every Push/Pop/Swap so Scheduler never has to scan for a position.
type queue struct {
	items   []*item
	handles []int // compartment index -> position in items, or notScheduled
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.nextEvent != b.nextEvent {
		return a.nextEvent < b.nextEvent
	}
	return a.compartment < b.compartment
}

func (q *queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.handles[q.items[i].compartment] = i
	q.handles[q.items[j].compartment] = j
}

func (q *queue) Push(x interface{}) {
	it := x.(*item)
	q.items = append(q.items, it)
	q.handles[it.compartment] = len(q.items) - 1
}

func (q *queue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	q.handles[it.compartment] = notScheduled
	return it
}

// Scheduler is a priority queue of compartments ordered by next-event
// time, tie-broken by the lower compartment index so two compartments
// scheduled at exactly the same time (e.g. both seeded at t=0) pop in a
// deterministic, seed-reproducible order. Compartment is an opaque
// index supplied by the caller (nsm uses grid cell indices); Scheduler
// only ever compares and stores it.
type Scheduler struct {
	q *queue
}

// New returns a scheduler sized for n compartments, none of them
// scheduled yet.
func New(n int) *Scheduler {
	handles := make([]int, n)
	for i := range handles {
		handles[i] = notScheduled
	}
	return &Scheduler{q: &queue{handles: handles}}
}

// Len reports the number of compartments currently scheduled.
func (s *Scheduler) Len() int { return s.q.Len() }

// Scheduled reports whether compartment has a pending event.
func (s *Scheduler) Scheduled(compartment int) bool {
	return s.q.handles[compartment] != notScheduled
}

// ResetPriority sets compartment's next-event time to t. A t of +Inf
// (or anything beyond maxFinite) removes the compartment from the
// queue: spec.md's Quiescent compartments, whose total propensity has
// dropped to zero, are kept out of the heap this way rather than
// scheduled with an infinite time they'd never fire at. Compartments
// not currently scheduled are inserted; already-scheduled compartments
// have their position fixed up in place.
func (s *Scheduler) ResetPriority(compartment int, t float64) {
	pos := s.q.handles[compartment]
	if t > maxFinite {
		if pos != notScheduled {
			heap.Remove(s.q, pos)
		}
		return
	}
	if pos == notScheduled {
		heap.Push(s.q, &item{compartment: compartment, nextEvent: t})
		return
	}
	s.q.items[pos].nextEvent = t
	heap.Fix(s.q, pos)
}

// Peek returns the compartment with the earliest next-event time and
// that time, without removing it. ok is false if the scheduler is
// empty.
func (s *Scheduler) Peek() (compartment int, t float64, ok bool) {
	if s.q.Len() == 0 {
		return 0, 0, false
	}
	top := s.q.items[0]
	return top.compartment, top.nextEvent, true
}

// Pop removes and returns the compartment with the earliest next-event
// time. ok is false if the scheduler is empty.
func (s *Scheduler) Pop() (compartment int, t float64, ok bool) {
	if s.q.Len() == 0 {
		return 0, 0, false
	}
	top := heap.Pop(s.q).(*item)
	return top.compartment, top.nextEvent, true
}
