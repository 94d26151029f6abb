// Package operator implements OperatorList: a composite that drives
// several independent steppers (an nsm.Operator, or any other stepper
// honouring the same contract) under one shared simulation clock.
package operator

import "fmt"

// Stepper is the closed set of step operators spec.md §9 "Polymorphic
// operators" calls for: anything that can be told to integrate a
// timestep. The active flag is kept on Entry, not on the Stepper.
// nsm.Operator satisfies it via its Integrate method; so does any
// external diffusion or boundary operator a host composes alongside it.
type Stepper interface {
	Integrate(dt float64) error
}

// Entry pairs a Stepper with its Active flag: an inactive entry is
// skipped by List.Integrate without being asked to step, the
// "operators may query their active flag and be skipped" rule in
// spec.md §4.5.
type Entry struct {
	Op     Stepper
	Active bool
	Name   string
}

// List is an ordered collection of operators sharing a common clock.
// Integrate iterates children strictly in insertion order, passing
// every active child the same dt; no child's failure rolls back an
// earlier one's effect, each child is responsible for its own internal
// subdivisions.
type List []Entry

// Add appends a new entry, active by default, and returns its index.
func (l *List) Add(name string, s Stepper) int {
	*l = append(*l, Entry{Op: s, Active: true, Name: name})
	return len(*l) - 1
}

// SetActive toggles entry i's active flag.
func (l List) SetActive(i int, active bool) error {
	if i < 0 || i >= len(l) {
		return fmt.Errorf("operator: index %d out of range", i)
	}
	l[i].Active = active
	return nil
}

// Integrate advances every active entry by dt, in insertion order. A
// failing entry stops the pass and returns its error immediately,
// leaving every later entry unstepped for this call — the caller
// decides whether to retry.
func (l List) Integrate(dt float64) error {
	for _, e := range l {
		if !e.Active {
			continue
		}
		if err := e.Op.Integrate(dt); err != nil {
			return fmt.Errorf("operator %q: %w", e.Name, err)
		}
	}
	return nil
}
