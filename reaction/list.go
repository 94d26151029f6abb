package reaction

import (
	"fmt"

	"github.com/rdsim/nsm/internal/xrand"
	"github.com/rdsim/nsm/nsmerr"
)

// List is spec.md's per-compartment ReactionList: an ordered list of
// groups plus a parallel propensities vector and cached total.
// InvTotalPropensity is only meaningful when TotalPropensity > 0; a
// List with zero total propensity corresponds to a Quiescent
// compartment the nsm scheduler keeps out of its heap.
type List struct {
	groups             []*group
	propensities       []float64
	TotalPropensity    float64
	InvTotalPropensity float64
}

// NewList returns an empty reaction list.
func NewList() *List {
	return &List{}
}

// Size returns the number of distinct (rate, LHS) groups in the list.
func (l *List) Size() int { return len(l.groups) }

// GetPropensity returns the cached total propensity.
func (l *List) GetPropensity() float64 { return l.TotalPropensity }

// AddReaction adds eq at the given rate: if an existing group shares
// eq's LHS and rate, eq.RHS is appended as a new alternative to that
// group; otherwise a new group is created.
func (l *List) AddReaction(rate float64, eq Equation) error {
	if rate < 0 {
		return fmt.Errorf("%w: negative rate %v", nsmerr.ErrInvalidConfiguration, rate)
	}
	if err := eq.validate(); err != nil {
		return err
	}
	for _, g := range l.groups {
		if g.rate == rate && g.lhs.Equal(eq.LHS) {
			g.rhs = append(g.rhs, eq.RHS)
			return nil
		}
	}
	l.groups = append(l.groups, &group{rate: rate, lhs: eq.LHS, rhs: []Side{eq.RHS}})
	l.propensities = append(l.propensities, 0)
	return nil
}

// DeleteReaction finds the first group whose LHS matches eq.LHS and
// has an RHS alternative matching eq.RHS, removes that alternative, and
// returns the group's rate.
// If the group has no alternatives left afterwards, it is removed
// entirely. It fails with ErrNotFound if no match exists.
func (l *List) DeleteReaction(eq Equation) (float64, error) {
	for gi, g := range l.groups {
		if !g.lhs.Equal(eq.LHS) {
			continue
		}
		for ri, rhs := range g.rhs {
			if !rhs.Equal(eq.RHS) {
				continue
			}
			rate := g.rate
			g.rhs = append(g.rhs[:ri], g.rhs[ri+1:]...)
			if len(g.rhs) == 0 {
				l.groups = append(l.groups[:gi], l.groups[gi+1:]...)
				l.propensities = append(l.propensities[:gi], l.propensities[gi+1:]...)
			}
			return rate, nil
		}
	}
	return 0, fmt.Errorf("%w: no matching reaction", nsmerr.ErrNotFound)
}

// RecalculatePropensities recomputes every group's propensity from the
// current copy numbers of the species it references, and refreshes
// TotalPropensity/InvTotalPropensity. It must be called whenever any
// referenced copy number changes, before the next PickRandomReaction.
func (l *List) RecalculatePropensities() float64 {
	total := 0.0
	for i, g := range l.groups {
		p := g.propensity()
		l.propensities[i] = p
		total += p
	}
	l.TotalPropensity = total
	if total > 0 {
		l.InvTotalPropensity = 1 / total
	} else {
		l.InvTotalPropensity = 0
	}
	return total
}

// PickRandomReaction samples a group by cumulative-sum search over
// propensities using threshold u1*TotalPropensity (u1 drawn from src),
// then samples a uniform alternative RHS within that group using a
// second, independent draw u2 — the two draws spec.md §5 calls out
// separately as "uniform for reaction selection" and "uniform for
// sub-RHS selection".
func (l *List) PickRandomReaction(src *xrand.Source) (Equation, error) {
	if l.TotalPropensity <= 0 {
		return Equation{}, fmt.Errorf("%w: reaction list has zero total propensity", nsmerr.ErrInvalidConfiguration)
	}
	threshold := src.Uniform() * l.TotalPropensity
	cum := 0.0
	for i, g := range l.groups {
		cum += l.propensities[i]
		if threshold < cum {
			rhs := g.rhs[0]
			if n := len(g.rhs); n > 1 {
				idx := int(src.Uniform() * float64(n))
				if idx >= n {
					idx = n - 1
				}
				rhs = g.rhs[idx]
			} else {
				_ = src.Uniform()
			}
			return Equation{LHS: g.lhs, RHS: rhs}, nil
		}
	}
	// Floating-point rounding can leave threshold >= cumulative sum by
	// an epsilon; fall back to the last group rather than erroring.
	last := l.groups[len(l.groups)-1]
	_ = src.Uniform()
	return Equation{LHS: last.lhs, RHS: last.rhs[0]}, nil
}
