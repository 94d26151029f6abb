// Package reaction implements the chemical reaction catalogue driven by
// the nsm package: reaction equations, the per-compartment
// ReactionsWithSameRateAndLHS groups, and the ReactionList that
// aggregates their propensities and samples among them.
package reaction

import (
	"fmt"

	"github.com/rdsim/nsm/nsmerr"
	"github.com/rdsim/nsm/species"
)

// Unset marks a Component whose compartment has not yet been tagged to
// a concrete cell index; nsm.Operator.installReaction resolves it to the
// compartment the reaction is being installed into.
const Unset = -1

// Component is one reactant or product of a reaction: Mult copies of
// Species at compartment Compartment. Ghost marks a component that
// names a compartment external to the simulated domain — a source or
// sink the reaction reads from but never mutates.
//
// spec.md's design notes flag that the original implementation encodes
// a ghost reference as a negated compartment index, which is ambiguous
// at index 0; Component instead carries an explicit Ghost flag, so
// Compartment is always the real, non-negative array index (see
// DESIGN.md Open Questions).
type Component struct {
	Mult        int
	Species     *species.Species
	Compartment int
	Ghost       bool
}

// Side is an ordered sequence of reaction components. Two sides are
// considered equal by Equal iff they contain the same multiset of
// (Mult, species identity, Compartment, Ghost) tuples.
type Side []Component

// Equal reports whether s and other contain the same multiset of
// components, independent of order.
func (s Side) Equal(other Side) bool {
	if len(s) != len(other) {
		return false
	}
	used := make([]bool, len(other))
	for _, c := range s {
		found := false
		for j, o := range other {
			if used[j] {
				continue
			}
			if componentsEqual(c, o) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func componentsEqual(a, b Component) bool {
	return a.Mult == b.Mult && a.Compartment == b.Compartment && a.Ghost == b.Ghost &&
		a.Species != nil && b.Species != nil && a.Species.ID() == b.Species.ID()
}

// clone returns an independent copy of the side, since equations are
// mutated in place (compartment tagging) as they are installed.
func (s Side) clone() Side {
	out := make(Side, len(s))
	copy(out, s)
	return out
}

// Equation is a reaction LHS -> RHS pair.
type Equation struct {
	LHS, RHS Side
}

// Equal reports whether eq and other have structurally equal LHS and
// RHS sides.
func (eq Equation) Equal(other Equation) bool {
	return eq.LHS.Equal(other.LHS) && eq.RHS.Equal(other.RHS)
}

// validate enforces spec.md's InvalidConfiguration rule that a reaction
// with no components on either side (nothing becoming nothing) is
// rejected; a genuinely empty LHS (zero-order synthesis) or empty RHS
// (decay) is a legitimate reaction.
func (eq Equation) validate() error {
	if len(eq.LHS) == 0 && len(eq.RHS) == 0 {
		return fmt.Errorf("%w: reaction has neither reactants nor products", nsmerr.ErrInvalidConfiguration)
	}
	return nil
}

// TagCompartment resolves every Unset component compartment on both
// sides to i, the compartment the reaction is being installed into.
// nsm.Operator calls this when installing a reaction added with
// Unset LHS/RHS compartments (the spatially-uniform AddReaction case).
func (eq Equation) TagCompartment(i int) Equation {
	out := Equation{LHS: eq.LHS.clone(), RHS: eq.RHS.clone()}
	for k := range out.LHS {
		if out.LHS[k].Compartment == Unset {
			out.LHS[k].Compartment = i
		}
	}
	for k := range out.RHS {
		if out.RHS[k].Compartment == Unset {
			out.RHS[k].Compartment = i
		}
	}
	return out
}

// Fire applies the equation's stoichiometry: every non-ghost LHS
// component is decremented and every non-ghost RHS component is
// incremented by its multiplicity.
func (eq Equation) Fire() error {
	for _, c := range eq.LHS {
		if c.Ghost {
			continue
		}
		if err := c.Species.Add(c.Compartment, -c.Mult); err != nil {
			return err
		}
	}
	for _, c := range eq.RHS {
		if c.Ghost {
			continue
		}
		if err := c.Species.Add(c.Compartment, c.Mult); err != nil {
			return err
		}
	}
	return nil
}

// TouchedCompartments returns the distinct, non-ghost compartment
// indices referenced by either side of the equation — the set the NSM
// driver must recompute propensities and priorities for after firing.
func (eq Equation) TouchedCompartments() []int {
	seen := map[int]bool{}
	var out []int
	add := func(s Side) {
		for _, c := range s {
			if c.Ghost || seen[c.Compartment] {
				continue
			}
			seen[c.Compartment] = true
			out = append(out, c.Compartment)
		}
	}
	add(eq.LHS)
	add(eq.RHS)
	return out
}
