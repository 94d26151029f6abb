package reaction

import "github.com/rdsim/nsm/species"

// group is spec.md's ReactionsWithSameRateAndLHS: every reaction
// sharing an identical LHS and rate constant, aggregated so their
// combined propensity is computed once. rhs holds each alternative
// product side in earliest-insertion order, so that picking among them
// uniformly is stable under ties.
type group struct {
	rate float64
	lhs  Side
	rhs  []Side
}

type reactantSlot struct {
	species     *species.Species
	compartment int
}

// propensity computes rate * prod_i C(n_i, m_i), the standard
// stochastic mass-action convention for a multi-reactant LHS (spec.md
// §9 Open Questions resolves the ambiguity in favour of this reading).
// LHS components referencing the same species and compartment combine
// their multiplicities before the binomial coefficient is taken.
func (g *group) propensity() float64 {
	var slots []reactantSlot
	mult := map[reactantSlot]int{}
	for _, c := range g.lhs {
		slot := reactantSlot{c.Species, c.Compartment}
		if _, ok := mult[slot]; !ok {
			slots = append(slots, slot)
		}
		mult[slot] += c.Mult
	}
	p := g.rate
	for _, slot := range slots {
		n := slot.species.CopyNumbers[slot.compartment]
		p *= binomial(n, mult[slot])
	}
	return p
}

// binomial returns C(n, m), the number of ways to choose m reactant
// molecules out of n available copies, as a float64 since it feeds
// directly into a propensity rate.
func binomial(n, m int) float64 {
	if m < 0 || n < 0 || m > n {
		return 0
	}
	if m == 0 {
		return 1
	}
	result := 1.0
	for k := 0; k < m; k++ {
		result *= float64(n-k) / float64(k+1)
	}
	return result
}
