// Package nsm implements the Next Subvolume Method stepper: the
// spatial Gillespie driver that ties a Grid, a per-compartment
// reaction.List, and a scheduler.Scheduler together into a single
// advancing continuous-time Markov chain.
package nsm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/internal/xrand"
	"github.com/rdsim/nsm/nsmerr"
	"github.com/rdsim/nsm/reaction"
	"github.com/rdsim/nsm/scheduler"
	"github.com/rdsim/nsm/species"
)

type diffusionEdge struct {
	speciesID int64
	from, to  int
}

// diffusionRecord tracks one installed diffusion jump reaction.
// original is the plain, non-ghost LHS->RHS form the edge was
// installed with; current is whatever form (possibly ghosted, possibly
// rate-corrected) is presently live in the owning compartment's
// reaction.List. UnsetInterface restores original at its original
// rate and discards any correction or ghosting applied since.
type diffusionRecord struct {
	species      *species.Species
	rate         float64
	originalRate float64
	original     reaction.Equation
	current      reaction.Equation
	ghosted      bool
}

// Operator is the NSM stepper. It owns a Grid, one reaction.List per
// compartment, the event scheduler, simulation time, and the single
// random source every draw (firing-time exponential, reaction
// selection, sub-RHS selection) is sequenced from.
type Operator struct {
	grid  grid.Grid
	lists []*reaction.List
	sched *scheduler.Scheduler
	t     float64
	draws *xrand.Source

	// diffusion indexes every diffusion edge installed via AddDiffusion
	// or AddDiffusionBetween, keyed by (species, from, to), so
	// ScaleDiffusionAcross / SetInterface / SetGhostCellInterface can
	// find and rewrite the matching reaction.List entry without a
	// linear reaction-equality search.
	diffusion map[diffusionEdge]*diffusionRecord

	// bindings holds every BindingReaction installed via
	// AddBindingReaction, so Integrate can recognise a firing equation
	// as one of their forward/reverse transitions and invoke the
	// state-change callback synchronously.
	bindings []bindingInstallation
}

// New builds an Operator over g, with rng as the single draw source
// for the whole run (seed it for reproducible trajectories).
func New(g grid.Grid, rng *rand.Rand) *Operator {
	n := g.Size()
	lists := make([]*reaction.List, n)
	for i := range lists {
		lists[i] = reaction.NewList()
	}
	return &Operator{
		grid:      g,
		lists:     lists,
		sched:     scheduler.New(n),
		draws:     xrand.New(rng),
		diffusion: map[diffusionEdge]*diffusionRecord{},
	}
}

// Time returns the current simulation time.
func (op *Operator) Time() float64 { return op.t }

// Grid returns the bound grid.
func (op *Operator) Grid() grid.Grid { return op.grid }

func (op *Operator) checkIndex(i int) error {
	if i < 0 || i >= len(op.lists) {
		return fmt.Errorf("%w: compartment %d", nsmerr.ErrOutOfRange, i)
	}
	return nil
}

// recompute recalculates compartment i's propensities and resets its
// heap priority, drawing a fresh exponential firing time when its
// total propensity is positive and removing it from the heap (+Inf)
// otherwise.
func (op *Operator) recompute(i int) {
	total := op.lists[i].RecalculatePropensities()
	if total <= 0 {
		op.sched.ResetPriority(i, math.Inf(1))
		return
	}
	op.sched.ResetPriority(i, op.t+op.draws.Exponential(total))
}

// AddReaction adds eq, at rate, to every compartment in the grid —
// the spatially-uniform case for zero/uni/bi/tri-molecular reactions.
// Unset LHS/RHS compartment indices are tagged with each compartment's
// own index before insertion.
func (op *Operator) AddReaction(rate float64, eq reaction.Equation) error {
	for i := range op.lists {
		if err := op.installReaction(i, rate, eq); err != nil {
			return err
		}
	}
	return nil
}

// AddReactionOn adds eq to every compartment on the 2-D slice of g —
// the set of cells crossed by its surface.
func (op *Operator) AddReactionOn(rate float64, eq reaction.Equation, g grid.Geometry) error {
	cells, err := op.grid.GetSlice(g)
	if err != nil {
		return err
	}
	for _, i := range cells {
		if err := op.installReaction(i, rate, eq); err != nil {
			return err
		}
	}
	return nil
}

// AddReactionIn adds eq to every compartment in the 3-D region
// enclosed by g.
func (op *Operator) AddReactionIn(rate float64, eq reaction.Equation, g grid.Geometry) error {
	cells, err := op.grid.GetRegion(g)
	if err != nil {
		return err
	}
	for _, i := range cells {
		if err := op.installReaction(i, rate, eq); err != nil {
			return err
		}
	}
	return nil
}

func (op *Operator) installReaction(i int, rate float64, eq reaction.Equation) error {
	if err := op.checkIndex(i); err != nil {
		return err
	}
	tagged := eq.TagCompartment(i)
	if err := op.lists[i].AddReaction(rate, tagged); err != nil {
		return err
	}
	op.recompute(i)
	return nil
}

// AddDiffusion installs, for every cell i and every neighbour j, a
// diffusion reaction of rate D/d(i,j)^2 moving one copy of s from i to
// j, per spec.md's diffusion-as-reaction reduction.
func (op *Operator) AddDiffusion(s *species.Species) error {
	for i := 0; i < op.grid.Size(); i++ {
		neighbours, err := op.grid.Neighbours(i)
		if err != nil {
			return err
		}
		distances, err := op.grid.NeighbourDistances(i)
		if err != nil {
			return err
		}
		for k, j := range neighbours {
			d := distances[k]
			rate := s.D / (d * d)
			if err := op.installDiffusionEdge(s, i, j, rate); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddDiffusionBetween installs explicit jump reactions of s at rate
// from from[k] to to[k] for every k, the mechanism used to wire
// coarse/fine octree interfaces that AddDiffusion's uniform
// neighbour pass cannot express.
func (op *Operator) AddDiffusionBetween(s *species.Species, rate float64, from, to []int) error {
	if len(from) != len(to) {
		return fmt.Errorf("%w: from/to length mismatch (%d vs %d)", nsmerr.ErrInvalidConfiguration, len(from), len(to))
	}
	for k := range from {
		if err := op.installDiffusionEdge(s, from[k], to[k], rate); err != nil {
			return err
		}
	}
	return nil
}

func (op *Operator) installDiffusionEdge(s *species.Species, from, to int, rate float64) error {
	eq := reaction.Equation{
		LHS: reaction.Side{{Mult: 1, Species: s, Compartment: from}},
		RHS: reaction.Side{{Mult: 1, Species: s, Compartment: to}},
	}
	if err := op.checkIndex(from); err != nil {
		return err
	}
	if err := op.checkIndex(to); err != nil {
		return err
	}
	if err := op.lists[from].AddReaction(rate, eq); err != nil {
		return err
	}
	op.diffusion[diffusionEdge{s.ID(), from, to}] = &diffusionRecord{
		species: s, rate: rate, originalRate: rate, original: eq, current: eq,
	}
	op.recompute(from)
	return nil
}

// crossesGeometry reports whether the segment between the centres of
// compartments from and to crosses g.
func (op *Operator) crossesGeometry(from, to int, g grid.Geometry) (bool, error) {
	c1, err := op.grid.CellCentre(from)
	if err != nil {
		return false, err
	}
	c2, err := op.grid.CellCentre(to)
	if err != nil {
		return false, err
	}
	return g.IntersectsSegment(c1, c2), nil
}

// ScaleDiffusionAcross multiplies the rate of every installed
// diffusion reaction of s whose two compartments straddle g by
// factor.
func (op *Operator) ScaleDiffusionAcross(s *species.Species, g grid.Geometry, factor float64) error {
	for key, rec := range op.diffusion {
		if key.speciesID != s.ID() {
			continue
		}
		crosses, err := op.crossesGeometry(key.from, key.to, g)
		if err != nil {
			return err
		}
		if !crosses {
			continue
		}
		if err := op.rewriteDiffusionRate(key, rec, rec.rate*factor); err != nil {
			return err
		}
	}
	return nil
}

// rewriteDiffusionRate deletes rec's currently-installed equation and
// re-adds it at newRate, leaving its LHS/RHS (ghosted or not) exactly
// as it was.
func (op *Operator) rewriteDiffusionRate(key diffusionEdge, rec *diffusionRecord, newRate float64) error {
	if _, err := op.lists[key.from].DeleteReaction(rec.current); err != nil {
		return err
	}
	if err := op.lists[key.from].AddReaction(newRate, rec.current); err != nil {
		return err
	}
	rec.rate = newRate
	op.recompute(key.from)
	return nil
}

// SetInterface corrects the diffusion rate of every edge of s
// straddling g against an external continuum or particle region. With
// corrected true it applies an Erban-Chapman/Flegg-style correction
// that compensates the compartmental rate for the coupling timestep
// dt; with corrected false it restores the raw D/h^2 rate.
func (op *Operator) SetInterface(s *species.Species, g grid.Geometry, dt float64, corrected bool) error {
	for key, rec := range op.diffusion {
		if key.speciesID != s.ID() {
			continue
		}
		crosses, err := op.crossesGeometry(key.from, key.to, g)
		if err != nil {
			return err
		}
		if !crosses {
			continue
		}
		d, err := op.grid.Distance(key.from, key.to)
		if err != nil {
			return err
		}
		base := s.D / (d * d)
		newRate := base
		if corrected {
			newRate = base * (1 + d/(2*math.Sqrt(math.Pi*s.D*dt)))
		}
		if err := op.rewriteDiffusionRate(key, rec, newRate); err != nil {
			return err
		}
	}
	return nil
}

// SetGhostCellInterface rewrites, for every diffusion edge crossing g,
// both the outward and inward jump reactions so that whichever
// compartment of the pair lies outside g is treated as a ghost: the
// outward jump still consumes a molecule at the domain compartment but
// does not deposit at the ghost one, and the inward jump still deposits
// at the domain compartment but does not consume the ghost's copy
// number. Which side is the ghost is decided by testing each
// compartment's centre against g.Contains, so the call is correct for
// a ghost region on either side of g; if neither or both centres test
// inside (the boundary passes through a degenerate or ambiguous
// configuration), the lower-indexed compartment is treated as the
// domain side.
func (op *Operator) SetGhostCellInterface(g grid.Geometry) error {
	seen := make(map[diffusionEdge]bool)
	for key, rec := range op.diffusion {
		reverse := diffusionEdge{key.speciesID, key.to, key.from}
		if rec.ghosted || seen[key] || seen[reverse] {
			continue
		}
		seen[key] = true
		seen[reverse] = true

		crosses, err := op.crossesGeometry(key.from, key.to, g)
		if err != nil {
			return err
		}
		if !crosses {
			continue
		}
		domainKey, err := op.orientGhostEdge(key, g)
		if err != nil {
			return err
		}
		if err := op.ghostEdge(domainKey); err != nil {
			return err
		}
	}
	return nil
}

// orientGhostEdge returns key oriented so that From is the compartment
// inside g and To is the one outside it, using each compartment's
// centre against g.Contains. When that test cannot distinguish the two
// sides it falls back to the lower-indexed compartment being inside.
func (op *Operator) orientGhostEdge(key diffusionEdge, g grid.Geometry) (diffusionEdge, error) {
	fromC, err := op.grid.CellCentre(key.from)
	if err != nil {
		return key, err
	}
	toC, err := op.grid.CellCentre(key.to)
	if err != nil {
		return key, err
	}
	fromIn, toIn := g.Contains(fromC), g.Contains(toC)
	if fromIn == toIn {
		if key.from < key.to {
			return key, nil
		}
		return diffusionEdge{key.speciesID, key.to, key.from}, nil
	}
	if fromIn {
		return key, nil
	}
	return diffusionEdge{key.speciesID, key.to, key.from}, nil
}

func (op *Operator) ghostEdge(key diffusionEdge) error {
	out := op.diffusion[key]
	in, hasIn := op.diffusion[diffusionEdge{key.speciesID, key.to, key.from}]

	if _, err := op.lists[key.from].DeleteReaction(out.current); err != nil {
		return err
	}
	ghostOut := reaction.Equation{
		LHS: out.current.LHS,
		RHS: reaction.Side{{Mult: out.current.RHS[0].Mult, Species: out.current.RHS[0].Species, Compartment: key.to, Ghost: true}},
	}
	if err := op.lists[key.from].AddReaction(out.rate, ghostOut); err != nil {
		return err
	}
	out.current = ghostOut
	out.ghosted = true
	op.recompute(key.from)

	if hasIn {
		if _, err := op.lists[key.to].DeleteReaction(in.current); err != nil {
			return err
		}
		ghostIn := reaction.Equation{
			LHS: reaction.Side{{Mult: in.current.LHS[0].Mult, Species: in.current.LHS[0].Species, Compartment: key.to, Ghost: true}},
			RHS: in.current.RHS,
		}
		if err := op.lists[key.to].AddReaction(in.rate, ghostIn); err != nil {
			return err
		}
		in.current = ghostIn
		in.ghosted = true
		op.recompute(key.to)
	}
	return nil
}

// UnsetInterface reverts SetGhostCellInterface (and SetInterface's
// rate correction) for every diffusion edge, of any species, straddling
// g, restoring the
// original non-ghost diffusion reaction at its originally-installed
// rate exactly (spec.md §8's ghost-interface round-trip property).
func (op *Operator) UnsetInterface(g grid.Geometry) error {
	for key, rec := range op.diffusion {
		crosses, err := op.crossesGeometry(key.from, key.to, g)
		if err != nil {
			return err
		}
		if !crosses {
			continue
		}
		if _, err := op.lists[key.from].DeleteReaction(rec.current); err != nil {
			return err
		}
		if err := op.lists[key.from].AddReaction(rec.originalRate, rec.original); err != nil {
			return err
		}
		rec.rate = rec.originalRate
		rec.current = rec.original
		rec.ghosted = false
		op.recompute(key.from)
	}
	return nil
}

// Integrate advances simulation time to t+dt, firing every heap event
// scheduled strictly before the target time, recomputing propensities
// and priorities for every compartment each firing touches and for the
// firing compartment itself.
func (op *Operator) Integrate(dt float64) error {
	target := op.t + dt
	for {
		i, tNext, ok := op.sched.Peek()
		if !ok || tNext >= target {
			op.t = target
			return nil
		}
		eq, err := op.lists[i].PickRandomReaction(op.draws)
		if err != nil {
			return err
		}
		if err := eq.Fire(); err != nil {
			return err
		}
		op.t = tNext
		op.notifyBindings(eq, tNext)
		firingTouched := false
		for _, j := range eq.TouchedCompartments() {
			op.recompute(j)
			if j == i {
				firingTouched = true
			}
		}
		// A ghost inward jump references its own compartment only as a
		// ghost, so i is not among the touched compartments; its heap
		// entry still has to be redrawn.
		if !firingTouched {
			op.recompute(i)
		}
	}
}

// notifyBindings invokes the state-change callback of every
// BindingReaction whose forward or reverse equation matches eq,
// synchronously and before the next heap event is drawn, per spec.md
// §5's no-reentrancy rule.
func (op *Operator) notifyBindings(eq reaction.Equation, t float64) {
	for _, b := range op.bindings {
		switch {
		case eq.Equal(b.forward):
			b.reaction.fireForward(t, b.site)
		case eq.Equal(b.reverse):
			b.reaction.fireReverse(t, b.site)
		}
	}
}

// ResetAllPriorities recomputes every compartment's propensities and
// heap priority. Callers must invoke this after writing compartment
// copy numbers directly (spec.md §6 array interchange) and before the
// next Integrate.
func (op *Operator) ResetAllPriorities() {
	for i := range op.lists {
		op.recompute(i)
	}
}

// ReactionList exposes compartment i's catalogue, e.g. for
// diagnostics or tests.
func (op *Operator) ReactionList(i int) (*reaction.List, error) {
	if err := op.checkIndex(i); err != nil {
		return nil, err
	}
	return op.lists[i], nil
}
