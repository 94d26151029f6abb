package nsm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/GaryBoone/GoStats/gostats"
	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/reaction"
	"github.com/rdsim/nsm/species"
)

func singleCellGrid(t *testing.T) *grid.StructuredGrid {
	t.Helper()
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{1, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// TestPureDecayMean is spec.md §8 scenario 1: A -> ∅ at rate 1.0 from
// copy number 1000 should decay towards 1000*e^-5 over t=5.
func TestPureDecayMean(t *testing.T) {
	var stats gostats.Stats
	const trials = 200
	for seed := 0; seed < trials; seed++ {
		g := singleCellGrid(t)
		a, err := species.New("A", 0)
		if err != nil {
			t.Fatal(err)
		}
		a.Bind(g)
		if err := a.Add(0, 1000); err != nil {
			t.Fatal(err)
		}
		op := New(g, rand.New(rand.NewSource(int64(seed))))
		eq := reaction.Equation{LHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}}}
		if err := op.AddReaction(1.0, eq); err != nil {
			t.Fatal(err)
		}
		if err := op.Integrate(5.0); err != nil {
			t.Fatal(err)
		}
		stats.Update(float64(a.CopyNumbers[0]))
	}
	want := 1000 * math.Exp(-5)
	if math.Abs(stats.Mean()-want) > 2 {
		t.Errorf("mean final copy number = %v, want close to %v", stats.Mean(), want)
	}
}

func TestIntegrateIsDeterministicUnderSameSeed(t *testing.T) {
	run := func(seed int64) (int, float64) {
		g := singleCellGrid(t)
		a, _ := species.New("A", 0)
		a.Bind(g)
		a.Add(0, 1000)
		op := New(g, rand.New(rand.NewSource(seed)))
		eq := reaction.Equation{LHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}}}
		op.AddReaction(1.0, eq)
		op.Integrate(5.0)
		return a.CopyNumbers[0], op.Time()
	}
	c1, t1 := run(7)
	c2, t2 := run(7)
	if c1 != c2 || t1 != t2 {
		t.Errorf("two runs with seed 7 diverged: (%d,%v) vs (%d,%v)", c1, t1, c2, t2)
	}
}

func TestZeroPropensityCompartmentAbsentFromHeap(t *testing.T) {
	g := singleCellGrid(t)
	a, _ := species.New("A", 0)
	a.Bind(g)
	op := New(g, rand.New(rand.NewSource(1)))
	eq := reaction.Equation{LHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}}}
	if err := op.AddReaction(1.0, eq); err != nil {
		t.Fatal(err)
	}
	if op.sched.Scheduled(0) {
		t.Error("compartment with zero reactant copies is scheduled")
	}
}

func TestDiffusiveJumpPreservesTotal(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{2, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 1e-2)
	a.Bind(g)
	a.Add(0, 100)
	op := New(g, rand.New(rand.NewSource(3)))
	if err := op.AddDiffusion(a); err != nil {
		t.Fatal(err)
	}
	if err := op.Integrate(50); err != nil {
		t.Fatal(err)
	}
	total := a.CopyNumbers[0] + a.CopyNumbers[1]
	if total != 100 {
		t.Errorf("total copy number = %d, want 100 (diffusion must not create/destroy molecules)", total)
	}
}

func TestGhostInterfaceConsumesWithoutDepositing(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{10, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 1.0)
	a.Bind(g)
	a.Add(4, 1000)
	op := New(g, rand.New(rand.NewSource(11)))
	if err := op.AddDiffusion(a); err != nil {
		t.Fatal(err)
	}
	plane := grid.Plane{Axis: grid.AxisX, Value: 5}
	if err := op.SetGhostCellInterface(plane); err != nil {
		t.Fatal(err)
	}
	ghostBefore := a.CopyNumbers[5]
	if err := op.Integrate(2.0); err != nil {
		t.Fatal(err)
	}
	if a.CopyNumbers[5] != ghostBefore {
		t.Errorf("ghost compartment 5 copy number changed from %d to %d", ghostBefore, a.CopyNumbers[5])
	}
}

func TestUnsetInterfaceRestoresDiffusionGraph(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{4, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 1.0)
	a.Bind(g)
	op := New(g, rand.New(rand.NewSource(5)))
	if err := op.AddDiffusion(a); err != nil {
		t.Fatal(err)
	}
	plane := grid.Plane{Axis: grid.AxisX, Value: 2}
	list, _ := op.ReactionList(1)
	before := list.RecalculatePropensities()

	if err := op.SetGhostCellInterface(plane); err != nil {
		t.Fatal(err)
	}
	if err := op.UnsetInterface(plane); err != nil {
		t.Fatal(err)
	}
	after := list.RecalculatePropensities()
	if before != after {
		t.Errorf("propensity of compartment 1 after ghost round-trip = %v, want %v", after, before)
	}
}

func TestReactionOnHighestOctreeLeafAfterSubdivide(t *testing.T) {
	base, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{2, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	og := grid.NewOctreeGrid(base)
	children, err := og.Subdivide(0)
	if err != nil {
		t.Fatal(err)
	}
	last := children[len(children)-1]

	a, err := species.New("A", 0)
	if err != nil {
		t.Fatal(err)
	}
	a.Bind(og)
	if last >= len(a.CopyNumbers) {
		t.Fatalf("CopyNumbers has length %d, too short to address leaf %d", len(a.CopyNumbers), last)
	}
	if err := a.Add(last, 50); err != nil {
		t.Fatal(err)
	}

	op := New(og, rand.New(rand.NewSource(23)))
	eq := reaction.Equation{LHS: reaction.Side{{Mult: 1, Species: a, Compartment: reaction.Unset}}}
	if err := op.AddReaction(1.0, eq); err != nil {
		t.Fatal(err)
	}
	if err := op.Integrate(1.0); err != nil {
		t.Fatal(err)
	}
	if a.CopyNumbers[last] >= 50 {
		t.Errorf("compartment %d never reacted: copy number = %d", last, a.CopyNumbers[last])
	}
}

func TestAddDiffusionBetweenInstallsExplicitJump(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{3, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 0)
	a.Bind(g)
	a.Add(0, 1000)
	op := New(g, rand.New(rand.NewSource(17)))
	// Wire a direct 0->2 jump skipping the intervening compartment 1,
	// the kind of edge AddDiffusion's uniform neighbour pass can't express.
	if err := op.AddDiffusionBetween(a, 5.0, []int{0}, []int{2}); err != nil {
		t.Fatal(err)
	}
	if err := op.Integrate(10.0); err != nil {
		t.Fatal(err)
	}
	if a.CopyNumbers[1] != 0 {
		t.Errorf("compartment 1 copy number = %d, want 0 (no edge installed to it)", a.CopyNumbers[1])
	}
	if a.CopyNumbers[0]+a.CopyNumbers[2] != 1000 {
		t.Errorf("total across 0 and 2 = %d, want 1000", a.CopyNumbers[0]+a.CopyNumbers[2])
	}
	if a.CopyNumbers[2] == 0 {
		t.Error("no molecules ever jumped from 0 to 2")
	}
}

func TestAddDiffusionBetweenLengthMismatch(t *testing.T) {
	g := singleCellGrid(t)
	a, _ := species.New("A", 0)
	a.Bind(g)
	op := New(g, rand.New(rand.NewSource(1)))
	if err := op.AddDiffusionBetween(a, 1.0, []int{0}, []int{0, 0}); err == nil {
		t.Error("expected an error for mismatched from/to lengths")
	}
}

func TestScaleDiffusionAcrossMultipliesInstalledRate(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{2, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 1e-2)
	a.Bind(g)
	op := New(g, rand.New(rand.NewSource(2)))
	if err := op.AddDiffusion(a); err != nil {
		t.Fatal(err)
	}
	list, err := op.ReactionList(0)
	if err != nil {
		t.Fatal(err)
	}
	a.Add(0, 1)
	before := list.RecalculatePropensities()

	plane := grid.Plane{Axis: grid.AxisX, Value: 1}
	if err := op.ScaleDiffusionAcross(a, plane, 10.0); err != nil {
		t.Fatal(err)
	}
	after := list.RecalculatePropensities()
	if math.Abs(after-before*10) > 1e-9 {
		t.Errorf("propensity after 10x scale = %v, want %v", after, before*10)
	}
}

func TestSetInterfaceAppliesCorrection(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{2, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := species.New("A", 1e-2)
	a.Bind(g)
	op := New(g, rand.New(rand.NewSource(4)))
	if err := op.AddDiffusion(a); err != nil {
		t.Fatal(err)
	}
	list, err := op.ReactionList(0)
	if err != nil {
		t.Fatal(err)
	}
	a.Add(0, 1)
	raw := list.RecalculatePropensities()

	plane := grid.Plane{Axis: grid.AxisX, Value: 1}
	const dt = 0.5
	if err := op.SetInterface(a, plane, dt, true); err != nil {
		t.Fatal(err)
	}
	corrected := list.RecalculatePropensities()

	d := 1.0 // centre-to-centre distance for adjacent unit cells
	wantFactor := 1 + d/(2*math.Sqrt(math.Pi*a.D*dt))
	if math.Abs(corrected-raw*wantFactor) > 1e-9 {
		t.Errorf("corrected propensity = %v, want %v (raw %v * factor %v)", corrected, raw*wantFactor, raw, wantFactor)
	}

	if err := op.SetInterface(a, plane, dt, false); err != nil {
		t.Fatal(err)
	}
	restored := list.RecalculatePropensities()
	if math.Abs(restored-raw) > 1e-9 {
		t.Errorf("propensity after uncorrected SetInterface = %v, want %v", restored, raw)
	}
}

func TestReversibleBindingToggleInvokesCallback(t *testing.T) {
	g := singleCellGrid(t)
	a, _ := species.New("A", 0)
	b2, _ := species.New("Bound", 0)
	a.Bind(g)
	b2.Bind(g)
	a.Add(0, 1)

	op := New(g, rand.New(rand.NewSource(13)))
	b := NewBindingReaction(
		reaction.Equation{
			LHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}},
			RHS: reaction.Side{{Mult: 1, Species: b2, Compartment: 0}},
		},
		reaction.Equation{
			LHS: reaction.Side{{Mult: 1, Species: b2, Compartment: 0}},
			RHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}},
		},
		1, [3]bool{},
	)
	var calls int
	b.OnStateChange = func(time float64, state []int) { calls++ }
	if err := op.AddBindingReaction(b, 0, 50, 50, 0); err != nil {
		t.Fatal(err)
	}
	if err := op.Integrate(1.0); err != nil {
		t.Fatal(err)
	}
	if calls == 0 {
		t.Error("OnStateChange was never invoked despite a high forward/reverse rate")
	}
}
