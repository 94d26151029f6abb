package operator

import (
	"math/rand"
	"testing"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/nsm"
	"github.com/rdsim/nsm/reaction"
	"github.com/rdsim/nsm/species"
)

func buildDecayOperator(t *testing.T, seed int64, initial int) (*nsm.Operator, *species.Species) {
	t.Helper()
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{1, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	a, err := species.New("A", 0)
	if err != nil {
		t.Fatal(err)
	}
	a.Bind(g)
	if err := a.Add(0, initial); err != nil {
		t.Fatal(err)
	}
	op := nsm.New(g, rand.New(rand.NewSource(seed)))
	eq := reaction.Equation{LHS: reaction.Side{{Mult: 1, Species: a, Compartment: 0}}}
	if err := op.AddReaction(1.0, eq); err != nil {
		t.Fatal(err)
	}
	return op, a
}

func TestIntegrateRunsEntriesInOrder(t *testing.T) {
	var order []string
	op1, _ := buildDecayOperator(t, 1, 100)
	op2, _ := buildDecayOperator(t, 2, 100)

	var list List
	list.Add("first", recordingStepper{op1, &order, "first"})
	list.Add("second", recordingStepper{op2, &order, "second"})

	if err := list.Integrate(1.0); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Integrate order = %v, want [first second]", order)
	}
}

type recordingStepper struct {
	op    *nsm.Operator
	order *[]string
	name  string
}

func (r recordingStepper) Integrate(dt float64) error {
	*r.order = append(*r.order, r.name)
	return r.op.Integrate(dt)
}

func TestInactiveEntrySkipped(t *testing.T) {
	op, a := buildDecayOperator(t, 3, 100)
	var list List
	idx := list.Add("decay", op)
	if err := list.SetActive(idx, false); err != nil {
		t.Fatal(err)
	}
	if err := list.Integrate(5.0); err != nil {
		t.Fatal(err)
	}
	if a.CopyNumbers[0] != 100 {
		t.Errorf("inactive operator was stepped: copy number = %d, want 100", a.CopyNumbers[0])
	}
}

func TestSetActiveOutOfRange(t *testing.T) {
	var list List
	if err := list.SetActive(0, true); err == nil {
		t.Error("SetActive on empty list did not error")
	}
}

func TestCompositionMarginalsMatchSoloRun(t *testing.T) {
	solo, aSolo := buildDecayOperator(t, 42, 500)
	if err := solo.Integrate(3.0); err != nil {
		t.Fatal(err)
	}

	composed, aComposed := buildDecayOperator(t, 42, 500)
	other, _ := buildDecayOperator(t, 99, 500)
	var list List
	list.Add("a", composed)
	list.Add("b", other)
	if err := list.Integrate(3.0); err != nil {
		t.Fatal(err)
	}

	if aComposed.CopyNumbers[0] != aSolo.CopyNumbers[0] {
		t.Errorf("composed trajectory = %d, solo trajectory = %d", aComposed.CopyNumbers[0], aSolo.CopyNumbers[0])
	}
}

func TestSummarizeTotalsMatchCopyNumbers(t *testing.T) {
	op, a := buildDecayOperator(t, 1, 321)
	list, err := op.ReactionList(0)
	if err != nil {
		t.Fatal(err)
	}
	snap := Summarize([]*species.Species{a}, func(i int) *reaction.List { return list }, 1)
	if snap.SpeciesTotals["A"] != 321 {
		t.Errorf("SpeciesTotals[A] = %d, want 321", snap.SpeciesTotals["A"])
	}
}
