package species

import (
	"errors"
	"testing"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/nsmerr"
)

func testGrid(t *testing.T) *grid.StructuredGrid {
	t.Helper()
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{2, 1, 1}, grid.Point3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestNewRejectsNegativeD(t *testing.T) {
	if _, err := New("A", -1); !errors.Is(err, nsmerr.ErrInvalidConfiguration) {
		t.Errorf("New with negative D: got %v, want ErrInvalidConfiguration", err)
	}
}

func TestBindAllocatesCopyNumbers(t *testing.T) {
	g := testGrid(t)
	s, err := New("A", 1e-2)
	if err != nil {
		t.Fatal(err)
	}
	s.Bind(g)
	if len(s.CopyNumbers) != g.Size() {
		t.Errorf("len(CopyNumbers) = %d, want %d", len(s.CopyNumbers), g.Size())
	}
}

func TestAddRejectsNegativeResult(t *testing.T) {
	g := testGrid(t)
	s, _ := New("A", 0)
	s.Bind(g)
	if err := s.Add(0, -1); !errors.Is(err, nsmerr.ErrInvalidConfiguration) {
		t.Errorf("Add below zero: got %v, want ErrInvalidConfiguration", err)
	}
}

func TestSetArrayRoundTrip(t *testing.T) {
	g := testGrid(t)
	s, _ := New("A", 0)
	s.Bind(g)
	in := [][][]int{{{3}}, {{5}}}
	if err := s.SetArray(2, 1, 1, in); err != nil {
		t.Fatal(err)
	}
	out, err := s.Array(2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out[0][0][0] != 3 || out[1][0][0] != 5 {
		t.Errorf("Array() = %v, want [[[3]] [[5]]]", out)
	}
}

func TestSetArrayShapeMismatch(t *testing.T) {
	g := testGrid(t)
	s, _ := New("A", 0)
	s.Bind(g)
	if err := s.SetArray(3, 1, 1, make([][][]int, 3)); !errors.Is(err, nsmerr.ErrShapeMismatch) {
		t.Errorf("SetArray shape mismatch: got %v, want ErrShapeMismatch", err)
	}
}

func TestIDsAreStableAndDistinct(t *testing.T) {
	a, _ := New("A", 0)
	b, _ := New("A", 0)
	if a.ID() == b.ID() {
		t.Error("two species with the same name got the same ID")
	}
}
