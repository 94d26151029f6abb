package nsmutil

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/ctessum/sparse"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/species"
)

func TestWriteOutputRoundTripsCopyNumbers(t *testing.T) {
	g, err := grid.NewStructuredGrid(grid.Point3{}, grid.Point3{X: 2, Y: 1, Z: 1}, grid.Point3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	a, err := species.New("A", 0)
	if err != nil {
		t.Fatal(err)
	}
	a.Bind(g)
	if err := a.Add(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := a.Add(1, 9); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, g, map[string]*species.Species{"A": a}); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Shape   []int
		Species map[string]*sparse.DenseArray
	}
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	// DenseArray's dimension count is an unexported field that gob does
	// not round-trip, so the decoded array's own Get/Index1d methods
	// cannot be trusted; compare the exported Elements slice directly.
	arr := decoded.Species["A"]
	if len(arr.Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2", len(arr.Elements))
	}
	if arr.Elements[0] != 5 {
		t.Errorf("cell 0 = %v, want 5", arr.Elements[0])
	}
	if arr.Elements[1] != 9 {
		t.Errorf("cell 1 = %v, want 9", arr.Elements[1])
	}
}
