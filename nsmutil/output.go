package nsmutil

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/sparse"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/species"
)

// outputData is the gob-encoded payload WriteOutput writes, one dense
// array per species keyed by name, the way save.go's versionCells
// wraps its Cells payload with a format version.
type outputData struct {
	Shape   []int
	Species map[string]*sparse.DenseArray
}

// WriteOutput encodes every species' final copy numbers on g as a
// sparse.DenseArray shaped (Nx, Ny, Nz) and gob-encodes the result to
// w, following save.go's Save(w io.Writer) DomainManipulator shape.
func WriteOutput(w io.Writer, g *grid.StructuredGrid, specs map[string]*species.Species) error {
	shape := []int{g.Nx, g.Ny, g.Nz}
	data := outputData{Shape: shape, Species: make(map[string]*sparse.DenseArray, len(specs))}

	for name, s := range specs {
		arr := sparse.ZerosDense(shape...)
		for x := 0; x < g.Nx; x++ {
			for y := 0; y < g.Ny; y++ {
				for z := 0; z < g.Nz; z++ {
					i := x*g.Ny*g.Nz + y*g.Nz + z
					arr.Set(float64(s.CopyNumbers[i]), x, y, z)
				}
			}
		}
		data.Species[name] = arr
	}

	if err := gob.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("nsmutil: encoding output: %w", err)
	}
	return nil
}
