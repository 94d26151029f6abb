// Package species holds the chemical species type driven by the nsm
// and reaction packages: a diffusion coefficient, a stable identity, a
// per-compartment copy-number vector bound to a grid, and optionally a
// list of individually tracked particles.
package species

import (
	"fmt"
	"sync/atomic"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/nsmerr"
)

var nextID int64

// Particle is an individually tracked molecule of a species.
type Particle struct {
	Position, PreviousPosition grid.Point3
	Alive                      bool
	ID                         int64
}

// Species is a named chemical identity. D is the diffusion coefficient
// in m^2/s, carried as a plain float64 with a descriptive struct tag
// rather than a dimensional type. Once bound to a grid with Bind,
// CopyNumbers always has length grid.Size() and every entry is
// non-negative.
type Species struct {
	Name string
	D    float64 `units:"m^2/s"`

	id int64

	Grid        grid.Grid
	CopyNumbers []int

	Particles []Particle
}

// New creates an unbound species with the given diffusion coefficient.
func New(name string, d float64) (*Species, error) {
	if d < 0 {
		return nil, fmt.Errorf("%w: negative diffusion coefficient %v for species %q", nsmerr.ErrInvalidConfiguration, d, name)
	}
	return &Species{
		Name: name,
		D:    d,
		id:   atomic.AddInt64(&nextID, 1),
	}, nil
}

// ID returns the species' stable identity, assigned once at creation
// and never reused, so reaction bookkeeping can key on it safely even
// if two species share a name.
func (s *Species) ID() int64 { return s.id }

// Bind attaches the species to a grid, allocating its copy-number
// vector. Species must be bound before being referenced by a reaction.
func (s *Species) Bind(g grid.Grid) {
	s.Grid = g
	s.CopyNumbers = make([]int, g.Size())
}

// Bound reports whether the species has been attached to a grid.
func (s *Species) Bound() bool { return s.Grid != nil }

// checkIndex validates a compartment index against the species' grid.
func (s *Species) checkIndex(i int) error {
	if s.Grid == nil {
		return fmt.Errorf("%w: species %q is not bound to a grid", nsmerr.ErrInvalidConfiguration, s.Name)
	}
	if i < 0 || i >= len(s.CopyNumbers) {
		return fmt.Errorf("%w: compartment index %d (size %d)", nsmerr.ErrOutOfRange, i, len(s.CopyNumbers))
	}
	return nil
}

// Add increments the copy number of compartment i by delta, which may
// be negative. It returns an error rather than letting the count go
// negative, since spec.md requires all copy numbers to be >= 0.
func (s *Species) Add(i int, delta int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	n := s.CopyNumbers[i] + delta
	if n < 0 {
		return fmt.Errorf("%w: copy number of %q in compartment %d would go negative (%d + %d)", nsmerr.ErrInvalidConfiguration, s.Name, i, s.CopyNumbers[i], delta)
	}
	s.CopyNumbers[i] = n
	return nil
}

// SetArray overwrites the species' copy numbers from a 3-index [Nx][Ny][Nz]
// array following the grid's row-major layout, per spec.md §6's array
// interchange contract. The caller must call the owning NSM operator's
// ResetAllPriorities before stepping again.
func (s *Species) SetArray(nx, ny, nz int, values [][][]int) error {
	if s.Grid == nil {
		return fmt.Errorf("%w: species %q is not bound to a grid", nsmerr.ErrInvalidConfiguration, s.Name)
	}
	if s.Grid.Size() != nx*ny*nz {
		return fmt.Errorf("%w: array shape (%d,%d,%d) does not match grid size %d", nsmerr.ErrShapeMismatch, nx, ny, nz, s.Grid.Size())
	}
	if len(values) != nx || (nx > 0 && len(values[0]) != ny) || (nx > 0 && ny > 0 && len(values[0][0]) != nz) {
		return fmt.Errorf("%w: array dimensions do not match (%d,%d,%d)", nsmerr.ErrShapeMismatch, nx, ny, nz)
	}
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				i := x*ny*nz + y*nz + z
				if values[x][y][z] < 0 {
					return fmt.Errorf("%w: negative copy number at (%d,%d,%d)", nsmerr.ErrInvalidConfiguration, x, y, z)
				}
				s.CopyNumbers[i] = values[x][y][z]
			}
		}
	}
	return nil
}

// Array returns the species' copy numbers as a 3-index [Nx][Ny][Nz] array.
func (s *Species) Array(nx, ny, nz int) ([][][]int, error) {
	if s.Grid == nil {
		return nil, fmt.Errorf("%w: species %q is not bound to a grid", nsmerr.ErrInvalidConfiguration, s.Name)
	}
	if s.Grid.Size() != nx*ny*nz {
		return nil, fmt.Errorf("%w: array shape (%d,%d,%d) does not match grid size %d", nsmerr.ErrShapeMismatch, nx, ny, nz, s.Grid.Size())
	}
	out := make([][][]int, nx)
	for x := 0; x < nx; x++ {
		out[x] = make([][]int, ny)
		for y := 0; y < ny; y++ {
			out[x][y] = make([]int, nz)
			for z := 0; z < nz; z++ {
				out[x][y][z] = s.CopyNumbers[x*ny*nz+y*nz+z]
			}
		}
	}
	return out, nil
}
