// Package grid implements the spatial partition of 3-space into indexed
// compartments consumed by the reaction and nsm packages: neighbour
// lookup, inter-cell distance, containment and slicing against
// geometric predicates, and cell centre/volume/random-point queries.
package grid

import (
	"fmt"
	"math/rand"

	"github.com/rdsim/nsm/nsmerr"
)

// Grid is the abstract partition of 3-space into indexed cells that the
// NSM scheduler drives. StructuredGrid and OctreeGrid are the two
// concrete implementations; both share this interface so the reaction
// and nsm packages never need to know which one they were built from.
type Grid interface {
	// Size returns the bound of the cell index space: every valid cell
	// index is below it. For StructuredGrid this is the total number of
	// cells; OctreeGrid also counts the ids of retired parent leaves.
	Size() int

	// Neighbours returns the indices of all topological neighbours of i.
	Neighbours(i int) ([]int, error)

	// NeighbourDistances returns the centre-to-centre distance to each
	// neighbour, indexed parallel to Neighbours(i).
	NeighbourDistances(i int) ([]float64, error)

	// Distance returns the centre-to-centre Euclidean distance between
	// two neighbouring cells.
	Distance(i, j int) (float64, error)

	// IsIn reports whether any of the eight corners or the centre of
	// cell i satisfies the geometry predicate.
	IsIn(g Geometry, i int) (bool, error)

	// GetSlice returns, in ascending order, every cell crossed by the
	// geometry (any of the cell box's 14 canonical edge segments
	// satisfies Geometry.IntersectsSegment).
	GetSlice(g Geometry) ([]int, error)

	// GetRegion returns every cell for which IsIn is true.
	GetRegion(g Geometry) ([]int, error)

	// CellCentre returns the centre point of cell i.
	CellCentre(i int) (Point3, error)

	// CellVolume returns the volume of cell i.
	CellVolume(i int) (float64, error)

	// RandomPointIn returns a point sampled uniformly within cell i.
	RandomPointIn(i int, rng *rand.Rand) (Point3, error)
}

// outOfRange builds the standard OutOfRange error for cell index i.
func outOfRange(i, size int) error {
	return fmt.Errorf("%w: cell index %d (size %d)", nsmerr.ErrOutOfRange, i, size)
}

// boxCorners returns the eight corners of an axis-aligned box.
func boxCorners(b Box) []Point3 {
	return []Point3{
		{b.Min.X, b.Min.Y, b.Min.Z}, {b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z}, {b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z}, {b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z}, {b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// boxEdges returns the 14 canonical edge segments of an axis-aligned box
// used by GetSlice: the 12 box edges plus the 2 space diagonals, which
// together guarantee a thin surface crossing a corner of the box is
// still detected as crossing the cell.
func boxEdges(b Box) [][2]Point3 {
	c := boxCorners(b)
	return [][2]Point3{
		{c[0], c[1]}, {c[0], c[2]}, {c[0], c[4]},
		{c[1], c[3]}, {c[1], c[5]},
		{c[2], c[3]}, {c[2], c[6]},
		{c[3], c[7]},
		{c[4], c[5]}, {c[4], c[6]},
		{c[5], c[7]},
		{c[6], c[7]},
		{c[0], c[7]}, {c[1], c[6]},
	}
}

// isInBox reports whether any corner or the centre of box b satisfies g.
func isInBox(g Geometry, b Box) bool {
	for _, p := range boxCorners(b) {
		if g.Contains(p) {
			return true
		}
	}
	centre := Point3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
	return g.Contains(centre)
}

// crossesBox reports whether g crosses any of box b's 14 canonical edges.
func crossesBox(g Geometry, b Box) bool {
	for _, e := range boxEdges(b) {
		if g.IntersectsSegment(e[0], e[1]) {
			return true
		}
	}
	return false
}
