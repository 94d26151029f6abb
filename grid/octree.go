package grid

import (
	"math"
	"math/rand"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// octreeLeaf is one leaf cell of an OctreeGrid. It implements the
// rtree.Comparable contract (a Bounds method) so it can be inserted
// into and searched from the grid's rtree index.
type octreeLeaf struct {
	id        int
	box       Box
	coarseIJK [3]int
}

func (l *octreeLeaf) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: l.box.Min.X, Y: l.box.Min.Y},
		Max: geom.Point{X: l.box.Max.X, Y: l.box.Max.Y},
	}
}

// OctreeGrid is a StructuredGrid in which individual cells may be
// refined into 8 octree children. It exposes LeafIndices so a coarser
// view can aggregate a refined region's copy numbers, per spec.md's
// OctreeGrid contract.
type OctreeGrid struct {
	base   *StructuredGrid
	leaves []*octreeLeaf
	// index maps coarse (i,j,k) to the current leaves descending from it.
	index map[[3]int][]int
	tree  *rtree.Rtree
}

// NewOctreeGrid builds an unrefined OctreeGrid: one leaf per base cell.
func NewOctreeGrid(base *StructuredGrid) *OctreeGrid {
	g := &OctreeGrid{
		base:  base,
		index: make(map[[3]int][]int),
		tree:  rtree.NewTree(25, 50),
	}
	for i := 0; i < base.Size(); i++ {
		x, y, z := base.coords(i)
		leaf := &octreeLeaf{id: i, box: base.cellBox(i), coarseIJK: [3]int{x, y, z}}
		g.leaves = append(g.leaves, leaf)
		g.index[leaf.coarseIJK] = []int{i}
		g.tree.Insert(leaf)
	}
	return g
}

func (g *OctreeGrid) checkRange(i int) error {
	if i < 0 || i >= len(g.leaves) || g.leaves[i] == nil {
		return outOfRange(i, len(g.leaves))
	}
	return nil
}

// Subdivide splits leaf i into 8 octree children, appended at the end of
// the leaf table. Structural grid changes like this must happen before
// species are bound and reactions are added, per spec.md's Lifecycle
// invariant that a grid is fixed once species are attached.
func (g *OctreeGrid) Subdivide(i int) ([]int, error) {
	if err := g.checkRange(i); err != nil {
		return nil, err
	}
	parent := g.leaves[i]
	b := parent.box
	midX := (b.Min.X + b.Max.X) / 2
	midY := (b.Min.Y + b.Max.Y) / 2
	midZ := (b.Min.Z + b.Max.Z) / 2

	var children []int
	for _, dx := range [2]bool{false, true} {
		for _, dy := range [2]bool{false, true} {
			for _, dz := range [2]bool{false, true} {
				child := Box{Min: b.Min, Max: Point3{midX, midY, midZ}}
				if dx {
					child.Min.X, child.Max.X = midX, b.Max.X
				} else {
					child.Max.X = midX
				}
				if dy {
					child.Min.Y, child.Max.Y = midY, b.Max.Y
				} else {
					child.Max.Y = midY
				}
				if dz {
					child.Min.Z, child.Max.Z = midZ, b.Max.Z
				} else {
					child.Max.Z = midZ
				}
				id := len(g.leaves)
				leaf := &octreeLeaf{id: id, box: child, coarseIJK: parent.coarseIJK}
				g.leaves = append(g.leaves, leaf)
				g.tree.Insert(leaf)
				children = append(children, id)
			}
		}
	}
	g.index[parent.coarseIJK] = append(children, removeInt(g.index[parent.coarseIJK], i)...)
	g.leaves[i] = nil
	return children, nil
}

func removeInt(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// LeafIndices returns the indices of the leaves currently descending
// from the given coarse (i,j,k) cell of the base grid.
func (g *OctreeGrid) LeafIndices(coarseIJK [3]int) []int {
	return append([]int(nil), g.index[coarseIJK]...)
}

// Size returns the leaf id space bound, not the number of live leaves:
// retired parents leave a nil hole at their old id rather than shifting
// every later id down, so a species bound to this grid must allocate
// enough copy-number slots to address the highest id ever handed out by
// Subdivide, not just the leaves currently standing.
func (g *OctreeGrid) Size() int {
	return len(g.leaves)
}

func (g *OctreeGrid) Neighbours(i int) ([]int, error) {
	if err := g.checkRange(i); err != nil {
		return nil, err
	}
	l := g.leaves[i]
	const offset = 1e-9
	expanded := &geom.Bounds{
		Min: geom.Point{X: l.box.Min.X - offset, Y: l.box.Min.Y - offset},
		Max: geom.Point{X: l.box.Max.X + offset, Y: l.box.Max.Y + offset},
	}
	var out []int
	for _, hit := range g.tree.SearchIntersect(expanded) {
		o := hit.(*octreeLeaf)
		if o.id == i || g.leaves[o.id] == nil {
			continue
		}
		if sharesZRange(l.box, o.box) && touches2D(l.box, o.box) {
			out = append(out, o.id)
		} else if touchesZ(l.box, o.box) && sameXY(l.box, o.box) {
			out = append(out, o.id)
		}
	}
	return out, nil
}

func sameXY(a, b Box) bool {
	return a.Min.X == b.Min.X && a.Max.X == b.Max.X && a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y
}

func sharesZRange(a, b Box) bool {
	return a.Min.Z < b.Max.Z && b.Min.Z < a.Max.Z
}

func touchesZ(a, b Box) bool {
	const eps = 1e-9
	return absf(a.Max.Z-b.Min.Z) < eps || absf(b.Max.Z-a.Min.Z) < eps
}

func touches2D(a, b Box) bool {
	const eps = 1e-9
	xTouch := absf(a.Max.X-b.Min.X) < eps || absf(b.Max.X-a.Min.X) < eps
	yTouch := absf(a.Max.Y-b.Min.Y) < eps || absf(b.Max.Y-a.Min.Y) < eps
	xOverlap := a.Min.X < b.Max.X && b.Min.X < a.Max.X
	yOverlap := a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y
	return (xTouch && yOverlap) || (yTouch && xOverlap)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (g *OctreeGrid) NeighbourDistances(i int) ([]float64, error) {
	nbrs, err := g.Neighbours(i)
	if err != nil {
		return nil, err
	}
	dists := make([]float64, len(nbrs))
	for k, j := range nbrs {
		d, err := g.Distance(i, j)
		if err != nil {
			return nil, err
		}
		dists[k] = d
	}
	return dists, nil
}

func (g *OctreeGrid) Distance(i, j int) (float64, error) {
	if err := g.checkRange(i); err != nil {
		return 0, err
	}
	if err := g.checkRange(j); err != nil {
		return 0, err
	}
	ci, _ := g.CellCentre(i)
	cj, _ := g.CellCentre(j)
	dx, dy, dz := ci.X-cj.X, ci.Y-cj.Y, ci.Z-cj.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz), nil
}

func (g *OctreeGrid) CellCentre(i int) (Point3, error) {
	if err := g.checkRange(i); err != nil {
		return Point3{}, err
	}
	b := g.leaves[i].box
	return Point3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}, nil
}

func (g *OctreeGrid) CellVolume(i int) (float64, error) {
	if err := g.checkRange(i); err != nil {
		return 0, err
	}
	b := g.leaves[i].box
	return (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y) * (b.Max.Z - b.Min.Z), nil
}

func (g *OctreeGrid) RandomPointIn(i int, rng *rand.Rand) (Point3, error) {
	if err := g.checkRange(i); err != nil {
		return Point3{}, err
	}
	b := g.leaves[i].box
	return Point3{
		b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
		b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
		b.Min.Z + rng.Float64()*(b.Max.Z-b.Min.Z),
	}, nil
}

func (g *OctreeGrid) IsIn(geo Geometry, i int) (bool, error) {
	if err := g.checkRange(i); err != nil {
		return false, err
	}
	return isInBox(geo, g.leaves[i].box), nil
}

func (g *OctreeGrid) GetSlice(geo Geometry) ([]int, error) {
	var out []int
	for _, l := range g.leaves {
		if l != nil && crossesBox(geo, l.box) {
			out = append(out, l.id)
		}
	}
	return out, nil
}

func (g *OctreeGrid) GetRegion(geo Geometry) ([]int, error) {
	var out []int
	for _, l := range g.leaves {
		if l != nil && isInBox(geo, l.box) {
			out = append(out, l.id)
		}
	}
	return out, nil
}
