package grid

import (
	"math"
)

// Point3 is a point in three-dimensional space. The horizontal (X, Y)
// component shares its representation with github.com/ctessum/geom's
// 2-D Point; Z is carried alongside as a plain float64 rather than
// folded into a true 3-D geometry kernel. OctreeGrid converts to
// geom.Point/geom.Bounds directly when indexing cells in its rtree.
type Point3 struct {
	X, Y, Z float64
}

// Geometry is a predicate consumed abstractly by Grid.IsIn and
// Grid.GetSlice/GetRegion. Axis-aligned primitives and composites all
// implement it; the grid never inspects their concrete type.
type Geometry interface {
	// Contains reports whether p lies inside the geometry's volume.
	Contains(p Point3) bool
	// IntersectsSegment reports whether the closed segment [p1, p2]
	// meets the geometry. For the volume shapes (Box, Cylinder,
	// MultipleBoxes) a segment lying wholly inside also counts.
	IntersectsSegment(p1, p2 Point3) bool
}

// Axis identifies one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) components(p Point3) (along float64, b, c float64) {
	switch a {
	case AxisX:
		return p.X, p.Y, p.Z
	case AxisY:
		return p.Y, p.X, p.Z
	default:
		return p.Z, p.X, p.Y
	}
}

// Plane is an axis-aligned plane {x,y,z}×plane: the set of points whose
// coordinate along Axis equals Value. Because a plane has zero volume,
// Contains is true only for points exactly on it; Plane is normally
// consumed through Grid.GetSlice, which tests edge crossings rather
// than containment.
type Plane struct {
	Axis  Axis
	Value float64
}

func (pl Plane) Contains(p Point3) bool {
	along, _, _ := pl.Axis.components(p)
	return along == pl.Value
}

func (pl Plane) IntersectsSegment(p1, p2 Point3) bool {
	a1, _, _ := pl.Axis.components(p1)
	a2, _, _ := pl.Axis.components(p2)
	if a1 == a2 {
		return a1 == pl.Value
	}
	t := (pl.Value - a1) / (a2 - a1)
	return t >= 0 && t <= 1
}

// Rect is an axis-aligned rectangle {x,y,z}×rect: a finite window within
// the plane perpendicular to Axis at Value, bounded by [MinB, MaxB] and
// [MinC, MaxC] in the other two coordinates (in axis-index order, e.g.
// for AxisX the window is in (Y, Z)).
type Rect struct {
	Axis       Axis
	Value      float64
	MinB, MaxB float64
	MinC, MaxC float64
}

func (r Rect) Contains(p Point3) bool {
	along, b, c := r.Axis.components(p)
	return along == r.Value && b >= r.MinB && b <= r.MaxB && c >= r.MinC && c <= r.MaxC
}

func (r Rect) IntersectsSegment(p1, p2 Point3) bool {
	a1, b1, c1 := r.Axis.components(p1)
	a2, b2, c2 := r.Axis.components(p2)
	if a1 == a2 {
		if a1 != r.Value {
			return false
		}
	} else {
		t := (r.Value - a1) / (a2 - a1)
		if t < 0 || t > 1 {
			return false
		}
		b1, c1 = b1+t*(b2-b1), c1+t*(c2-c1)
	}
	return b1 >= r.MinB && b1 <= r.MaxB && c1 >= r.MinC && c1 <= r.MaxC
}

// Cylinder is an axis-aligned circular cylinder: the set of points whose
// coordinate along Axis lies in [MinAlong, MaxAlong] and whose distance
// from (CenterB, CenterC) in the other two coordinates is at most Radius.
type Cylinder struct {
	Axis               Axis
	MinAlong, MaxAlong float64
	CenterB, CenterC   float64
	Radius             float64
}

func (c Cylinder) Contains(p Point3) bool {
	along, b, cc := c.Axis.components(p)
	if along < c.MinAlong || along > c.MaxAlong {
		return false
	}
	db, dc := b-c.CenterB, cc-c.CenterC
	return db*db+dc*dc <= c.Radius*c.Radius
}

// IntersectsSegment reports whether the segment enters the cylinder's
// volume. It tests containment at the segment's two endpoints and its
// midpoint only; a segment that passes through the cylinder without
// any of those three points lying inside it is not detected.
func (c Cylinder) IntersectsSegment(p1, p2 Point3) bool {
	if c.Contains(p1) || c.Contains(p2) {
		return true
	}
	mid := Point3{(p1.X + p2.X) / 2, (p1.Y + p2.Y) / 2, (p1.Z + p2.Z) / 2}
	return c.Contains(mid)
}

// Box is an axis-aligned bounding box in three dimensions.
type Box struct {
	Min, Max Point3
}

func (b Box) Contains(p Point3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectsSegment uses the standard slab method to test the segment
// [p1, p2] against the box.
func (b Box) IntersectsSegment(p1, p2 Point3) bool {
	tmin, tmax := 0.0, 1.0
	dirs := [3]float64{p2.X - p1.X, p2.Y - p1.Y, p2.Z - p1.Z}
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	origins := [3]float64{p1.X, p1.Y, p1.Z}
	for i := 0; i < 3; i++ {
		if dirs[i] == 0 {
			if origins[i] < mins[i] || origins[i] > maxs[i] {
				return false
			}
			continue
		}
		t1 := (mins[i] - origins[i]) / dirs[i]
		t2 := (maxs[i] - origins[i]) / dirs[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// MultipleBoxes is the union of several boxes.
type MultipleBoxes []Box

func (m MultipleBoxes) Contains(p Point3) bool {
	for _, b := range m {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

func (m MultipleBoxes) IntersectsSegment(p1, p2 Point3) bool {
	for _, b := range m {
		if b.IntersectsSegment(p1, p2) {
			return true
		}
	}
	return false
}
