package structure

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SurfacePoint is a 3-D position tagged with the surface it lies on.
type SurfacePoint struct {
	Pos       r3.Vec
	ElementID int // id of the owning surface in the raw input tables
}

// Orientation is a 3-D position plus a gradient vector describing the
// local dip/azimuth of a surface.
type Orientation struct {
	Pos       r3.Vec
	Gradient  r3.Vec
	ElementID int
}

// StructuralElement is the atomic named geological surface: its own subset
// of surface points and orientations plus, after a solve, an owned mesh.
// An element has no knowledge of the interpolation engine or of the model
// cache; every structural mutation is reported upward through the dirty
// callback installed by the owning frame.
type StructuralElement struct {
	name   string
	Color  string // hex color used by read-only visualization consumers
	active bool

	points       []SurfacePoint
	orientations []Orientation

	// Mesh solution, in the user's original coordinate space. Both fields
	// are nil until a solve and are always written together.
	vertices []r3.Vec
	edges    [][3]int

	markDirty func()
}

// NewStructuralElement creates an element owning the given point and
// orientation subsets. The slices are taken over, not copied.
func NewStructuralElement(name string, points []SurfacePoint, orientations []Orientation) *StructuralElement {
	return &StructuralElement{
		name:         name,
		active:       true,
		points:       points,
		orientations: orientations,
	}
}

// Name returns the element name.
func (e *StructuralElement) Name() string { return e.name }

// SetName renames the element. This is a structural edit.
func (e *StructuralElement) SetName(name string) {
	e.name = name
	e.touch()
}

// IsActive reports whether the element participates in visualization.
func (e *StructuralElement) IsActive() bool { return e.active }

// SetActive toggles visualization participation. Not a structural edit:
// the engine input does not depend on it.
func (e *StructuralElement) SetActive(active bool) { e.active = active }

// SurfacePoints returns the element's surface points in stored order.
func (e *StructuralElement) SurfacePoints() []SurfacePoint { return e.points }

// Orientations returns the element's orientations in stored order.
func (e *StructuralElement) Orientations() []Orientation { return e.orientations }

// NumPoints returns the number of surface points.
func (e *StructuralElement) NumPoints() int { return len(e.points) }

// NumOrientations returns the number of orientations.
func (e *StructuralElement) NumOrientations() int { return len(e.orientations) }

// AddSurfacePoint appends a surface point.
func (e *StructuralElement) AddSurfacePoint(p SurfacePoint) {
	e.points = append(e.points, p)
	e.touch()
}

// RemoveSurfacePoint removes the point at index i.
func (e *StructuralElement) RemoveSurfacePoint(i int) error {
	if i < 0 || i >= len(e.points) {
		return fmt.Errorf("element %q: surface point index %d out of range [0,%d)", e.name, i, len(e.points))
	}
	e.points = append(e.points[:i], e.points[i+1:]...)
	e.touch()
	return nil
}

// MoveSurfacePoint relocates the point at index i.
func (e *StructuralElement) MoveSurfacePoint(i int, pos r3.Vec) error {
	if i < 0 || i >= len(e.points) {
		return fmt.Errorf("element %q: surface point index %d out of range [0,%d)", e.name, i, len(e.points))
	}
	e.points[i].Pos = pos
	e.touch()
	return nil
}

// AddOrientation appends an orientation.
func (e *StructuralElement) AddOrientation(o Orientation) {
	e.orientations = append(e.orientations, o)
	e.touch()
}

// RemoveOrientation removes the orientation at index i.
func (e *StructuralElement) RemoveOrientation(i int) error {
	if i < 0 || i >= len(e.orientations) {
		return fmt.Errorf("element %q: orientation index %d out of range [0,%d)", e.name, i, len(e.orientations))
	}
	e.orientations = append(e.orientations[:i], e.orientations[i+1:]...)
	e.touch()
	return nil
}

// Mesh returns the element's solved mesh. ok is false when the last solve
// produced no extractable surface for this element, or no solve has run.
func (e *StructuralElement) Mesh() (vertices []r3.Vec, edges [][3]int, ok bool) {
	return e.vertices, e.edges, e.vertices != nil
}

// SetMeshSolution overwrites the element's mesh atomically: both fields
// are updated together, never one without the other. Vertices must
// already be in the user's original coordinate space; the owning model
// inverse-transforms engine output before calling this. Passing nil for
// both records an explicit "no extractable surface" result. Applying a
// solution is not a structural edit and does not dirty the frame.
func (e *StructuralElement) SetMeshSolution(vertices []r3.Vec, edges [][3]int) {
	if (vertices == nil) != (edges == nil) {
		panic("structure: mesh vertices and edges must be set or cleared together")
	}
	e.vertices = vertices
	e.edges = edges
}

// PositionsDense returns the element's surface point positions as an n×3
// table, or nil when the element has no points.
func (e *StructuralElement) PositionsDense() *mat.Dense {
	return positionsDense(e.points)
}

func (e *StructuralElement) touch() {
	if e.markDirty != nil {
		e.markDirty()
	}
}

func positionsDense(pts []SurfacePoint) *mat.Dense {
	if len(pts) == 0 {
		return nil
	}
	m := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		m.Set(i, 0, p.Pos.X)
		m.Set(i, 1, p.Pos.Y)
		m.Set(i, 2, p.Pos.Z)
	}
	return m
}
