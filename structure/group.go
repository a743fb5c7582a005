package structure

import "fmt"

// StackRelation describes how a structural group composites with the group
// below it in the stack.
type StackRelation uint8

const (
	Erode StackRelation = iota
	Onlap
	Fault
	Basement
)

func (r StackRelation) String() string {
	switch r {
	case Erode:
		return "erode"
	case Onlap:
		return "onlap"
	case Fault:
		return "fault"
	case Basement:
		return "basement"
	}
	return fmt.Sprintf("StackRelation(%d)", uint8(r))
}

// StructuralGroup is an ordered collection of structural elements that
// share one interpolation series. Element order within a group is
// significant: it defines the index used to locate the group's slice in
// the engine's flattened output arrays.
type StructuralGroup struct {
	name     string
	relation StackRelation
	elements []*StructuralElement

	// Per-group solution slice, written by the owning model after a
	// solve. Writing it is not a structural edit.
	scalarField []float64
	blockValues []float64

	markDirty func()
}

// NewStructuralGroup creates a group owning the given elements in order.
func NewStructuralGroup(name string, relation StackRelation, elements ...*StructuralElement) *StructuralGroup {
	g := &StructuralGroup{
		name:     name,
		relation: relation,
		elements: elements,
	}
	return g
}

// Name returns the group name.
func (g *StructuralGroup) Name() string { return g.name }

// Relation returns the relation to the group below.
func (g *StructuralGroup) Relation() StackRelation { return g.relation }

// SetRelation changes how the group composites with the group below. This
// is a structural edit.
func (g *StructuralGroup) SetRelation(r StackRelation) {
	g.relation = r
	g.touch()
}

// Elements returns the group's elements in fixed order.
func (g *StructuralGroup) Elements() []*StructuralElement { return g.elements }

// NumElements returns the number of elements in the group.
func (g *StructuralGroup) NumElements() int { return len(g.elements) }

// AddElement appends an element to the group.
func (g *StructuralGroup) AddElement(e *StructuralElement) {
	e.markDirty = g.markDirty
	g.elements = append(g.elements, e)
	g.touch()
}

// RemoveElement removes the named element.
func (g *StructuralGroup) RemoveElement(name string) error {
	for i, e := range g.elements {
		if e.name == name {
			e.markDirty = nil
			g.elements = append(g.elements[:i], g.elements[i+1:]...)
			g.touch()
			return nil
		}
	}
	return fmt.Errorf("group %q has no element %q", g.name, name)
}

// SetSolution stores the group's per-series solution slice: the scalar
// field sampled over the evaluation grid and the discrete block
// assignment per cell. Both are written together on every solve.
func (g *StructuralGroup) SetSolution(scalarField, blockValues []float64) {
	g.scalarField = scalarField
	g.blockValues = blockValues
}

// Solution returns the group's solution slice from the last solve. Both
// slices are nil before a solve.
func (g *StructuralGroup) Solution() (scalarField, blockValues []float64) {
	return g.scalarField, g.blockValues
}

// SurfacePoints concatenates the surface points of all contained elements
// in element order. The ordering is deterministic: downstream index
// arithmetic depends on it.
func (g *StructuralGroup) SurfacePoints() []SurfacePoint {
	var out []SurfacePoint
	for _, e := range g.elements {
		out = append(out, e.points...)
	}
	return out
}

// Orientations concatenates the orientations of all contained elements in
// element order.
func (g *StructuralGroup) Orientations() []Orientation {
	var out []Orientation
	for _, e := range g.elements {
		out = append(out, e.orientations...)
	}
	return out
}

// NumPoints returns the total surface point count across elements.
func (g *StructuralGroup) NumPoints() int {
	n := 0
	for _, e := range g.elements {
		n += len(e.points)
	}
	return n
}

// NumOrientations returns the total orientation count across elements.
func (g *StructuralGroup) NumOrientations() int {
	n := 0
	for _, e := range g.elements {
		n += len(e.orientations)
	}
	return n
}

func (g *StructuralGroup) touch() {
	if g.markDirty != nil {
		g.markDirty()
	}
}

// attach installs the frame's dirty callback on the group and all of its
// elements. Called by the frame when the group joins it.
func (g *StructuralGroup) attach(markDirty func()) {
	g.markDirty = markDirty
	for _, e := range g.elements {
		e.markDirty = markDirty
	}
}

// detach removes the dirty callback from the group and its elements.
func (g *StructuralGroup) detach() {
	g.markDirty = nil
	for _, e := range g.elements {
		e.markDirty = nil
	}
}
