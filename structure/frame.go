package structure

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// defaultColors is the palette cycled over elements created from raw
// input tables.
var defaultColors = []string{
	"#015482", "#9f0052", "#ffbe00", "#728f02", "#443988",
	"#ff3f20", "#5DA629", "#4878d0", "#ee854a", "#6acc64",
}

// StructuralFrame is the full ordered collection of structural groups: the
// single source of truth for "what changed" and the aggregation point
// that flattens all elements' points and orientations into the tables the
// interpolation engine consumes.
type StructuralFrame struct {
	groups []*StructuralGroup

	// dirty is true whenever any contained element's points/orientations
	// or the group ordering/composition changed since the flag was last
	// cleared. The owning model consults it to decide whether to rebuild
	// its cached engine input; no finer-grained diffing exists.
	dirty bool
}

// NewStructuralFrame creates a frame over the given groups in order. A new
// frame starts dirty so that the first derived-input read always builds.
func NewStructuralFrame(groups ...*StructuralGroup) *StructuralFrame {
	f := &StructuralFrame{groups: groups, dirty: true}
	for _, g := range groups {
		g.attach(f.markDirty)
	}
	return f
}

// FromInputTables builds a one-group frame from the raw ingested tables:
// surface points and orientations are chunked onto elements by their
// ElementID, elements are ordered by id, named by names[id], and a
// basement element with no geometry is appended last. Colors are assigned
// from a default palette.
func FromInputTables(points []SurfacePoint, orientations []Orientation, names map[int]string) (*StructuralFrame, error) {
	byID := map[int]*StructuralElement{}
	var order []int

	elementFor := func(id int) (*StructuralElement, error) {
		if e, ok := byID[id]; ok {
			return e, nil
		}
		name, ok := names[id]
		if !ok {
			return nil, fmt.Errorf("input tables reference surface id %d with no name", id)
		}
		e := NewStructuralElement(name, nil, nil)
		byID[id] = e
		order = append(order, id)
		return e, nil
	}

	for _, p := range points {
		e, err := elementFor(p.ElementID)
		if err != nil {
			return nil, err
		}
		e.points = append(e.points, p)
	}
	for _, o := range orientations {
		e, err := elementFor(o.ElementID)
		if err != nil {
			return nil, err
		}
		e.orientations = append(e.orientations, o)
	}

	elements := make([]*StructuralElement, 0, len(order)+1)
	for _, id := range order {
		elements = append(elements, byID[id])
	}
	elements = append(elements, NewStructuralElement("basement", nil, nil))
	for i, e := range elements {
		e.Color = defaultColors[i%len(defaultColors)]
	}

	return NewStructuralFrame(NewStructuralGroup("default", Erode, elements...)), nil
}

// IsDirty reports whether any structural content changed since the owning
// model last rebuilt its derived input.
func (f *StructuralFrame) IsDirty() bool { return f.dirty }

// MarkRebuilt clears the dirty flag. Calling it is the exclusive
// privilege of the owning model, after a successful cache rebuild.
func (f *StructuralFrame) MarkRebuilt() { f.dirty = false }

func (f *StructuralFrame) markDirty() { f.dirty = true }

// Groups returns the frame's groups in stack order.
func (f *StructuralFrame) Groups() []*StructuralGroup { return f.groups }

// NumGroups returns the number of groups.
func (f *StructuralFrame) NumGroups() int { return len(f.groups) }

// Group returns the named group.
func (f *StructuralFrame) Group(name string) (*StructuralGroup, bool) {
	for _, g := range f.groups {
		if g.name == name {
			return g, true
		}
	}
	return nil, false
}

// AddGroup appends a group to the stack.
func (f *StructuralFrame) AddGroup(g *StructuralGroup) {
	g.attach(f.markDirty)
	f.groups = append(f.groups, g)
	f.markDirty()
}

// RemoveGroup removes the named group from the stack.
func (f *StructuralFrame) RemoveGroup(name string) error {
	for i, g := range f.groups {
		if g.name == name {
			g.detach()
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			f.markDirty()
			return nil
		}
	}
	return fmt.Errorf("frame has no group %q", name)
}

// MoveGroup reorders the stack, moving the group at index from to index
// to. Stack order determines how relations composite, so this is a
// structural edit.
func (f *StructuralFrame) MoveGroup(from, to int) error {
	n := len(f.groups)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move group: indices (%d,%d) out of range [0,%d)", from, to, n)
	}
	g := f.groups[from]
	f.groups = append(f.groups[:from], f.groups[from+1:]...)
	f.groups = append(f.groups[:to], append([]*StructuralGroup{g}, f.groups[to:]...)...)
	f.markDirty()
	return nil
}

// GroupSpec names a group to build during restacking and the elements it
// takes, in order.
type GroupSpec struct {
	Name     string
	Relation StackRelation
	Elements []string
}

// MapStack regroups the frame's existing elements into a new ordered
// stack of groups, the way a user maps series onto surfaces. Every spec
// element name must exist in the frame; elements left unnamed are
// dropped from the stack.
func (f *StructuralFrame) MapStack(specs []GroupSpec) error {
	existing := map[string]*StructuralElement{}
	for _, e := range f.Elements() {
		existing[e.name] = e
	}

	groups := make([]*StructuralGroup, 0, len(specs))
	for _, spec := range specs {
		elems := make([]*StructuralElement, 0, len(spec.Elements))
		for _, name := range spec.Elements {
			e, ok := existing[name]
			if !ok {
				return fmt.Errorf("map stack: frame has no element %q", name)
			}
			elems = append(elems, e)
		}
		groups = append(groups, NewStructuralGroup(spec.Name, spec.Relation, elems...))
	}

	for _, g := range f.groups {
		g.detach()
	}
	f.groups = groups
	for _, g := range f.groups {
		g.attach(f.markDirty)
	}
	f.markDirty()
	return nil
}

// SetIsFault marks the named groups as faults.
func (f *StructuralFrame) SetIsFault(names ...string) error {
	for _, name := range names {
		g, ok := f.Group(name)
		if !ok {
			return fmt.Errorf("set fault: frame has no group %q", name)
		}
		g.SetRelation(Fault)
	}
	return nil
}

// Elements flattens the frame's elements in group order then element
// order. The flattened index is the index the engine's per-element output
// (meshes) is keyed by.
func (f *StructuralFrame) Elements() []*StructuralElement {
	var out []*StructuralElement
	for _, g := range f.groups {
		out = append(out, g.elements...)
	}
	return out
}

// Element returns the named element, searching groups in order.
func (f *StructuralFrame) Element(name string) (*StructuralElement, bool) {
	for _, g := range f.groups {
		for _, e := range g.elements {
			if e.name == name {
				return e, true
			}
		}
	}
	return nil, false
}

// SurfacePoints flattens every element's surface points in group order
// then element order. The ordering contract is load-bearing: engine
// output row i corresponds to input row i, and per-group solution
// distribution relies on contiguous, order-preserving slices.
func (f *StructuralFrame) SurfacePoints() []SurfacePoint {
	var out []SurfacePoint
	for _, g := range f.groups {
		out = append(out, g.SurfacePoints()...)
	}
	return out
}

// Orientations flattens every element's orientations in group order then
// element order.
func (f *StructuralFrame) Orientations() []Orientation {
	var out []Orientation
	for _, g := range f.groups {
		out = append(out, g.Orientations()...)
	}
	return out
}

// SurfacePositions returns the flattened surface point positions as an
// n×3 table, or nil when the frame holds no points.
func (f *StructuralFrame) SurfacePositions() *mat.Dense {
	return positionsDense(f.SurfacePoints())
}

// OrientationPositions returns the flattened orientation positions as an
// n×3 table, or nil when the frame holds no orientations.
func (f *StructuralFrame) OrientationPositions() *mat.Dense {
	ors := f.Orientations()
	if len(ors) == 0 {
		return nil
	}
	m := mat.NewDense(len(ors), 3, nil)
	for i, o := range ors {
		m.Set(i, 0, o.Pos.X)
		m.Set(i, 1, o.Pos.Y)
		m.Set(i, 2, o.Pos.Z)
	}
	return m
}

// OrientationGradients returns the flattened orientation gradient vectors
// as an n×3 table, or nil when the frame holds no orientations.
func (f *StructuralFrame) OrientationGradients() *mat.Dense {
	ors := f.Orientations()
	if len(ors) == 0 {
		return nil
	}
	m := mat.NewDense(len(ors), 3, nil)
	for i, o := range ors {
		m.Set(i, 0, o.Gradient.X)
		m.Set(i, 1, o.Gradient.Y)
		m.Set(i, 2, o.Gradient.Z)
	}
	return m
}

// ElementColors returns the flattened elements' colors, for the read-only
// visualization surface.
func (f *StructuralFrame) ElementColors() []string {
	elems := f.Elements()
	colors := make([]string, len(elems))
	for i, e := range elems {
		colors[i] = e.Color
	}
	return colors
}
