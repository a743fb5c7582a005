package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================================
// Test fixtures
// ============================================================================

func pt(x, y, z float64, id int) SurfacePoint {
	return SurfacePoint{Pos: r3.Vec{X: x, Y: y, Z: z}, ElementID: id}
}

func orient(x, y, z float64, id int) Orientation {
	return Orientation{
		Pos:       r3.Vec{X: x, Y: y, Z: z},
		Gradient:  r3.Vec{X: 0, Y: 0, Z: 1},
		ElementID: id,
	}
}

// twoGroupFrame builds [G1(2 elements), G2(1 element)] with known
// per-element row counts: 2+3 points in G1, 1 point in G2.
func twoGroupFrame() *StructuralFrame {
	fault := NewStructuralElement("main_fault",
		[]SurfacePoint{pt(0, 0, 0, 0), pt(1, 0, 0, 0)},
		[]Orientation{orient(0.5, 0, 0, 0)},
	)
	sandstone := NewStructuralElement("sandstone",
		[]SurfacePoint{pt(0, 1, 0, 1), pt(1, 1, 0, 1), pt(2, 1, 0, 1)},
		nil,
	)
	basement := NewStructuralElement("basement",
		[]SurfacePoint{pt(0, 2, 0, 2)},
		[]Orientation{orient(0, 2, 0, 2), orient(1, 2, 0, 2)},
	)
	return NewStructuralFrame(
		NewStructuralGroup("fault_series", Fault, fault, sandstone),
		NewStructuralGroup("strat_series", Erode, basement),
	)
}

// ============================================================================
// Section 1: Dirty propagation
// ============================================================================

func TestFrame_StartsDirty(t *testing.T) {
	f := twoGroupFrame()
	if !f.IsDirty() {
		t.Error("new frame must start dirty so the first derived-input read builds")
	}
	f.MarkRebuilt()
	if f.IsDirty() {
		t.Error("MarkRebuilt did not clear the dirty flag")
	}
}

func TestFrame_DirtyPropagation(t *testing.T) {
	mutations := []struct {
		name string
		run  func(f *StructuralFrame) error
	}{
		{"add point", func(f *StructuralFrame) error {
			e, _ := f.Element("sandstone")
			e.AddSurfacePoint(pt(3, 1, 0, 1))
			return nil
		}},
		{"move point", func(f *StructuralFrame) error {
			e, _ := f.Element("main_fault")
			return e.MoveSurfacePoint(0, r3.Vec{X: -1})
		}},
		{"remove point", func(f *StructuralFrame) error {
			e, _ := f.Element("main_fault")
			return e.RemoveSurfacePoint(1)
		}},
		{"add orientation", func(f *StructuralFrame) error {
			e, _ := f.Element("sandstone")
			e.AddOrientation(orient(1, 1, 0, 1))
			return nil
		}},
		{"remove orientation", func(f *StructuralFrame) error {
			e, _ := f.Element("basement")
			return e.RemoveOrientation(0)
		}},
		{"rename element", func(f *StructuralFrame) error {
			e, _ := f.Element("sandstone")
			e.SetName("sandstone_2")
			return nil
		}},
		{"change relation", func(f *StructuralFrame) error {
			g, _ := f.Group("strat_series")
			g.SetRelation(Onlap)
			return nil
		}},
		{"add element", func(f *StructuralFrame) error {
			g, _ := f.Group("strat_series")
			g.AddElement(NewStructuralElement("shale", nil, nil))
			return nil
		}},
		{"remove element", func(f *StructuralFrame) error {
			g, _ := f.Group("fault_series")
			return g.RemoveElement("sandstone")
		}},
		{"add group", func(f *StructuralFrame) error {
			f.AddGroup(NewStructuralGroup("new_series", Onlap))
			return nil
		}},
		{"remove group", func(f *StructuralFrame) error {
			return f.RemoveGroup("fault_series")
		}},
		{"reorder groups", func(f *StructuralFrame) error {
			return f.MoveGroup(0, 1)
		}},
		{"set fault", func(f *StructuralFrame) error {
			return f.SetIsFault("strat_series")
		}},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			f := twoGroupFrame()
			f.MarkRebuilt()
			if err := m.run(f); err != nil {
				t.Fatal(err)
			}
			if !f.IsDirty() {
				t.Errorf("mutation %q did not set the dirty flag", m.name)
			}
		})
	}
}

func TestFrame_SolutionWritesDoNotDirty(t *testing.T) {
	f := twoGroupFrame()
	f.MarkRebuilt()

	g, _ := f.Group("fault_series")
	g.SetSolution([]float64{1, 2}, []float64{1, 1})

	e, _ := f.Element("main_fault")
	e.SetMeshSolution([]r3.Vec{{X: 1}}, [][3]int{{0, 0, 0}})

	if f.IsDirty() {
		t.Error("applying a solution must not dirty the frame")
	}
}

func TestFrame_DetachedGroupNoLongerDirties(t *testing.T) {
	f := twoGroupFrame()
	g, _ := f.Group("fault_series")
	if err := f.RemoveGroup("fault_series"); err != nil {
		t.Fatal(err)
	}
	f.MarkRebuilt()

	g.Elements()[0].AddSurfacePoint(pt(9, 9, 9, 0))
	if f.IsDirty() {
		t.Error("edit on a removed group dirtied the frame")
	}
}

// ============================================================================
// Section 2: Order-preserving aggregation
// ============================================================================

func TestFrame_FlattenedOrder(t *testing.T) {
	f := twoGroupFrame()

	pts := f.SurfacePoints()
	assert.Len(t, pts, 6, "2+3 points in G1, 1 in G2")

	// Group order then element order: main_fault rows, sandstone rows,
	// basement row.
	wantIDs := []int{0, 0, 1, 1, 1, 2}
	for i, p := range pts {
		assert.Equal(t, wantIDs[i], p.ElementID, "row %d", i)
	}

	ors := f.Orientations()
	assert.Len(t, ors, 3)
	assert.Equal(t, []int{0, 2, 2}, []int{ors[0].ElementID, ors[1].ElementID, ors[2].ElementID})
}

func TestFrame_DenseTables(t *testing.T) {
	f := twoGroupFrame()

	pos := f.SurfacePositions()
	r, c := pos.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.0, pos.At(0, 0))
	assert.Equal(t, 2.0, pos.At(4, 0), "last sandstone point x")

	grads := f.OrientationGradients()
	r, _ = grads.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1.0, grads.At(0, 2))
}

func TestFrame_ElementsFlattenedIndex(t *testing.T) {
	f := twoGroupFrame()
	elems := f.Elements()
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"main_fault", "sandstone", "basement"}, names)
}

// ============================================================================
// Section 3: Input data descriptor
// ============================================================================

func TestFrame_InputDataDescriptor(t *testing.T) {
	f := twoGroupFrame()
	d := f.InputDataDescriptor()

	assert.Len(t, d.Groups, 2)
	assert.Equal(t, "fault_series", d.Groups[0].Name)
	assert.Equal(t, Fault, d.Groups[0].Relation)
	assert.Equal(t, 2, d.Groups[0].NumberOfElements)
	assert.Equal(t, 5, d.Groups[0].NumberOfPoints)
	assert.Equal(t, 1, d.Groups[0].NumberOfOrientations)
	assert.Equal(t, []int{2, 3, 1}, d.PointsPerElement)
	assert.Equal(t, 6, d.TotalPoints)
	assert.Equal(t, 3, d.TotalOrientations)
	assert.Equal(t, 3, d.NumElements())
}

func TestFrame_DescriptorTracksEdits(t *testing.T) {
	f := twoGroupFrame()
	e, _ := f.Element("sandstone")
	e.AddSurfacePoint(pt(5, 5, 5, 1))

	// Recomputed on every access, no caching at this level.
	d := f.InputDataDescriptor()
	assert.Equal(t, 7, d.TotalPoints)
	assert.Equal(t, []int{2, 4, 1}, d.PointsPerElement)
}

// ============================================================================
// Section 4: Construction from raw tables and restacking
// ============================================================================

func TestFromInputTables(t *testing.T) {
	points := []SurfacePoint{pt(0, 0, 0, 7), pt(1, 0, 0, 7), pt(0, 1, 0, 3)}
	orientations := []Orientation{orient(0, 0, 1, 3)}
	names := map[int]string{7: "shale", 3: "siltstone"}

	f, err := FromInputTables(points, orientations, names)
	if err != nil {
		t.Fatalf("FromInputTables failed: %v", err)
	}

	assert.Equal(t, 1, f.NumGroups())
	elems := f.Elements()
	// Elements in first-appearance order, basement appended last.
	assert.Equal(t, "shale", elems[0].Name())
	assert.Equal(t, "siltstone", elems[1].Name())
	assert.Equal(t, "basement", elems[2].Name())
	assert.Equal(t, 2, elems[0].NumPoints())
	assert.Equal(t, 1, elems[1].NumOrientations())
	assert.Equal(t, 0, elems[2].NumPoints())
	for _, e := range elems {
		assert.NotEmpty(t, e.Color)
	}
	assert.True(t, f.IsDirty())
}

func TestFromInputTables_UnknownID(t *testing.T) {
	_, err := FromInputTables([]SurfacePoint{pt(0, 0, 0, 9)}, nil, map[int]string{})
	if err == nil {
		t.Fatal("expected error for surface id with no name")
	}
}

func TestFrame_MapStack(t *testing.T) {
	f, err := FromInputTables(
		[]SurfacePoint{pt(0, 0, 0, 0), pt(0, 0, 1, 1), pt(0, 0, 2, 2)},
		nil,
		map[int]string{0: "main_fault", 1: "sandstone", 2: "shale"},
	)
	if err != nil {
		t.Fatal(err)
	}
	f.MarkRebuilt()

	err = f.MapStack([]GroupSpec{
		{Name: "fault_series", Relation: Fault, Elements: []string{"main_fault"}},
		{Name: "strat_series", Relation: Erode, Elements: []string{"sandstone", "shale", "basement"}},
	})
	if err != nil {
		t.Fatalf("MapStack failed: %v", err)
	}

	assert.True(t, f.IsDirty())
	assert.Equal(t, 2, f.NumGroups())
	g, ok := f.Group("strat_series")
	assert.True(t, ok)
	assert.Equal(t, 3, g.NumElements())

	// Dirty wiring survives the regroup.
	f.MarkRebuilt()
	e, _ := f.Element("shale")
	e.AddSurfacePoint(pt(1, 1, 1, 2))
	assert.True(t, f.IsDirty())
}

func TestFrame_MapStackUnknownElement(t *testing.T) {
	f := twoGroupFrame()
	err := f.MapStack([]GroupSpec{{Name: "s", Relation: Erode, Elements: []string{"nope"}}})
	if err == nil {
		t.Fatal("expected error for unknown element in stack mapping")
	}
}

// ============================================================================
// Section 5: Element mesh solution
// ============================================================================

func TestElement_SetMeshSolution(t *testing.T) {
	e := NewStructuralElement("shale", nil, nil)

	_, _, ok := e.Mesh()
	assert.False(t, ok, "no mesh before a solve")

	verts := []r3.Vec{{X: 1}, {X: 2}, {X: 3}}
	edges := [][3]int{{0, 1, 2}}
	e.SetMeshSolution(verts, edges)
	v, ed, ok := e.Mesh()
	assert.True(t, ok)
	assert.Equal(t, verts, v)
	assert.Equal(t, edges, ed)

	// Explicit no-surface result replaces the previous mesh.
	e.SetMeshSolution(nil, nil)
	v, ed, ok = e.Mesh()
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Nil(t, ed)
}

func TestElement_SetMeshSolutionPartialPanics(t *testing.T) {
	e := NewStructuralElement("shale", nil, nil)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for vertices without edges")
		}
	}()
	e.SetMeshSolution([]r3.Vec{{X: 1}}, nil)
}

func TestStackRelation_String(t *testing.T) {
	assert.Equal(t, "erode", Erode.String())
	assert.Equal(t, "fault", Fault.String())
	assert.Equal(t, "basement", Basement.String())
}
