package structure

// GroupDescriptor summarizes one structural group for the engine.
type GroupDescriptor struct {
	Name                 string
	Relation             StackRelation
	NumberOfElements     int
	NumberOfPoints       int // surface points across the group's elements
	NumberOfOrientations int
}

// InputDataDescriptor is the compact structural summary the interpolation
// engine needs alongside the flattened tables: how the contiguous rows of
// the point and orientation tables chunk into groups and elements, and
// each group's stack relation.
type InputDataDescriptor struct {
	Groups []GroupDescriptor

	// PointsPerElement holds the per-element surface point counts in
	// flattened element order, so row offsets can be recovered by prefix
	// sums.
	PointsPerElement []int

	TotalPoints       int
	TotalOrientations int
}

// InputDataDescriptor recomputes the descriptor from the current group and
// element composition. It is cheap and never cached: the expensive
// invalidation logic lives one level up, in the owning model.
func (f *StructuralFrame) InputDataDescriptor() *InputDataDescriptor {
	d := &InputDataDescriptor{
		Groups: make([]GroupDescriptor, len(f.groups)),
	}
	for i, g := range f.groups {
		d.Groups[i] = GroupDescriptor{
			Name:                 g.name,
			Relation:             g.relation,
			NumberOfElements:     len(g.elements),
			NumberOfPoints:       g.NumPoints(),
			NumberOfOrientations: g.NumOrientations(),
		}
		for _, e := range g.elements {
			d.PointsPerElement = append(d.PointsPerElement, len(e.points))
		}
		d.TotalPoints += d.Groups[i].NumberOfPoints
		d.TotalOrientations += d.Groups[i].NumberOfOrientations
	}
	return d
}

// NumElements returns the total element count across groups.
func (d *InputDataDescriptor) NumElements() int {
	return len(d.PointsPerElement)
}
