package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateInput is returned when the input geometry has zero spatial
// extent and no normalization can be fitted from it.
var ErrDegenerateInput = errors.New("degenerate input: all coordinates are coincident")

// extentEpsilon guards the per-axis scale division against zero extent.
const extentEpsilon = 1e-12

// FitOptions controls how a Transform is fitted from input geometry.
type FitOptions struct {
	// UnitSpan is the target span of the normalized space along the
	// largest axis. Zero means 1.
	UnitSpan float64

	// PerAxisScale fits an independent scale per axis instead of one
	// isotropic scale derived from the largest extent.
	PerAxisScale bool
}

// Transform is an invertible affine normalization fitted once from the
// extent of the raw input geometry. It maps raw world coordinates into the
// unit-scale space the interpolation engine consumes, and maps engine
// output meshes back. A Transform is a value object: it is never mutated
// after construction, and structural edits do not refit it.
type Transform struct {
	// Translation is applied first and recenters the input on the origin.
	Translation r3.Vec

	// Scale is applied after translation (and rotation). All components
	// are > 0.
	Scale r3.Vec

	// Rotation is optional. Nil means identity.
	Rotation *r3.Rotation
}

// FitFromInput fits a Transform from the positions of all surface points
// and orientations: center and per-axis extent are computed across every
// coordinate, translation recenters on the origin, and scale maps the
// extent onto UnitSpan. Returns ErrDegenerateInput when every coordinate
// coincides.
func FitFromInput(surfacePoints, orientations []r3.Vec, opts FitOptions) (*Transform, error) {
	n := len(surfacePoints) + len(orientations)
	if n == 0 {
		return nil, fmt.Errorf("fit transform from 0 coordinates: %w", ErrDegenerateInput)
	}

	box := boundsOf(surfacePoints, orientations)
	extent := r3.Sub(box.Max, box.Min)
	maxExtent := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if maxExtent <= extentEpsilon {
		return nil, fmt.Errorf("fit transform from %d coincident coordinates: %w", n, ErrDegenerateInput)
	}

	unitSpan := opts.UnitSpan
	if unitSpan == 0 {
		unitSpan = 1
	}

	center := r3.Scale(0.5, r3.Add(box.Min, box.Max))

	var scale r3.Vec
	if opts.PerAxisScale {
		scale = r3.Vec{
			X: unitSpan / math.Max(extent.X, extentEpsilon),
			Y: unitSpan / math.Max(extent.Y, extentEpsilon),
			Z: unitSpan / math.Max(extent.Z, extentEpsilon),
		}
	} else {
		s := unitSpan / maxExtent
		scale = r3.Vec{X: s, Y: s, Z: s}
	}

	return &Transform{
		Translation: r3.Scale(-1, center),
		Scale:       scale,
	}, nil
}

// boundsOf returns the axis-aligned bounding box of both coordinate sets.
func boundsOf(a, b []r3.Vec) r3.Box {
	inf := math.Inf(1)
	box := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, set := range [][]r3.Vec{a, b} {
		for _, p := range set {
			box.Min.X = math.Min(box.Min.X, p.X)
			box.Min.Y = math.Min(box.Min.Y, p.Y)
			box.Min.Z = math.Min(box.Min.Z, p.Z)
			box.Max.X = math.Max(box.Max.X, p.X)
			box.Max.Y = math.Max(box.Max.Y, p.Y)
			box.Max.Z = math.Max(box.Max.Z, p.Z)
		}
	}
	return box
}

// apply maps one point into normalized space: translate, rotate, scale.
func (t *Transform) apply(p r3.Vec) r3.Vec {
	q := r3.Add(p, t.Translation)
	if t.Rotation != nil {
		q = t.Rotation.Rotate(q)
	}
	return r3.Vec{X: q.X * t.Scale.X, Y: q.Y * t.Scale.Y, Z: q.Z * t.Scale.Z}
}

// applyInverse is the exact algebraic inverse of apply.
func (t *Transform) applyInverse(p r3.Vec) r3.Vec {
	q := r3.Vec{X: p.X / t.Scale.X, Y: p.Y / t.Scale.Y, Z: p.Z / t.Scale.Z}
	if t.Rotation != nil {
		inv := r3.Rotation(quat.Conj(quat.Number(*t.Rotation)))
		q = inv.Rotate(q)
	}
	return r3.Sub(q, t.Translation)
}

// Apply maps points into the normalized space. The input slice is not
// modified.
func (t *Transform) Apply(points []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = t.apply(p)
	}
	return out
}

// ApplyInverse maps normalized points back into the original coordinate
// space. It satisfies ApplyInverse(Apply(p)) == p to floating tolerance
// for every valid Transform.
func (t *Transform) ApplyInverse(points []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = t.applyInverse(p)
	}
	return out
}

// ApplyDense maps an n×3 coordinate table into normalized space,
// returning a new table.
func (t *Transform) ApplyDense(points *mat.Dense) *mat.Dense {
	return t.mapDense(points, t.apply)
}

// ApplyInverseDense maps an n×3 normalized coordinate table back into the
// original space, returning a new table.
func (t *Transform) ApplyInverseDense(points *mat.Dense) *mat.Dense {
	return t.mapDense(points, t.applyInverse)
}

func (t *Transform) mapDense(points *mat.Dense, f func(r3.Vec) r3.Vec) *mat.Dense {
	rows, cols := points.Dims()
	if cols != 3 {
		panic(fmt.Sprintf("transform: coordinate table must be n×3, got n×%d", cols))
	}
	out := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		p := f(r3.Vec{X: points.At(i, 0), Y: points.At(i, 1), Z: points.At(i, 2)})
		out.Set(i, 0, p.X)
		out.Set(i, 1, p.Y)
		out.Set(i, 2, p.Z)
	}
	return out
}

// IsAnisotropic reports whether the fitted scale differs between axes by
// more than tol, relative to the largest component.
func (t *Transform) IsAnisotropic(tol float64) bool {
	maxS := math.Max(t.Scale.X, math.Max(t.Scale.Y, t.Scale.Z))
	minS := math.Min(t.Scale.X, math.Min(t.Scale.Y, t.Scale.Z))
	return (maxS-minS)/maxS > tol
}

// TransformGradients maps orientation gradient vectors into normalized
// space. Direction vectors are invariant under translation and isotropic
// scale, so for an isotropic Transform the gradients pass through
// unchanged (a copy is still returned). Under per-axis scale each gradient
// is scaled component-wise by the inverse scale and re-normalized to unit
// length; under rotation it is rotated.
func (t *Transform) TransformGradients(gradients []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(gradients))
	aniso := t.IsAnisotropic(1e-9)
	for i, g := range gradients {
		if t.Rotation != nil {
			g = t.Rotation.Rotate(g)
		}
		if aniso {
			g = r3.Vec{X: g.X / t.Scale.X, Y: g.Y / t.Scale.Y, Z: g.Z / t.Scale.Z}
			if norm := r3.Norm(g); norm > 0 {
				g = r3.Scale(1/norm, g)
			}
		}
		out[i] = g
	}
	return out
}
