package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/terralith/geomodel/grid"
	"github.com/terralith/geomodel/structure"
	"github.com/terralith/geomodel/transform"
)

// InterpolationInput is the normalized, flattened, engine-ready
// representation of the model: every coordinate transformed into the
// normalization space, grid evaluation points included. It is pure cache,
// always reconstructible from frame, grid and transform, and never
// independently mutated.
type InterpolationInput struct {
	// SurfacePoints is the n×3 normalized surface point table, in the
	// frame's group-then-element order.
	SurfacePoints *mat.Dense

	// OrientationPositions is the m×3 normalized orientation position
	// table, same ordering contract.
	OrientationPositions *mat.Dense

	// Gradients is the m×3 gradient table. Gradients are direction
	// vectors: invariant under the normalization unless the fitted scale
	// is anisotropic, in which case they are re-normalized.
	Gradients *mat.Dense

	// GridValues is the k×3 normalized evaluation point table, regular
	// cells first, then topography nodes, then custom points.
	GridValues *mat.Dense

	// Octree is set when multi-resolution solving is active.
	Octree bool
}

// buildInterpolationInput flattens the frame's tables, normalizes every
// coordinate through the transform, and bundles the grid evaluation
// points. Gradient vectors pass through TransformGradients, which only
// touches them for anisotropic fits.
func buildInterpolationInput(f *structure.StructuralFrame, g *grid.Grid, tr *transform.Transform, octree bool) (*InterpolationInput, error) {
	pts := f.SurfacePositions()
	if pts == nil {
		return nil, fmt.Errorf("build interpolation input: frame has no surface points")
	}

	in := &InterpolationInput{
		SurfacePoints: tr.ApplyDense(pts),
		Octree:        octree,
	}

	if ors := f.Orientations(); len(ors) > 0 {
		in.OrientationPositions = tr.ApplyDense(f.OrientationPositions())

		gradients := make([]r3.Vec, len(ors))
		for i, o := range ors {
			gradients[i] = o.Gradient
		}
		gradients = tr.TransformGradients(gradients)
		in.Gradients = mat.NewDense(len(gradients), 3, nil)
		for i, grad := range gradients {
			in.Gradients.Set(i, 0, grad.X)
			in.Gradients.Set(i, 1, grad.Y)
			in.Gradients.Set(i, 2, grad.Z)
		}
	}

	vals, err := g.Values()
	if err != nil {
		return nil, fmt.Errorf("build interpolation input: %w", err)
	}
	in.GridValues = tr.ApplyDense(vals)

	return in, nil
}
