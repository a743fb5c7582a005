package model

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/terralith/geomodel/structure"
)

// ElementMesh is one extracted surface in the engine's normalized space:
// vertices plus triangle index triples into them.
type ElementMesh struct {
	Vertices []r3.Vec
	Edges    [][3]int
}

// Solutions is what the interpolation engine returns for one solve. All
// arrays are positional: group index e in the raw arrays corresponds to
// the frame's group e, element index e in Meshes to the frame's flattened
// element e.
type Solutions struct {
	// RawScalarFields holds one scalar field per group, sampled over the
	// evaluation points.
	RawScalarFields [][]float64

	// RawBlocks holds one discrete block assignment array per group.
	RawBlocks [][]float64

	// Meshes holds one extracted mesh per flattened element, excluding
	// the basement. A nil entry means the engine found no extractable
	// surface for that element; that is a valid result, not an error.
	// Meshes itself may be nil when mesh extraction was disabled.
	Meshes []*ElementMesh

	// LithBlock is the combined lithology id per regular grid cell.
	LithBlock []float64
}

// Engine is the interpolation collaborator: a pure, expensive, possibly
// long-running black box. The model never invokes it; the caller derives
// the input, runs the engine, and assigns the result back with
// GeoModel.SetSolutions. Engine errors propagate unchanged and are never
// retried here.
type Engine interface {
	Evaluate(ctx context.Context, in *InterpolationInput, desc *structure.InputDataDescriptor,
		opts *InterpolationOptions) (*Solutions, error)
}
