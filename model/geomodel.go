// Package model orchestrates the structural frame, grid and transform
// into the derived, cached interpolation input, and scatters engine
// solutions back onto the owning groups and elements.
package model

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/terralith/geomodel/grid"
	"github.com/terralith/geomodel/structure"
	"github.com/terralith/geomodel/transform"
)

// ErrIndexMismatch is returned when the shape of an engine solution
// disagrees with the current structural composition, which means the
// engine was run against a stale interpolation input. It is surfaced, not
// retried.
var ErrIndexMismatch = errors.New("solution shape does not match structural composition")

// ConfigurationWarning is a recorded non-fatal configuration conflict,
// such as a user-set grid resolution being overridden for octree solving.
type ConfigurationWarning string

// Meta carries model bookkeeping.
type Meta struct {
	Name                 string
	Owner                string
	CreationDate         time.Time
	LastModificationDate time.Time
}

// GeoModel owns the derived interpolation cache: it watches the frame's
// dirty flag, rebuilds the normalized engine input exactly once per dirty
// period, and distributes engine solutions back onto groups and elements.
//
// The transform is fitted once, from the input extent at construction,
// and never refit: structural edits after construction deliberately do
// not change the normalization.
type GeoModel struct {
	Meta Meta

	frame     *structure.StructuralFrame
	grid      *grid.Grid
	transform *transform.Transform
	options   *InterpolationOptions

	// mu guards the dirty-check/rebuild/clear sequence. Checking the
	// flag, rebuilding and clearing is a check-then-act race under
	// concurrent readers; exactly one rebuild must happen per dirty
	// period.
	mu        sync.Mutex
	input     *InterpolationInput
	solutions *Solutions
	rebuilds  int
	warnings  []ConfigurationWarning
}

// New constructs a GeoModel over the frame and grid, fitting the
// Transform from the current input extent. Returns
// transform.ErrDegenerateInput (wrapped) when the frame's geometry has no
// extent to fit from.
func New(name string, frame *structure.StructuralFrame, g *grid.Grid, opts *InterpolationOptions) (*GeoModel, error) {
	if frame == nil {
		panic("model: frame cannot be nil")
	}
	if g == nil {
		panic("model: grid cannot be nil")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	pts := frame.SurfacePoints()
	ors := frame.Orientations()
	positions := make([]r3.Vec, len(pts))
	for i, p := range pts {
		positions[i] = p.Pos
	}
	orPositions := make([]r3.Vec, len(ors))
	for i, o := range ors {
		orPositions[i] = o.Pos
	}

	tr, err := transform.FitFromInput(positions, orPositions, transform.FitOptions{})
	if err != nil {
		return nil, fmt.Errorf("construct model %q: %w", name, err)
	}

	now := time.Now()
	return &GeoModel{
		Meta:      Meta{Name: name, CreationDate: now, LastModificationDate: now},
		frame:     frame,
		grid:      g,
		transform: tr,
		options:   opts,
	}, nil
}

// Frame returns the structural frame. Ownership of mutation is shared
// with the caller; every structural edit flows back through the frame's
// dirty flag.
func (m *GeoModel) Frame() *structure.StructuralFrame { return m.frame }

// Grid returns the evaluation grid.
func (m *GeoModel) Grid() *grid.Grid { return m.grid }

// Transform returns the normalization fitted at construction.
func (m *GeoModel) Transform() *transform.Transform { return m.transform }

// Options returns the interpolation options.
func (m *GeoModel) Options() *InterpolationOptions { return m.options }

// Solutions returns the last assigned solutions, nil before a solve.
func (m *GeoModel) Solutions() *Solutions { return m.solutions }

// SurfacePoints exposes the frame's flattened surface point table.
func (m *GeoModel) SurfacePoints() []structure.SurfacePoint { return m.frame.SurfacePoints() }

// Orientations exposes the frame's flattened orientation table.
func (m *GeoModel) Orientations() []structure.Orientation { return m.frame.Orientations() }

// InputDataDescriptor exposes the frame's current structural summary.
func (m *GeoModel) InputDataDescriptor() *structure.InputDataDescriptor {
	return m.frame.InputDataDescriptor()
}

// RebuildCount returns how many interpolation input rebuilds have run.
func (m *GeoModel) RebuildCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuilds
}

// Warnings returns the configuration warnings recorded so far.
func (m *GeoModel) Warnings() []ConfigurationWarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConfigurationWarning(nil), m.warnings...)
}

// InterpolationInput returns the engine-ready derived input, rebuilding it
// only when the frame is dirty. A clean frame returns the cached pointer
// unchanged, with no recomputation and no copy. On rebuild:
//
//  1. If octree solving is configured and the user set the regular grid
//     resolution explicitly, a ConfigurationWarning is recorded and the
//     resolution is overwritten to 2^levels per axis; the level pyramid
//     requires power-of-two resolution, so the engine constraint takes
//     precedence over the user preference.
//  2. The input is rebuilt from the frame's flattened tables, the grid
//     and the immutable transform: point coordinates are transformed,
//     gradient vectors are left untouched for isotropic fits.
//  3. The frame's dirty flag is cleared.
//
// A rebuild failure leaves both the cache and the dirty flag as they
// were, so a retry after fixing the input is always possible.
func (m *GeoModel) InterpolationInput() (*InterpolationInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.frame.IsDirty() && m.input != nil {
		return m.input, nil
	}

	octree := m.options.NumberOctreeLevels > 1
	if octree {
		if m.grid.Regular.ResolutionSetByUser() {
			w := ConfigurationWarning(fmt.Sprintf(
				"octree solving is active: regular grid resolution %v will be overwritten",
				m.grid.Regular.Resolution()))
			m.warnings = append(m.warnings, w)
			slog.Warn(string(w), "model", m.Meta.Name, "octree_levels", m.options.NumberOctreeLevels)
		}
		side := 1 << m.options.NumberOctreeLevels
		m.grid.Regular.OverrideResolution([3]int{side, side, side})
	}

	input, err := buildInterpolationInput(m.frame, m.grid, m.transform, octree)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Meta.Name, err)
	}

	m.frame.MarkRebuilt()
	m.input = input
	m.rebuilds++
	m.Meta.LastModificationDate = time.Now()
	return m.input, nil
}

// SetSolutions distributes an engine result back onto the structure:
// every group receives its scalar field and block slice by group index,
// and every flattened element except the last (the basement, which by
// convention has no extractable surface) receives its mesh with vertices
// inverse-transformed into the user's coordinate space. A missing mesh is
// recorded as an explicit no-surface result. The engine's output order is
// assumed to equal the flattened input order; a group count disagreement
// means the engine ran on a stale input and fails with ErrIndexMismatch.
func (m *GeoModel) SetSolutions(sol *Solutions) error {
	if sol == nil {
		return fmt.Errorf("model %q: nil solutions: %w", m.Meta.Name, ErrIndexMismatch)
	}

	groups := m.frame.Groups()
	if len(sol.RawScalarFields) != len(groups) || len(sol.RawBlocks) != len(groups) {
		return fmt.Errorf("model %q: %d scalar field and %d block slices for %d groups: %w",
			m.Meta.Name, len(sol.RawScalarFields), len(sol.RawBlocks), len(groups), ErrIndexMismatch)
	}

	for e, g := range groups {
		g.SetSolution(sol.RawScalarFields[e], sol.RawBlocks[e])
	}

	elements := m.frame.Elements()
	if len(elements) == 0 {
		m.solutions = sol
		return nil
	}
	for e, el := range elements[:len(elements)-1] { // basement stays untouched
		var mesh *ElementMesh
		if sol.Meshes != nil && e < len(sol.Meshes) {
			mesh = sol.Meshes[e]
		}
		if mesh == nil {
			el.SetMeshSolution(nil, nil)
			continue
		}
		el.SetMeshSolution(m.transform.ApplyInverse(mesh.Vertices), mesh.Edges)
	}

	if sol.LithBlock != nil {
		m.grid.SetLithBlock(sol.LithBlock)
	}

	m.solutions = sol
	m.Meta.LastModificationDate = time.Now()
	return nil
}
