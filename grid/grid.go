// Package grid discretizes the modeling domain: a regular 3-D grid plus
// optional topography and custom evaluation grids, and the post-solve
// field arrays attached to them.
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ActiveGrids is a bitmask of the grids contributing evaluation points.
type ActiveGrids uint8

const (
	Regular ActiveGrids = 1 << iota
	Topography
	Custom
)

// RegularGrid is a regular 3-D discretization of the domain extent.
type RegularGrid struct {
	// Extent is [xmin, xmax, ymin, ymax, zmin, zmax].
	Extent [6]float64

	resolution [3]int

	// userSet records whether the resolution was set explicitly by the
	// user, which matters when octree solving has to override it.
	userSet bool
}

// NewRegularGrid creates a regular grid with the given extent and
// resolution. The resolution counts as user-set.
func NewRegularGrid(extent [6]float64, resolution [3]int) *RegularGrid {
	g := &RegularGrid{Extent: extent}
	g.SetResolution(resolution)
	return g
}

// Resolution returns the cell count per axis.
func (g *RegularGrid) Resolution() [3]int { return g.resolution }

// SetResolution sets the cell count per axis and records that the user
// chose it explicitly.
func (g *RegularGrid) SetResolution(resolution [3]int) {
	for _, r := range resolution {
		if r < 1 {
			panic(fmt.Sprintf("grid: resolution must be >= 1 per axis, got %v", resolution))
		}
	}
	g.resolution = resolution
	g.userSet = true
}

// ResolutionSetByUser reports whether the current resolution was chosen by
// the user rather than imposed by the solver.
func (g *RegularGrid) ResolutionSetByUser() bool { return g.userSet }

// OverrideResolution replaces the resolution on behalf of the solver,
// clearing the user-set record so repeated rebuilds do not re-warn.
func (g *RegularGrid) OverrideResolution(resolution [3]int) {
	g.resolution = resolution
	g.userSet = false
}

// NumCells returns the total cell count.
func (g *RegularGrid) NumCells() int {
	return g.resolution[0] * g.resolution[1] * g.resolution[2]
}

// CellCenters returns the cell center coordinates as an n×3 table in x
// outer, y middle, z inner order. The order is fixed: field arrays from
// the engine are positional over it.
func (g *RegularGrid) CellCenters() *mat.Dense {
	xs := axisCenters(g.Extent[0], g.Extent[1], g.resolution[0])
	ys := axisCenters(g.Extent[2], g.Extent[3], g.resolution[1])
	zs := axisCenters(g.Extent[4], g.Extent[5], g.resolution[2])

	out := mat.NewDense(g.NumCells(), 3, nil)
	row := 0
	for _, x := range xs {
		for _, y := range ys {
			for _, z := range zs {
				out.Set(row, 0, x)
				out.Set(row, 1, y)
				out.Set(row, 2, z)
				row++
			}
		}
	}
	return out
}

// axisCenters returns n cell center coordinates spanning [lo, hi].
func axisCenters(lo, hi float64, n int) []float64 {
	h := (hi - lo) / float64(n)
	centers := make([]float64, n)
	if n == 1 {
		centers[0] = lo + h/2
		return centers
	}
	floats.Span(centers, lo+h/2, hi-h/2)
	return centers
}

// TopographyGrid is an elevation raster over the x/y extent, evaluated to
// mask air cells after a solve.
type TopographyGrid struct {
	// Extent is [xmin, xmax, ymin, ymax].
	Extent     [4]float64
	Resolution [2]int

	// Elevations holds z per raster node, x outer, y inner. Length must
	// equal Resolution[0]*Resolution[1].
	Elevations []float64
}

// NumPoints returns the raster node count.
func (t *TopographyGrid) NumPoints() int { return t.Resolution[0] * t.Resolution[1] }

// Points returns the raster nodes as an n×3 table.
func (t *TopographyGrid) Points() (*mat.Dense, error) {
	n := t.NumPoints()
	if len(t.Elevations) != n {
		return nil, fmt.Errorf("topography: %d elevations for %d raster nodes", len(t.Elevations), n)
	}
	xs := axisCenters(t.Extent[0], t.Extent[1], t.Resolution[0])
	ys := axisCenters(t.Extent[2], t.Extent[3], t.Resolution[1])

	out := mat.NewDense(n, 3, nil)
	row := 0
	for _, x := range xs {
		for _, y := range ys {
			out.Set(row, 0, x)
			out.Set(row, 1, y)
			out.Set(row, 2, t.Elevations[row])
			row++
		}
	}
	return out, nil
}

// CustomGrid is an arbitrary set of evaluation points supplied by the
// user, as an n×3 table.
type CustomGrid struct {
	Points *mat.Dense
}

// Grid bundles the regular grid with the optional extra evaluation grids
// and the field arrays produced by the last solve.
type Grid struct {
	Regular    *RegularGrid
	Topography *TopographyGrid
	Custom     *CustomGrid

	// Active selects which grids contribute rows to Values.
	Active ActiveGrids

	// Post-solve arrays over the regular grid cells, attached for the
	// read-only visualization surface.
	lithBlock    []float64
	scalarFields map[string][]float64
}

// New creates a Grid with only the regular grid active.
func New(extent [6]float64, resolution [3]int) *Grid {
	return &Grid{
		Regular: NewRegularGrid(extent, resolution),
		Active:  Regular,
	}
}

// Values concatenates the active grids' evaluation points in fixed order:
// regular cells, then topography nodes, then custom points. Engine field
// output is positional over this table.
func (g *Grid) Values() (*mat.Dense, error) {
	var blocks []*mat.Dense
	if g.Active&Regular != 0 {
		blocks = append(blocks, g.Regular.CellCenters())
	}
	if g.Active&Topography != 0 && g.Topography != nil {
		pts, err := g.Topography.Points()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, pts)
	}
	if g.Active&Custom != 0 && g.Custom != nil && g.Custom.Points != nil {
		blocks = append(blocks, g.Custom.Points)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("grid: no active evaluation grids")
	}

	total := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		total += r
	}
	out := mat.NewDense(total, 3, nil)
	row := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		for i := 0; i < r; i++ {
			out.Set(row, 0, b.At(i, 0))
			out.Set(row, 1, b.At(i, 1))
			out.Set(row, 2, b.At(i, 2))
			row++
		}
	}
	return out, nil
}

// SetLithBlock attaches the discrete block model from the last solve.
func (g *Grid) SetLithBlock(block []float64) { g.lithBlock = block }

// LithBlock returns the attached block model, nil before a solve.
func (g *Grid) LithBlock() []float64 { return g.lithBlock }

// AttachScalarField stores a named scalar field over the regular grid.
func (g *Grid) AttachScalarField(name string, values []float64) {
	if g.scalarFields == nil {
		g.scalarFields = map[string][]float64{}
	}
	g.scalarFields[name] = values
}

// ScalarField returns a previously attached scalar field.
func (g *Grid) ScalarField(name string) ([]float64, bool) {
	v, ok := g.scalarFields[name]
	return v, ok
}

// FieldRange returns the min and max of an attached scalar field, for
// consumers mapping colors over it.
func (g *Grid) FieldRange(name string) (min, max float64, err error) {
	v, ok := g.scalarFields[name]
	if !ok || len(v) == 0 {
		return 0, 0, fmt.Errorf("grid: no scalar field %q", name)
	}
	return floats.Min(v), floats.Max(v), nil
}
