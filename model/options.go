package model

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// InterpolationOptions configures the external interpolation engine. The
// core only interprets NumberOctreeLevels (grid resolution coupling);
// everything else is passed through to the engine untouched.
type InterpolationOptions struct {
	// Range is the covariance range of the interpolator, relative to the
	// normalized extent.
	Range float64 `toml:"range"`

	// CDrift is the degree of the polynomial drift.
	CDrift int `toml:"c_drift"`

	// NumberOctreeLevels > 1 enables multi-resolution octree solving,
	// which forces the regular grid resolution to 2^levels per axis.
	NumberOctreeLevels int `toml:"number_octree_levels"`

	// MeshExtraction asks the engine for per-element surface meshes.
	MeshExtraction bool `toml:"mesh_extraction"`

	// EvaluationChunkSize bounds the engine's per-batch evaluation size.
	EvaluationChunkSize int `toml:"evaluation_chunk_size"`
}

// DefaultOptions returns the options used when the caller supplies none.
func DefaultOptions() *InterpolationOptions {
	return &InterpolationOptions{
		Range:               1.7,
		CDrift:              1,
		NumberOctreeLevels:  1,
		MeshExtraction:      true,
		EvaluationChunkSize: 500_000,
	}
}

// LoadOptions reads interpolation options from a TOML file. Fields absent
// from the file keep their defaults.
func LoadOptions(path string) (*InterpolationOptions, error) {
	opts := DefaultOptions()
	if _, err := toml.DecodeFile(path, opts); err != nil {
		return nil, fmt.Errorf("load interpolation options %s: %w", path, err)
	}
	if opts.NumberOctreeLevels < 1 {
		return nil, fmt.Errorf("load interpolation options %s: number_octree_levels must be >= 1, got %d",
			path, opts.NumberOctreeLevels)
	}
	return opts, nil
}
