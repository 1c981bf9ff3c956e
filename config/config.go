// Package config describes the parameters of a simulation space, with defaults, YAML loading
// and validation.
//
// A config file only needs the fields it changes; everything else keeps its default:
//
//	gravity: {x: 0, y: -9.81}
//	iterations: 20
//	sleep_time_threshold: 0.5
//	index:
//	  kind: spatial_hash
//	  cell_size: 2
//	  cells: 1000
//
// The YAML float literal .inf is accepted for the thresholds that may be infinite.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	IndexBBTree      = "bbtree"
	IndexSpatialHash = "spatial_hash"
)

type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Index selects the broad phase.
type Index struct {
	Kind string `yaml:"kind"`
	// CellSize and Cells configure the spatial hash
	CellSize float64 `yaml:"cell_size"`
	Cells    int     `yaml:"cells"`
}

// Space holds the parameters of a space.
type Space struct {
	Gravity Vec2 `yaml:"gravity"`
	// Damping is the fraction of velocity kept after one second
	Damping    float64 `yaml:"damping"`
	Iterations int     `yaml:"iterations"`

	// IdleSpeedThreshold is the speed under which a body is idle; 0 derives it from the gravity
	IdleSpeedThreshold float64 `yaml:"idle_speed_threshold"`
	// SleepTimeThreshold is the idle time after which an island sleeps; .inf disables sleeping
	SleepTimeThreshold float64 `yaml:"sleep_time_threshold"`

	CollisionSlop        float64 `yaml:"collision_slop"`
	CollisionBias        float64 `yaml:"collision_bias"`
	CollisionPersistence uint64  `yaml:"collision_persistence"`

	// Workers refresh the shape geometry in parallel during a step
	Workers int `yaml:"workers"`

	Index Index `yaml:"index"`
}

// Default returns the default parameters: no gravity, no damping, 10 iterations, sleeping disabled.
func Default() Space {
	return Space{
		Damping:              1,
		Iterations:           10,
		SleepTimeThreshold:   math.Inf(1),
		CollisionSlop:        0.1,
		CollisionBias:        math.Pow(1-0.1, 60),
		CollisionPersistence: 3,
		Workers:              1,
		Index: Index{
			Kind:     IndexBBTree,
			CellSize: 1,
			Cells:    1000,
		},
	}
}

// Load decodes a YAML document on top of the defaults and validates the result.
// An empty document gives the defaults.
func Load(r io.Reader) (Space, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Space{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Space{}, err
	}
	return cfg, nil
}

// LoadFile is Load on the file at path.
func LoadFile(path string) (Space, error) {
	f, err := os.Open(path)
	if err != nil {
		return Space{}, err
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return Space{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid parameter, wrapped in ErrInvalidConfig.
func (c Space) Validate() error {
	switch {
	case !isFinite(c.Gravity.X) || !isFinite(c.Gravity.Y):
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	case !isFinite(c.Damping) || c.Damping < 0:
		return fmt.Errorf("%w: damping must be finite and not negative, got %v", ErrInvalidConfig, c.Damping)
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	case !isFinite(c.IdleSpeedThreshold) || c.IdleSpeedThreshold < 0:
		return fmt.Errorf("%w: idle_speed_threshold must be finite and not negative, got %v", ErrInvalidConfig, c.IdleSpeedThreshold)
	case math.IsNaN(c.SleepTimeThreshold) || c.SleepTimeThreshold <= 0:
		return fmt.Errorf("%w: sleep_time_threshold must be positive, got %v", ErrInvalidConfig, c.SleepTimeThreshold)
	case !isFinite(c.CollisionSlop) || c.CollisionSlop < 0:
		return fmt.Errorf("%w: collision_slop must be finite and not negative, got %v", ErrInvalidConfig, c.CollisionSlop)
	case math.IsNaN(c.CollisionBias) || c.CollisionBias < 0 || c.CollisionBias > 1:
		return fmt.Errorf("%w: collision_bias must be in [0, 1], got %v", ErrInvalidConfig, c.CollisionBias)
	case c.CollisionPersistence == 0:
		return fmt.Errorf("%w: collision_persistence must be at least 1", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}

	return c.Index.Validate()
}

func (i Index) Validate() error {
	switch i.Kind {
	case "", IndexBBTree:
		return nil
	case IndexSpatialHash:
		if !isFinite(i.CellSize) || i.CellSize <= 0 {
			return fmt.Errorf("%w: index.cell_size must be positive, got %v", ErrInvalidConfig, i.CellSize)
		}
		if i.Cells <= 0 {
			return fmt.Errorf("%w: index.cells must be positive, got %d", ErrInvalidConfig, i.Cells)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown index kind %q", ErrInvalidConfig, i.Kind)
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
