package feather2d

import (
	"github.com/akmonengine/feather2d/config"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Option configures a space at construction.
type Option func(s *settings)

type settings struct {
	config config.Space
	logger *zap.Logger
}

// WithConfig replaces every parameter with cfg. Options after it still apply.
func WithConfig(cfg config.Space) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

func WithGravity(gravity mgl64.Vec2) Option {
	return func(s *settings) {
		s.config.Gravity = config.Vec2{X: gravity.X(), Y: gravity.Y()}
	}
}

func WithIterations(iterations int) Option {
	return func(s *settings) {
		s.config.Iterations = iterations
	}
}

// WithDamping sets the fraction of velocity kept after one second.
func WithDamping(damping float64) Option {
	return func(s *settings) {
		s.config.Damping = damping
	}
}

// WithSleepTimeThreshold enables sleeping: an island sleeps once all its bodies stayed idle that long.
func WithSleepTimeThreshold(threshold float64) Option {
	return func(s *settings) {
		s.config.SleepTimeThreshold = threshold
	}
}

func WithIdleSpeedThreshold(threshold float64) Option {
	return func(s *settings) {
		s.config.IdleSpeedThreshold = threshold
	}
}

func WithCollisionSlop(slop float64) Option {
	return func(s *settings) {
		s.config.CollisionSlop = slop
	}
}

func WithCollisionBias(bias float64) Option {
	return func(s *settings) {
		s.config.CollisionBias = bias
	}
}

// WithCollisionPersistence sets the number of steps an arbiter is kept after its shapes separated.
func WithCollisionPersistence(steps uint64) Option {
	return func(s *settings) {
		s.config.CollisionPersistence = steps
	}
}

// WithWorkers sets the number of goroutines refreshing the shape geometry during a step.
func WithWorkers(workers int) Option {
	return func(s *settings) {
		s.config.Workers = workers
	}
}

// WithSpatialHash uses spatial hashes instead of bounding box trees for the broad phase.
func WithSpatialHash(cellSize float64, cells int) Option {
	return func(s *settings) {
		s.config.Index = config.Index{Kind: config.IndexSpatialHash, CellSize: cellSize, Cells: cells}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}
