// Command feather2d-bench steps independent spaces in parallel and reports the stepping rate.
//
//	feather2d-bench -config space.yaml -spaces 8 -bodies 200 -steps 600 -workers 4
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akmonengine/feather2d"
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/config"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	spaces     int
	bodies     int
	steps      int
	dt         float64
	workers    int
	dev        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML space configuration (defaults apply when empty)")
	flag.IntVar(&opts.spaces, "spaces", 4, "number of independent spaces")
	flag.IntVar(&opts.bodies, "bodies", 100, "bodies dropped in each space")
	flag.IntVar(&opts.steps, "steps", 600, "steps per space")
	flag.Float64Var(&opts.dt, "dt", 1.0/60.0, "time step in seconds")
	flag.IntVar(&opts.workers, "workers", 4, "spaces stepped at the same time")
	flag.BoolVar(&opts.dev, "dev", false, "human readable debug logs")
	flag.Parse()

	logger, err := newLogger(opts.dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "feather2d-bench:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("bench failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, logger *zap.Logger, opts options) error {
	cfg := config.Default()
	cfg.Gravity = config.Vec2{Y: -10}
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configPath); err != nil {
			return err
		}
	}

	spaces := make([]*feather2d.Space, opts.spaces)
	for i := range spaces {
		space, err := feather2d.NewSpaceFromConfig(cfg, feather2d.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := buildScene(space, opts.bodies); err != nil {
			return fmt.Errorf("space %s: %w", space.ID(), err)
		}
		spaces[i] = space
	}

	logger.Info("stepping",
		zap.Int("spaces", opts.spaces),
		zap.Int("bodies", opts.bodies),
		zap.Int("steps", opts.steps),
		zap.Float64("dt", opts.dt),
		zap.Int("workers", opts.workers),
		zap.String("index", cfg.Index.Kind),
	)

	start := time.Now()
	err := feather2d.StepParallel(ctx, spaces, opts.dt, opts.steps, opts.workers)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	total := opts.spaces * opts.steps
	logger.Info("done",
		zap.Duration("elapsed", elapsed),
		zap.Float64("steps_per_second", float64(total)/elapsed.Seconds()),
		zap.Duration("per_step", elapsed/time.Duration(max(1, total))),
	)

	for _, space := range spaces {
		sleeping := 0
		for body := range space.Bodies() {
			if body.IsSleeping {
				sleeping++
			}
		}
		logger.Debug("space state",
			zap.Stringer("space", space.ID()),
			zap.Uint64("stamp", space.Stamp()),
			zap.Int("sleeping", sleeping),
		)
	}
	return nil
}

// buildScene drops a grid of balls and boxes in a box made of three static segments.
func buildScene(space *feather2d.Space, bodies int) error {
	walls := [][2]mgl64.Vec2{
		{{-20, 0}, {20, 0}},
		{{-20, 0}, {-20, 100}},
		{{20, 0}, {20, 100}},
	}
	for _, w := range walls {
		seg, err := actor.NewSegment(space.StaticBody(), w[0], w[1], 0.1)
		if err != nil {
			return err
		}
		seg.Friction = 0.8
		if err := space.AddShape(seg); err != nil {
			return err
		}
	}

	const columns = 20
	for i := range bodies {
		position := mgl64.Vec2{-19 + 1.9*float64(i%columns), 1 + 1.2*float64(i/columns)}

		var body *actor.Body
		var shape actor.Shape
		var err error
		if i%2 == 0 {
			if body, err = actor.NewBody(1, geom.MomentForCircle(1, 0, 0.5, mgl64.Vec2{})); err != nil {
				return err
			}
			shape, err = actor.NewCircle(body, 0.5, mgl64.Vec2{})
		} else {
			if body, err = actor.NewBody(1, geom.MomentForBox(1, 1, 1)); err != nil {
				return err
			}
			shape, err = actor.NewBox(body, 1, 1, 0)
		}
		if err != nil {
			return err
		}

		body.SetPosition(position)
		if err := space.AddBody(body); err != nil {
			return err
		}
		shape.Base().Friction = 0.7
		if err := space.AddShape(shape); err != nil {
			return err
		}
	}
	return nil
}
