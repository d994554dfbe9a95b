// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// runtimeOptions holds configuration options for Runtime creation.
type runtimeOptions struct {
	logger       *logiface.Logger[logiface.Event]
	limiter      *catrate.Limiter
	workers      int
	backlogDepth int
}

// --- Runtime Options ---

// Option configures a Runtime instance.
type Option interface {
	applyRuntime(*runtimeOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyRuntimeFunc func(*runtimeOptions) error
}

func (o *optionImpl) applyRuntime(opts *runtimeOptions) error {
	return o.applyRuntimeFunc(opts)
}

// WithWorkers sets the number of workers, which must be positive.
// Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		if n <= 0 {
			return fmt.Errorf("fiber: invalid worker count: %d", n)
		}
		opts.workers = n
		return nil
	}}
}

// WithLogger configures structured logging. A nil logger (the default)
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithBacklogWarning enables a warning, logged whenever a worker's ready
// queue reaches depth. If rates is non-empty, the warnings are rate limited
// per worker, using the same semantics as [catrate.NewLimiter].
func WithBacklogWarning(depth int, rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *runtimeOptions) (err error) {
		if depth <= 0 {
			return fmt.Errorf("fiber: invalid backlog depth: %d", depth)
		}
		if len(rates) != 0 {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("fiber: invalid backlog warning rates: %v", r)
				}
			}()
			opts.limiter = catrate.NewLimiter(rates)
		}
		opts.backlogDepth = depth
		return nil
	}}
}

// resolveOptions applies Option instances to runtimeOptions.
func resolveOptions(opts []Option) (*runtimeOptions, error) {
	cfg := &runtimeOptions{
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- Spawn Options ---

// spawnOptions holds configuration options for a single fiber.
type spawnOptions struct {
	worker int
	pinned bool
}

// SpawnOption configures a fiber, see [Runtime.Go].
type SpawnOption interface {
	applySpawn(*spawnOptions) error
}

type spawnOptionImpl struct {
	applySpawnFunc func(*spawnOptions) error
}

func (o *spawnOptionImpl) applySpawn(opts *spawnOptions) error {
	return o.applySpawnFunc(opts)
}

// Pinned prevents the fiber from ever being migrated away from the worker
// it starts on.
func Pinned() SpawnOption {
	return &spawnOptionImpl{func(opts *spawnOptions) error {
		opts.pinned = true
		return nil
	}}
}

// OnWorker starts the fiber on the worker at index i. By default, workers
// are assigned round-robin.
func OnWorker(i int) SpawnOption {
	return &spawnOptionImpl{func(opts *spawnOptions) error {
		if i < 0 {
			return fmt.Errorf("fiber: invalid worker index: %d", i)
		}
		opts.worker = i
		return nil
	}}
}

var errWorkerOutOfRange = errors.New("fiber: worker index out of range")

func resolveSpawnOptions(opts []SpawnOption, workers int) (*spawnOptions, error) {
	cfg := &spawnOptions{worker: -1}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySpawn(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.worker >= workers {
		return nil, errWorkerOutOfRange
	}
	return cfg, nil
}
