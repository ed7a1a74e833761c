package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rollkit/bridge/pkg/log"
)

// Service exposes a Run method that blocks until the service ends or the context is canceled.
type Service interface {
	// Run starts the service and blocks until it is shut down via context cancellation,
	// an error occurs, or all work is done.
	Run(ctx context.Context) error
}

// Func adapts a plain function to the Service interface.
type Func func(ctx context.Context) error

// Run calls f(ctx).
func (f Func) Run(ctx context.Context) error { return f(ctx) }

// BaseService provides a basic implementation of the Service interface.
type BaseService struct {
	Logger log.Logger
	name   string
	impl   Service
}

// NewBaseService creates a new BaseService.
// The provided implementation (impl) should be the "subclass" that implements Run.
func NewBaseService(logger log.Logger, name string, impl Service) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &BaseService{
		Logger: logger.With("module", name),
		name:   name,
		impl:   impl,
	}
}

// SetLogger sets the logger.
func (bs *BaseService) SetLogger(l log.Logger) {
	bs.Logger = l
}

// Run logs the start and the end of the service and defers to the
// implementation. Without an implementation it waits for ctx to be done.
func (bs *BaseService) Run(ctx context.Context) error {
	bs.Logger.Info("starting service")

	var err error
	if bs.impl == nil || bs.impl == Service(bs) {
		<-ctx.Done()
		err = ctx.Err()
	} else {
		err = bs.impl.Run(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		bs.Logger.Error("service stopped", "error", err)
	} else {
		bs.Logger.Info("service stopped")
	}
	return err
}

// String returns the service name.
func (bs *BaseService) String() string {
	return bs.name
}

// RunGroup runs every service concurrently and returns when all of them have
// returned. The first service to fail cancels the others; its error is
// returned. Context cancellation is not reported as a failure.
func RunGroup(ctx context.Context, services ...Service) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		g.Go(func() error {
			err := s.Run(gctx)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%v: %w", s, err)
			}
			return nil
		})
	}
	return g.Wait()
}
