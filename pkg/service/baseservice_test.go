package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/log"
)

// dummyService is a simple implementation of the Service interface for testing purposes.
type dummyService struct {
	*BaseService
	runCalled atomic.Bool
	runError  error
}

func newDummyService(name string, runError error) *dummyService {
	d := &dummyService{
		runError: runError,
	}
	d.BaseService = NewBaseService(log.NewNopLogger(), name, d)
	return d
}

func (d *dummyService) Run(ctx context.Context) error {
	d.runCalled.Store(true)
	if d.runError != nil {
		return d.runError
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestBaseService_Run(t *testing.T) {
	tests := []struct {
		name      string
		setupImpl bool
		runError  error
	}{
		{
			name:      "Default implementation (no impl)",
			setupImpl: false,
		},
		{
			name:      "Custom implementation - success",
			setupImpl: true,
		},
		{
			name:      "Custom implementation - error",
			setupImpl: true,
			runError:  errors.New("run error"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var bs *BaseService
			var ds *dummyService

			if tc.setupImpl {
				ds = newDummyService("dummy", tc.runError)
				bs = ds.BaseService
			} else {
				bs = NewBaseService(log.NewTestLogger(t), "dummy", nil)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := bs.Run(ctx)
			require.Error(t, err)
			if tc.runError != nil {
				assert.ErrorIs(t, err, tc.runError)
			} else {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			}

			if tc.setupImpl {
				assert.True(t, ds.runCalled.Load())
			}
		})
	}
}

func TestBaseService_String(t *testing.T) {
	bs := NewBaseService(nil, "test-service", nil)
	assert.Equal(t, "test-service", bs.String())
}

func TestBaseService_SetLogger(t *testing.T) {
	bs := NewBaseService(log.NewNopLogger(), "test", nil)
	newLogger := log.NewNopLogger()

	bs.SetLogger(newLogger)
	assert.Equal(t, newLogger, bs.Logger)
}

func TestRunGroup(t *testing.T) {
	t.Run("cancellation is a clean stop", func(t *testing.T) {
		a := newDummyService("a", nil)
		b := newDummyService("b", nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- RunGroup(ctx, a, b) }()

		require.Eventually(t, func() bool { return a.runCalled.Load() && b.runCalled.Load() }, time.Second, 5*time.Millisecond)
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("group did not stop")
		}
	})

	t.Run("first failure stops the others", func(t *testing.T) {
		boom := errors.New("boom")
		waiting := newDummyService("waiting", nil)
		failing := Func(func(context.Context) error { return boom })

		err := RunGroup(context.Background(), waiting, failing)
		require.ErrorIs(t, err, boom)
	})
}
