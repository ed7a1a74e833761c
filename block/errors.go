package block

import (
	"errors"
	"fmt"

	"github.com/rollkit/bridge/types"
)

// These errors are used by BufferManager.
var (
	// ErrDuplicateBlock is returned when a block id already has a recorded state.
	ErrDuplicateBlock = errors.New("block already registered")

	// ErrUnknownBlock is returned for block ids that were never registered or were evicted.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrInvalidTransition is returned when a block is not in the state an operation requires.
	ErrInvalidTransition = errors.New("invalid block state transition")

	// ErrNotInitialized is returned by block-state operations called before Init.
	ErrNotInitialized = errors.New("buffer manager not initialized")

	// ErrNoResult is returned when a committed block no longer carries its execution result.
	ErrNoResult = errors.New("execution result not retained")
)

// TransitionError describes a rejected state transition.
type TransitionError struct {
	BlockID types.Hash
	From    Status
	To      Status
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("%v: block %s is %s, cannot move to %s", ErrInvalidTransition, e.BlockID, e.From, e.To)
}

func (e TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
