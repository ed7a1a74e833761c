package block

import "github.com/rollkit/bridge/types"

// Status is the lifecycle stage of a block. A block only ever moves forward:
// Ordered, then Computed, then Committed.
type Status int

const (
	// StatusOrdered means consensus ordered the block and it awaits execution.
	StatusOrdered Status = iota + 1
	// StatusComputed means the execution result was recorded.
	StatusComputed
	// StatusCommitted means the block was durably committed.
	StatusCommitted
)

func (s Status) String() string {
	switch s {
	case StatusOrdered:
		return "ordered"
	case StatusComputed:
		return "computed"
	case StatusCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// BlockState is a snapshot of a block's lifecycle entry.
// Block is nil for blocks seeded through Init; Result is set from Computed on.
type BlockState struct {
	Status Status
	Block  *types.Block
	Result *types.ExecutionResult
}

// OrderedBlock is a block awaiting execution together with its parent id.
type OrderedBlock struct {
	ParentID types.Hash
	Block    *types.Block
}

type entry struct {
	state    BlockState
	number   uint64
	parentID types.Hash
	// computed is closed once the block leaves StatusOrdered.
	computed chan struct{}
}

func newEntry(number uint64, parentID types.Hash, state BlockState) *entry {
	e := &entry{
		state:    state,
		number:   number,
		parentID: parentID,
		computed: make(chan struct{}),
	}
	if state.Status != StatusOrdered {
		close(e.computed)
	}
	return e
}
