package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// BlockMeta carries the identity of a block. Number is assigned by the proposer
// and strictly increases along the chain.
type BlockMeta struct {
	ID        Hash
	Number    uint64
	Timestamp uint64 // microseconds since epoch
	// Randomness is the optional randomness beacon value, nil when absent.
	Randomness []byte
	// ExecutionHash is set once the block has been executed, nil before.
	ExecutionHash *Hash
}

// Block is a BlockMeta plus its ordered transactions. A block is never mutated
// after construction.
type Block struct {
	Meta BlockMeta
	Txns []*VerifiedTxn
}

// NewBlock builds a block and derives its content id from the parent id, number,
// timestamp, randomness and the transaction hashes.
func NewBlock(parentID Hash, number, timestamp uint64, randomness []byte, txns []*VerifiedTxn) *Block {
	b := &Block{
		Meta: BlockMeta{
			Number:     number,
			Timestamp:  timestamp,
			Randomness: randomness,
		},
		Txns: txns,
	}
	b.Meta.ID = b.computeID(parentID)
	return b
}

func (b *Block) computeID(parentID Hash) Hash {
	hasher := sha256.New()
	hasher.Write(parentID[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], b.Meta.Number)
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], b.Meta.Timestamp)
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(len(b.Meta.Randomness)))
	hasher.Write(buf[:])
	hasher.Write(b.Meta.Randomness)

	binary.BigEndian.PutUint64(buf[:], uint64(len(b.Txns)))
	hasher.Write(buf[:])
	for _, txn := range b.Txns {
		hasher.Write(txn.Hash[:])
	}

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// ID returns the block id.
func (b *Block) ID() Hash {
	return b.Meta.ID
}

// Number returns the block number.
func (b *Block) Number() uint64 {
	return b.Meta.Number
}

// Ref returns the reference used to address this block in commit requests.
func (b *Block) Ref() BlockRef {
	return BlockRef{ID: b.Meta.ID, Number: b.Meta.Number}
}

// GasLimit returns the summed gas limit of all transactions in the block.
func (b *Block) GasLimit() uint64 {
	var total uint64
	for _, txn := range b.Txns {
		total += txn.GasLimit
	}
	return total
}

// BlockRef addresses a block by id and number.
type BlockRef struct {
	ID     Hash
	Number uint64
}

// TxnStatus is the per-transaction outcome reported by the execution engine.
type TxnStatus struct {
	Hash    Hash
	GasUsed uint64
	Success bool
}

// ExecutionResult is the output of executing a block. It is immutable once recorded.
type ExecutionResult struct {
	BlockID     Hash
	BlockNumber uint64
	StateRoot   Hash
	GasUsed     uint64
	TxnStatuses []TxnStatus
}
