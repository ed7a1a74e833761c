package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// VerifiedTxn is a transaction whose signature and balance checks were already
// performed by the verification collaborator. It is never mutated.
type VerifiedTxn struct {
	Sender         Address
	SequenceNumber uint64
	ChainID        uint64
	Hash           Hash
	Payload        []byte
	// GasLimit is the resource cost charged against a building block.
	GasLimit uint64
}

// NewVerifiedTxn builds a VerifiedTxn and derives its content hash.
func NewVerifiedTxn(sender Address, seq, chainID, gasLimit uint64, payload []byte) *VerifiedTxn {
	txn := &VerifiedTxn{
		Sender:         sender,
		SequenceNumber: seq,
		ChainID:        chainID,
		Payload:        payload,
		GasLimit:       gasLimit,
	}
	txn.Hash = txn.ComputeHash()
	return txn
}

// ComputeHash returns the SHA-256 digest over all fields except Hash itself.
func (t *VerifiedTxn) ComputeHash() Hash {
	hasher := sha256.New()
	hasher.Write(t.Sender[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], t.SequenceNumber)
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], t.ChainID)
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], t.GasLimit)
	hasher.Write(buf[:])
	hasher.Write(t.Payload)

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}
