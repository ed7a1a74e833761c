package types

import (
	"crypto/rand"
	"time"
)

// GetRandomBytes returns a byte slice of random bytes of length n.
func GetRandomBytes(n uint) []byte {
	data := make([]byte, n)
	_, _ = rand.Read(data)
	return data
}

// GetRandomHash returns a random hash.
func GetRandomHash() Hash {
	var h Hash
	_, _ = rand.Read(h[:])
	return h
}

// GetRandomAddress returns a random account address.
func GetRandomAddress() Address {
	var a Address
	_, _ = rand.Read(a[:])
	return a
}

// AddressFromByte returns an address whose last byte is b. Useful for tests that
// depend on lexicographic account order.
func AddressFromByte(b byte) Address {
	var a Address
	a[AddressSize-1] = b
	return a
}

// GetRandomTxn returns a verified transaction for sender at seq with the given gas limit.
func GetRandomTxn(sender Address, seq, gasLimit uint64) *VerifiedTxn {
	return NewVerifiedTxn(sender, seq, 1, gasLimit, GetRandomBytes(16))
}

// GetRandomBlock returns a block at number carrying ntxs transactions from random senders.
func GetRandomBlock(parentID Hash, number uint64, ntxs int) *Block {
	txns := make([]*VerifiedTxn, ntxs)
	for i := range txns {
		txns[i] = GetRandomTxn(GetRandomAddress(), 0, 21000)
	}
	return NewBlock(parentID, number, uint64(time.Now().UnixMicro()), nil, txns)
}

// GetRandomLedgerInfo returns a signed ledger info committing block.
func GetRandomLedgerInfo(block *Block, epoch, round uint64, endsEpoch bool) *LedgerInfoWithSignatures {
	li := &LedgerInfoWithSignatures{
		LedgerInfo: LedgerInfo{
			Epoch:       epoch,
			Round:       round,
			BlockID:     block.ID(),
			BlockNumber: block.Number(),
			EndsEpoch:   endsEpoch,
		},
		Signatures: GetRandomBytes(96),
	}
	if endsEpoch {
		next := GetRandomHash()
		li.LedgerInfo.NextEpochState = &next
	}
	return li
}
