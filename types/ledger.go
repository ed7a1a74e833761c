package types

// LedgerInfo is the part of a commit certificate that validators sign.
type LedgerInfo struct {
	Epoch       uint64
	Round       uint64
	BlockID     Hash
	BlockNumber uint64
	// EndsEpoch is set on the last ledger info of an epoch.
	EndsEpoch bool
	// NextEpochState is a digest of the next validator set, only set when EndsEpoch is true.
	NextEpochState *Hash
}

// LedgerInfoWithSignatures is a ledger info together with the aggregated quorum signature.
type LedgerInfoWithSignatures struct {
	LedgerInfo LedgerInfo
	Signatures []byte
}

// Round returns the consensus round of the certificate.
func (li *LedgerInfoWithSignatures) Round() uint64 {
	return li.LedgerInfo.Round
}

// EndsEpoch reports whether the certificate finalizes the last block of an epoch.
func (li *LedgerInfoWithSignatures) EndsEpoch() bool {
	return li.LedgerInfo.EndsEpoch
}

// EpochChangeProof is broadcast to peers when a committed certificate ends an epoch.
type EpochChangeProof struct {
	LedgerInfos []*LedgerInfoWithSignatures
	More        bool
}

// NewEpochChangeProof wraps the given certificates into a proof.
func NewEpochChangeProof(lis []*LedgerInfoWithSignatures, more bool) *EpochChangeProof {
	return &EpochChangeProof{LedgerInfos: lis, More: more}
}

// Epoch returns the epoch the proof transitions out of, or 0 when the proof is empty.
func (p *EpochChangeProof) Epoch() uint64 {
	if len(p.LedgerInfos) == 0 {
		return 0
	}
	return p.LedgerInfos[0].LedgerInfo.Epoch
}
