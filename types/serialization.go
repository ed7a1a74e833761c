package types

import (
	"github.com/fxamacker/cbor/v2"
)

// Each method encodes through a local plain type so that cbor does not call
// back into MarshalBinary/UnmarshalBinary.

// MarshalBinary encodes Block into binary form and returns it.
func (b *Block) MarshalBinary() ([]byte, error) {
	type plain Block
	return cbor.Marshal((*plain)(b))
}

// UnmarshalBinary decodes binary form of Block into object.
func (b *Block) UnmarshalBinary(data []byte) error {
	type plain Block
	return cbor.Unmarshal(data, (*plain)(b))
}

// MarshalBinary encodes ExecutionResult into binary form and returns it.
func (r *ExecutionResult) MarshalBinary() ([]byte, error) {
	type plain ExecutionResult
	return cbor.Marshal((*plain)(r))
}

// UnmarshalBinary decodes binary form of ExecutionResult into object.
func (r *ExecutionResult) UnmarshalBinary(data []byte) error {
	type plain ExecutionResult
	return cbor.Unmarshal(data, (*plain)(r))
}

// MarshalBinary encodes LedgerInfoWithSignatures into binary form and returns it.
func (li *LedgerInfoWithSignatures) MarshalBinary() ([]byte, error) {
	type plain LedgerInfoWithSignatures
	return cbor.Marshal((*plain)(li))
}

// UnmarshalBinary decodes binary form of LedgerInfoWithSignatures into object.
func (li *LedgerInfoWithSignatures) UnmarshalBinary(data []byte) error {
	type plain LedgerInfoWithSignatures
	return cbor.Unmarshal(data, (*plain)(li))
}

// MarshalBinary encodes EpochChangeProof into binary form and returns it.
func (p *EpochChangeProof) MarshalBinary() ([]byte, error) {
	type plain EpochChangeProof
	return cbor.Marshal((*plain)(p))
}

// UnmarshalBinary decodes binary form of EpochChangeProof into object.
func (p *EpochChangeProof) UnmarshalBinary(data []byte) error {
	type plain EpochChangeProof
	return cbor.Unmarshal(data, (*plain)(p))
}
