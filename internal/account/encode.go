package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// ERC-7579 execution modes. The first byte is the call type; the remaining
// bytes (exec type, selector, payload) stay zero for default execution.
var (
	ModeSingle = [32]byte{0x00}
	ModeBatch  = [32]byte{0x01}
)

// Call is one execution requested from the account.
type Call struct {
	To    common.Address
	Value *big.Int // nil means zero
	Data  []byte
}

type execution struct {
	Target   common.Address `abi:"target"`
	Value    *big.Int       `abi:"value"`
	CallData []byte         `abi:"callData"`
}

// EncodeExecute returns execute(mode, executionCalldata).
func EncodeExecute(mode [32]byte, executionCalldata []byte) ([]byte, error) {
	data, err := accountABI.Pack("execute", mode, nonNilBytes(executionCalldata))
	if err != nil {
		return nil, encodingError("encode execute", err)
	}
	return data, nil
}

// EncodeSingle encodes one call as execute(SINGLE, to ‖ value ‖ data).
func EncodeSingle(call Call) ([]byte, error) {
	value := valueOrZero(call.Value)
	if value.Sign() < 0 || value.BitLen() > 256 {
		return nil, encodingError("encode single call", errValueOutOfRange)
	}

	packed := make([]byte, 0, common.AddressLength+32+len(call.Data))
	packed = append(packed, call.To.Bytes()...)
	packed = append(packed, common.LeftPadBytes(value.Bytes(), 32)...)
	packed = append(packed, call.Data...)

	return EncodeExecute(ModeSingle, packed)
}

// EncodeBatch encodes calls as execute(BATCH, abi.encode(Execution[])).
func EncodeBatch(calls []Call) ([]byte, error) {
	if len(calls) == 0 {
		return nil, preconditionError("encode batch", "no calls to encode")
	}

	executions := lo.Map(calls, func(c Call, _ int) execution {
		return execution{Target: c.To, Value: valueOrZero(c.Value), CallData: nonNilBytes(c.Data)}
	})

	encoded, err := executionBatchArgs.Pack(executions)
	if err != nil {
		return nil, encodingError("encode batch", err)
	}
	return EncodeExecute(ModeBatch, encoded)
}

// encodeCalls picks the single or batch encoding for a deployed account.
func encodeCalls(calls []Call) ([]byte, error) {
	switch len(calls) {
	case 0:
		return nil, preconditionError("encode call data", "no calls to encode")
	case 1:
		return EncodeSingle(calls[0])
	default:
		return EncodeBatch(calls)
	}
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
