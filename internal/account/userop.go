package account

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is an ERC-4337 v0.7 user operation in its unpacked RPC form.
// It is assembled by the caller; the account only hashes and signs it.
type UserOperation struct {
	Sender                        common.Address
	Nonce                         *big.Int
	Factory                       *common.Address
	FactoryData                   []byte
	CallData                      []byte
	CallGasLimit                  *big.Int
	VerificationGasLimit          *big.Int
	PreVerificationGas            *big.Int
	MaxFeePerGas                  *big.Int
	MaxPriorityFeePerGas          *big.Int
	Paymaster                     *common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte
	Signature                     []byte
}

// PackedUserOperation is the on-chain layout the v0.7 entry point consumes.
type PackedUserOperation struct {
	Sender             common.Address
	Nonce              *big.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   [32]byte
	PreVerificationGas *big.Int
	GasFees            [32]byte
	PaymasterAndData   []byte
	Signature          []byte
}

var errUint128Overflow = errors.New("value does not fit in 128 bits")

var (
	userOpArgs = abi.Arguments{
		{Type: mustNewType("address", nil)}, // sender
		{Type: mustNewType("uint256", nil)}, // nonce
		{Type: mustNewType("bytes32", nil)}, // keccak(initCode)
		{Type: mustNewType("bytes32", nil)}, // keccak(callData)
		{Type: mustNewType("bytes32", nil)}, // accountGasLimits
		{Type: mustNewType("uint256", nil)}, // preVerificationGas
		{Type: mustNewType("bytes32", nil)}, // gasFees
		{Type: mustNewType("bytes32", nil)}, // keccak(paymasterAndData)
	}
	userOpHashArgs = abi.Arguments{
		{Type: mustNewType("bytes32", nil)}, // keccak(packed userOp)
		{Type: mustNewType("address", nil)}, // entry point
		{Type: mustNewType("uint256", nil)}, // chain id
	}
)

// Pack converts the operation to the entry point's packed layout.
func (op *UserOperation) Pack() (*PackedUserOperation, error) {
	const opName = "pack user operation"

	accountGasLimits, err := packUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
	if err != nil {
		return nil, encodingError(opName, err)
	}
	gasFees, err := packUint128Pair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
	if err != nil {
		return nil, encodingError(opName, err)
	}

	var initCode []byte
	if op.Factory != nil {
		initCode = append(op.Factory.Bytes(), op.FactoryData...)
	}

	var paymasterAndData []byte
	if op.Paymaster != nil {
		verification, err := uint128Bytes(op.PaymasterVerificationGasLimit)
		if err != nil {
			return nil, encodingError(opName, err)
		}
		postOp, err := uint128Bytes(op.PaymasterPostOpGasLimit)
		if err != nil {
			return nil, encodingError(opName, err)
		}
		paymasterAndData = append(paymasterAndData, op.Paymaster.Bytes()...)
		paymasterAndData = append(paymasterAndData, verification...)
		paymasterAndData = append(paymasterAndData, postOp...)
		paymasterAndData = append(paymasterAndData, op.PaymasterData...)
	}

	return &PackedUserOperation{
		Sender:             op.Sender,
		Nonce:              valueOrZero(op.Nonce),
		InitCode:           initCode,
		CallData:           op.CallData,
		AccountGasLimits:   accountGasLimits,
		PreVerificationGas: valueOrZero(op.PreVerificationGas),
		GasFees:            gasFees,
		PaymasterAndData:   paymasterAndData,
		Signature:          op.Signature,
	}, nil
}

// Hash returns the v0.7 user operation hash:
// keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainID)).
// The signature field does not take part in the hash.
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := op.Pack()
	if err != nil {
		return common.Hash{}, err
	}

	encoded, err := userOpArgs.Pack(
		packed.Sender,
		packed.Nonce,
		crypto.Keccak256Hash(packed.InitCode),
		crypto.Keccak256Hash(packed.CallData),
		packed.AccountGasLimits,
		packed.PreVerificationGas,
		packed.GasFees,
		crypto.Keccak256Hash(packed.PaymasterAndData),
	)
	if err != nil {
		return common.Hash{}, encodingError("hash user operation", err)
	}

	outer, err := userOpHashArgs.Pack(crypto.Keccak256Hash(encoded), entryPoint, valueOrZero(chainID))
	if err != nil {
		return common.Hash{}, encodingError("hash user operation", err)
	}
	return crypto.Keccak256Hash(outer), nil
}

func packUint128Pair(high, low *big.Int) ([32]byte, error) {
	var out [32]byte
	highBytes, err := uint128Bytes(high)
	if err != nil {
		return out, err
	}
	lowBytes, err := uint128Bytes(low)
	if err != nil {
		return out, err
	}
	copy(out[:16], highBytes)
	copy(out[16:], lowBytes)
	return out, nil
}

func uint128Bytes(v *big.Int) ([]byte, error) {
	v = valueOrZero(v)
	if v.Sign() < 0 || v.BitLen() > 128 {
		return nil, errUint128Overflow
	}
	return common.LeftPadBytes(v.Bytes(), 16), nil
}

type userOperationJSON struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       *common.Address `json:"factory,omitempty"`
	FactoryData                   hexutil.Bytes   `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
}

// MarshalJSON encodes the operation in the bundler RPC form (0x-hex quantities).
func (op UserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(userOperationJSON{
		Sender:                        op.Sender,
		Nonce:                         toHexBig(op.Nonce),
		Factory:                       op.Factory,
		FactoryData:                   op.FactoryData,
		CallData:                      nonNilBytes(op.CallData),
		CallGasLimit:                  toHexBig(op.CallGasLimit),
		VerificationGasLimit:          toHexBig(op.VerificationGasLimit),
		PreVerificationGas:            toHexBig(op.PreVerificationGas),
		MaxFeePerGas:                  toHexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          toHexBig(op.MaxPriorityFeePerGas),
		Paymaster:                     op.Paymaster,
		PaymasterVerificationGasLimit: (*hexutil.Big)(op.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       (*hexutil.Big)(op.PaymasterPostOpGasLimit),
		PaymasterData:                 op.PaymasterData,
		Signature:                     nonNilBytes(op.Signature),
	})
}

// UnmarshalJSON decodes the bundler RPC form.
func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var dec userOperationJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	*op = UserOperation{
		Sender:                        dec.Sender,
		Nonce:                         (*big.Int)(dec.Nonce),
		Factory:                       dec.Factory,
		FactoryData:                   dec.FactoryData,
		CallData:                      dec.CallData,
		CallGasLimit:                  (*big.Int)(dec.CallGasLimit),
		VerificationGasLimit:          (*big.Int)(dec.VerificationGasLimit),
		PreVerificationGas:            (*big.Int)(dec.PreVerificationGas),
		MaxFeePerGas:                  (*big.Int)(dec.MaxFeePerGas),
		MaxPriorityFeePerGas:          (*big.Int)(dec.MaxPriorityFeePerGas),
		Paymaster:                     dec.Paymaster,
		PaymasterVerificationGasLimit: (*big.Int)(dec.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       (*big.Int)(dec.PaymasterPostOpGasLimit),
		PaymasterData:                 dec.PaymasterData,
		Signature:                     dec.Signature,
	}
	return nil
}

func toHexBig(v *big.Int) *hexutil.Big {
	return (*hexutil.Big)(valueOrZero(v))
}
