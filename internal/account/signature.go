package account

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// dummySignature is a well-formed 65-byte ECDSA signature used by bundlers
// for gas estimation before the real signature exists.
var dummySignature = hexutil.MustDecode("0xe8b94748580ca0b4993c9a1b86b5be851bfc076ff5ce3a1ff65bf16392acfcb800f9b4f1aef1555c7fce5599fffb17e7c635502154a0333ba21f3ae491839af51c")

// NormalizeSignature returns a copy of sig whose trailing recovery byte is in
// the {27, 28} convention. Signatures already in that convention are returned
// unchanged.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, encodingError("normalize signature", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig)))
	}
	out := make([]byte, len(sig))
	copy(out, sig)

	v := out[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		out[crypto.RecoveryIDOffset] = v + 27
	}
	return out, nil
}

// PackValidatorSignature returns abi.encode(bytes signature, address validator),
// the layout the account's ERC-1271 path unpacks to route to a validator.
func PackValidatorSignature(sig []byte, validator common.Address) ([]byte, error) {
	packed, err := validatorSignatureArgs.Pack(nonNilBytes(sig), validator)
	if err != nil {
		return nil, encodingError("pack validator signature", err)
	}
	return packed, nil
}

// UnpackValidatorSignature splits a payload built by PackValidatorSignature.
func UnpackValidatorSignature(payload []byte) ([]byte, common.Address, error) {
	const op = "unpack validator signature"

	values, err := validatorSignatureArgs.Unpack(payload)
	if err != nil {
		return nil, common.Address{}, encodingError(op, err)
	}
	if len(values) != 2 {
		return nil, common.Address{}, encodingError(op, fmt.Errorf("expected 2 values, got %d", len(values)))
	}
	sig, ok := values[0].([]byte)
	if !ok {
		return nil, common.Address{}, encodingError(op, fmt.Errorf("unexpected signature type %T", values[0]))
	}
	validator, ok := values[1].(common.Address)
	if !ok {
		return nil, common.Address{}, encodingError(op, fmt.Errorf("unexpected validator type %T", values[1]))
	}
	return sig, validator, nil
}

// DummySignature returns a copy of the placeholder signature used for gas
// estimation.
func DummySignature() []byte {
	return common.CopyBytes(dummySignature)
}
