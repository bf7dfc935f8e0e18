package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is an owner key that can sign on behalf of a smart account.
// Implementations never expose the private key itself.
type Signer interface {
	// Address returns the Ethereum address of the signer
	Address() common.Address

	// SignMessage signs an arbitrary message (EIP-191 personal sign)
	SignMessage(message []byte) ([]byte, error)

	// SignTypedData signs EIP-712 typed data
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}
