package account

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// nonceKeyLength is the width of the entry point's uint192 nonce key.
const nonceKeyLength = 24

// NonceKey returns the validator address right-padded to 24 bytes, read as a
// uint192. Each validator gets its own nonce sequence on the same account and
// the account uses the key to pick the validator for a user operation.
func NonceKey(validator common.Address) *big.Int {
	return new(big.Int).SetBytes(common.RightPadBytes(validator.Bytes(), nonceKeyLength))
}

// GetNonce reads the account's next nonce under the validator's nonce key.
func (a *SmartAccount) GetNonce(ctx context.Context) (*big.Int, error) {
	nonce, err := readContract[*big.Int](ctx, a.reader, a.cfg.EntryPoint, entryPointABI, "getNonce",
		a.address,
		NonceKey(a.cfg.Validator().Address),
	)
	if err != nil {
		return nil, chainQueryError("get nonce", err)
	}
	return nonce, nil
}
