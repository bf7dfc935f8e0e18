package account

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PredictAddress returns the address the account for owner will have (or
// already has) once deployed through cfg.Factory. It reads the factory's
// proxy creation code and asks the launchpad to run the CREATE2 derivation,
// so the result always matches the contracts actually deployed on the chain.
func PredictAddress(ctx context.Context, reader ChainReader, cfg Config, owner common.Address) (common.Address, error) {
	const op = "predict address"

	if owner == (common.Address{}) {
		return common.Address{}, preconditionError(op, "owner address is zero")
	}
	applyDefaults(&cfg)

	initializer, err := factoryInitializerFor(cfg, owner)
	if err != nil {
		return common.Address{}, err
	}

	creationCode, err := readContract[[]byte](ctx, reader, cfg.Factory, factoryABI, "proxyCreationCode")
	if err != nil {
		return common.Address{}, chainQueryError(op, err)
	}

	predicted, err := readContract[common.Address](ctx, reader, cfg.Launchpad, launchpadABI, "predictSafeAddress",
		cfg.Launchpad,
		cfg.Factory,
		creationCode,
		Salt(cfg.Index),
		initializer,
	)
	if err != nil {
		return common.Address{}, chainQueryError(op, err)
	}
	if predicted == (common.Address{}) {
		return common.Address{}, chainQueryError(op, fmt.Errorf("launchpad %s returned the zero address", cfg.Launchpad.Hex()))
	}
	return predicted, nil
}

// readContract packs a call to method, executes it through reader and
// decodes the single return value as T.
func readContract[T any](ctx context.Context, reader ChainReader, to common.Address, contract abi.ABI, method string, args ...interface{}) (T, error) {
	var zero T

	input, err := contract.Pack(method, args...)
	if err != nil {
		return zero, fmt.Errorf("pack %s: %w", method, err)
	}

	output, err := reader.ReadContract(ctx, to, input)
	if err != nil {
		return zero, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}

	values, err := contract.Unpack(method, output)
	if err != nil {
		return zero, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return zero, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}

	value, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return value, nil
}
