package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// IsDeployed reports whether the account has code on chain. A true result is
// cached for the lifetime of the account; false is re-checked on every call
// because deployment can land between calls. Read failures are returned, not
// treated as "not deployed".
func (a *SmartAccount) IsDeployed(ctx context.Context) (bool, error) {
	if a.deployed.Load() {
		return true, nil
	}

	deployed, err := a.reader.IsContractDeployed(ctx, a.address)
	if err != nil {
		return false, chainQueryError("check deployment", err)
	}
	if deployed && a.deployed.CompareAndSwap(false, true) {
		a.logger.Debug().Msg("account deployed")
	}
	return a.deployed.Load(), nil
}

// GetFactory returns the factory address and true while the account is not
// deployed. Once deployed it returns false: no factory call is needed.
func (a *SmartAccount) GetFactory(ctx context.Context) (common.Address, bool, error) {
	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return common.Address{}, false, err
	}
	if deployed {
		return common.Address{}, false, nil
	}
	return a.cfg.Factory, true, nil
}

// GetFactoryData returns the factory call data while the account is not
// deployed, nil afterwards.
func (a *SmartAccount) GetFactoryData(ctx context.Context) ([]byte, error) {
	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	if deployed {
		return nil, nil
	}
	return FactoryData(a.cfg, a.owner.Address())
}

// GetInitCode returns factory ‖ factoryData while the account is not
// deployed, and empty bytes afterwards.
func (a *SmartAccount) GetInitCode(ctx context.Context) ([]byte, error) {
	factoryData, err := a.GetFactoryData(ctx)
	if err != nil {
		return nil, err
	}
	if factoryData == nil {
		return []byte{}, nil
	}
	return append(a.cfg.Factory.Bytes(), factoryData...), nil
}
