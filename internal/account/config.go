package account

import (
	"github.com/ethereum/go-ethereum/common"
)

// Well-known deployments, identical on every chain where they exist.
var (
	EntryPointV07     = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	SafeSingletonL2   = common.HexToAddress("0x29fcB43b46531BcA003ddC8FCB67FFE91900C762")
	SafeProxyFactory  = common.HexToAddress("0x4e1DCf7AD4e460CfD30791CCC4F9c8a4f820ec67")
	Safe7579Adapter   = common.HexToAddress("0x7579EE8307284F293B1927136486880611F20002")
	Safe7579Launchpad = common.HexToAddress("0x7579011aB74c46090561ea277Ba79D510c6C00ff")
	OwnableValidator  = common.HexToAddress("0x2483DA3A338895199E5e538530213157e931Bf06")
)

// Module is a validator module installed at account creation.
type Module struct {
	Address  common.Address `abi:"module"`
	InitData []byte         `abi:"initData"`
}

// Config describes one smart account. Zero-valued addresses are replaced by
// the well-known deployments above; Validators defaults to the ownable
// validator with empty init data.
type Config struct {
	EntryPoint common.Address
	Factory    common.Address // Safe proxy factory
	Launchpad  common.Address // Safe7579 launchpad, also the setup target
	Singleton  common.Address // Safe singleton (master copy)
	Adapter    common.Address // Safe7579 adapter installed as module and fallback

	// Validators must hold exactly one module.
	Validators []Module

	// Index selects one of many accounts for the same owner.
	Index uint64

	// Address, when set, is trusted as the account address and skips
	// prediction. Used for accounts whose address is already known.
	Address *common.Address
}

// Validator returns the single configured validator module.
func (c Config) Validator() Module {
	if len(c.Validators) == 0 {
		return Module{Address: OwnableValidator}
	}
	return c.Validators[0]
}

func applyDefaults(cfg *Config) {
	if cfg.EntryPoint == (common.Address{}) {
		cfg.EntryPoint = EntryPointV07
	}
	if cfg.Factory == (common.Address{}) {
		cfg.Factory = SafeProxyFactory
	}
	if cfg.Launchpad == (common.Address{}) {
		cfg.Launchpad = Safe7579Launchpad
	}
	if cfg.Singleton == (common.Address{}) {
		cfg.Singleton = SafeSingletonL2
	}
	if cfg.Adapter == (common.Address{}) {
		cfg.Adapter = Safe7579Adapter
	}
	if len(cfg.Validators) == 0 {
		cfg.Validators = []Module{{Address: OwnableValidator}}
	}
}

// Validate applies defaults in place and rejects configurations the account
// cannot be built from.
func (c *Config) Validate() error {
	applyDefaults(c)

	if len(c.Validators) != 1 {
		return preconditionError("validate config", "exactly one validator module is supported")
	}
	if c.Validators[0].Address == (common.Address{}) {
		return preconditionError("validate config", "validator module address is zero")
	}
	if c.Address != nil && *c.Address == (common.Address{}) {
		return preconditionError("validate config", "known account address is zero")
	}
	return nil
}
