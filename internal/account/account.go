// Package account implements a Safe smart account extended with the ERC-7579
// adapter, created through the Safe7579 launchpad and operated through the
// ERC-4337 v0.7 entry point. The account never holds key material: it borrows
// an owner Signer for every signature and a ChainReader for every read.
package account

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Signer is the owner key capability.
type Signer interface {
	// Address returns the owner's EOA address
	Address() common.Address

	// SignMessage signs message with the EIP-191 personal-sign prefix
	SignMessage(message []byte) ([]byte, error)

	// SignTypedData signs EIP-712 typed data
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

// ChainReader is the read-only chain connection capability. Implementations
// bound their own calls in time; the account does not retry.
type ChainReader interface {
	ReadContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	IsContractDeployed(ctx context.Context, address common.Address) (bool, error)
}

// SmartAccount is one (owner, validator, chain) account.
type SmartAccount struct {
	cfg     Config
	owner   Signer
	reader  ChainReader
	logger  zerolog.Logger
	address common.Address
	chainID *big.Int

	// deployed only ever moves from false to true. A false value is never
	// trusted and is re-checked against the chain.
	deployed atomic.Bool
}

// New validates cfg, resolves the account address and chain id, and returns
// the account. The address is predicted unless cfg.Address is set.
func New(ctx context.Context, cfg Config, owner Signer, reader ChainReader, logger zerolog.Logger) (*SmartAccount, error) {
	const op = "new account"

	if owner == nil {
		return nil, preconditionError(op, "owner signer is required")
	}
	if reader == nil {
		return nil, preconditionError(op, "chain reader is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ownerAddress := owner.Address()
	if ownerAddress == (common.Address{}) {
		return nil, preconditionError(op, "owner address is zero")
	}

	var (
		address common.Address
		chainID *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if cfg.Address != nil {
			address = *cfg.Address
			return nil
		}
		predicted, err := PredictAddress(gctx, reader, cfg, ownerAddress)
		if err != nil {
			return err
		}
		address = predicted
		return nil
	})
	g.Go(func() error {
		id, err := reader.ChainID(gctx)
		if err != nil {
			return chainQueryError("get chain id", err)
		}
		chainID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger = logger.With().
		Str("component", "account").
		Str("address", address.Hex()).
		Str("chain_id", chainID.String()).
		Logger()
	logger.Debug().
		Str("owner", ownerAddress.Hex()).
		Str("validator", cfg.Validator().Address.Hex()).
		Uint64("index", cfg.Index).
		Msg("smart account resolved")

	return &SmartAccount{
		cfg:     cfg,
		owner:   owner,
		reader:  reader,
		logger:  logger,
		address: address,
		chainID: chainID,
	}, nil
}

// Address returns the account address.
func (a *SmartAccount) Address() common.Address {
	return a.address
}

// ChainID returns the chain the account was resolved on.
func (a *SmartAccount) ChainID() *big.Int {
	return new(big.Int).Set(a.chainID)
}

// EntryPoint returns the entry point the account operates through.
func (a *SmartAccount) EntryPoint() common.Address {
	return a.cfg.EntryPoint
}

// Validator returns the validator module installed at creation.
func (a *SmartAccount) Validator() Module {
	return a.cfg.Validator()
}

// Owner returns the owner EOA address.
func (a *SmartAccount) Owner() common.Address {
	return a.owner.Address()
}

// EncodeCallData encodes calls into the account's call data. An account that
// is not deployed yet cannot run execute, so its first call data is always
// the launchpad setupSafe call regardless of calls.
func (a *SmartAccount) EncodeCallData(ctx context.Context, calls ...Call) ([]byte, error) {
	if len(calls) == 0 {
		return nil, preconditionError("encode call data", "no calls to encode")
	}

	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	if !deployed {
		a.logger.Debug().Int("calls", len(calls)).Msg("account not deployed, encoding setup call")
		initData, err := NewInitData(a.cfg, a.owner.Address(), a.cfg.Validators...)
		if err != nil {
			return nil, err
		}
		return initData.SetupCallData()
	}
	return encodeCalls(calls)
}

// EncodeDeployCallData is not supported: deployment happens through the
// factory fields of a user operation.
func (a *SmartAccount) EncodeDeployCallData() ([]byte, error) {
	return nil, unsupportedError("encode deploy call data")
}

// SignUserOperation signs the v0.7 hash of op and returns the raw owner
// signature. The entry point routes it to the validator through the nonce
// key, so it is not packed with the validator address.
func (a *SmartAccount) SignUserOperation(op *UserOperation) ([]byte, error) {
	if op == nil {
		return nil, preconditionError("sign user operation", "user operation is nil")
	}
	unsigned := *op
	unsigned.Signature = nil

	hash, err := unsigned.Hash(a.cfg.EntryPoint, a.chainID)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("user_op_hash", hash.Hex()).Msg("signing user operation")

	return a.owner.SignMessage(hash.Bytes())
}

// SignMessage signs message with the owner key and packs the normalized
// signature with the validator address.
func (a *SmartAccount) SignMessage(message []byte) ([]byte, error) {
	sig, err := a.owner.SignMessage(message)
	if err != nil {
		return nil, err
	}
	return a.packSignature(sig)
}

// SignTypedData signs EIP-712 typed data with the owner key and packs the
// normalized signature with the validator address.
func (a *SmartAccount) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	sig, err := a.owner.SignTypedData(typedData)
	if err != nil {
		return nil, err
	}
	return a.packSignature(sig)
}

// SignTransaction always fails: the account executes through user
// operations only.
func (a *SmartAccount) SignTransaction(*types.Transaction) (*types.Transaction, error) {
	return nil, unsupportedError("sign transaction")
}

// GetDummySignature returns a placeholder signature for gas estimation.
func (a *SmartAccount) GetDummySignature() []byte {
	return DummySignature()
}

func (a *SmartAccount) packSignature(sig []byte) ([]byte, error) {
	normalized, err := NormalizeSignature(sig)
	if err != nil {
		return nil, err
	}
	return PackValidatorSignature(normalized, a.cfg.Validator().Address)
}
