package account

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InitData is the launchpad's description of a Safe to be created. Its hash
// is committed to during deployment and re-checked when setupSafe runs.
type InitData struct {
	Singleton  common.Address   `abi:"singleton"`
	Owners     []common.Address `abi:"owners"`
	Threshold  *big.Int         `abi:"threshold"`
	SetupTo    common.Address   `abi:"setupTo"`
	SetupData  []byte           `abi:"setupData"`
	Safe7579   common.Address   `abi:"safe7579"`
	Validators []Module         `abi:"validators"`
	CallData   []byte           `abi:"callData"`
}

// NewInitData builds the init data for a single-owner account with the given
// validator. validators must hold exactly one module.
func NewInitData(cfg Config, owner common.Address, validators ...Module) (*InitData, error) {
	const op = "build init data"

	if owner == (common.Address{}) {
		return nil, preconditionError(op, "owner address is zero")
	}
	if len(validators) != 1 {
		return nil, preconditionError(op, "exactly one validator module is supported")
	}
	applyDefaults(&cfg)

	setupData, err := launchpadABI.Pack("initSafe7579",
		cfg.Adapter,
		[]Module{},
		[]Module{},
		[]Module{},
		Module{InitData: []byte{}},
		[]common.Address{},
		uint8(0),
	)
	if err != nil {
		return nil, encodingError(op, err)
	}

	// Bootstrap execution: an empty call to the zero address.
	callData, err := EncodeSingle(Call{To: common.Address{}})
	if err != nil {
		return nil, err
	}

	initValidators := make([]Module, 0, len(validators))
	for _, v := range validators {
		initValidators = append(initValidators, Module{Address: v.Address, InitData: nonNilBytes(v.InitData)})
	}

	return &InitData{
		Singleton:  cfg.Singleton,
		Owners:     []common.Address{owner},
		Threshold:  big.NewInt(1),
		SetupTo:    cfg.Launchpad,
		SetupData:  setupData,
		Safe7579:   cfg.Adapter,
		Validators: initValidators,
		CallData:   callData,
	}, nil
}

// Hash returns keccak256(abi.encode(InitData)).
func (d *InitData) Hash() (common.Hash, error) {
	encoded, err := initDataArgs.Pack(d)
	if err != nil {
		return common.Hash{}, encodingError("hash init data", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// SetupCallData returns launchpad.setupSafe(initData), the first call an
// undeployed account executes.
func (d *InitData) SetupCallData() ([]byte, error) {
	data, err := launchpadABI.Pack("setupSafe", d)
	if err != nil {
		return nil, encodingError("encode setup call", err)
	}
	return data, nil
}

// Salt derives the CREATE2 salt for an account index: keccak256 of the
// index's decimal representation.
func Salt(index uint64) common.Hash {
	return crypto.Keccak256Hash([]byte(strconv.FormatUint(index, 10)))
}

// FactoryInitializer returns launchpad.preValidationSetup(initHash, 0x0, "").
func FactoryInitializer(initHash common.Hash) ([]byte, error) {
	data, err := launchpadABI.Pack("preValidationSetup", initHash, common.Address{}, []byte{})
	if err != nil {
		return nil, encodingError("encode factory initializer", err)
	}
	return data, nil
}

// FactoryData returns the proxy factory call that deploys the account:
// createProxyWithNonce(launchpad, initializer, salt).
func FactoryData(cfg Config, owner common.Address) ([]byte, error) {
	applyDefaults(&cfg)

	initializer, err := factoryInitializerFor(cfg, owner)
	if err != nil {
		return nil, err
	}
	salt := Salt(cfg.Index)

	data, err := factoryABI.Pack("createProxyWithNonce", cfg.Launchpad, initializer, new(big.Int).SetBytes(salt[:]))
	if err != nil {
		return nil, encodingError("encode factory data", err)
	}
	return data, nil
}

func factoryInitializerFor(cfg Config, owner common.Address) ([]byte, error) {
	initData, err := NewInitData(cfg, owner, cfg.Validators...)
	if err != nil {
		return nil, err
	}
	initHash, err := initData.Hash()
	if err != nil {
		return nil, err
	}
	return FactoryInitializer(initHash)
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
