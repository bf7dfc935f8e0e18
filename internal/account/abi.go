package account

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract interfaces the account talks to. Only the members used here.
const (
	launchpadABIJSON = `[
	{"type":"function","name":"initSafe7579","stateMutability":"nonpayable","inputs":[
		{"name":"safe7579","type":"address"},
		{"name":"executors","type":"tuple[]","components":[{"name":"module","type":"address"},{"name":"initData","type":"bytes"}]},
		{"name":"fallbacks","type":"tuple[]","components":[{"name":"module","type":"address"},{"name":"initData","type":"bytes"}]},
		{"name":"hooks","type":"tuple[]","components":[{"name":"module","type":"address"},{"name":"initData","type":"bytes"}]},
		{"name":"globalHook","type":"tuple","components":[{"name":"module","type":"address"},{"name":"initData","type":"bytes"}]},
		{"name":"attesters","type":"address[]"},
		{"name":"threshold","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"preValidationSetup","stateMutability":"nonpayable","inputs":[
		{"name":"initHash","type":"bytes32"},
		{"name":"to","type":"address"},
		{"name":"preInit","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"predictSafeAddress","stateMutability":"pure","inputs":[
		{"name":"singleton","type":"address"},
		{"name":"safeProxyFactory","type":"address"},
		{"name":"creationCode","type":"bytes"},
		{"name":"salt","type":"bytes32"},
		{"name":"factoryInitializer","type":"bytes"}],"outputs":[{"name":"safeProxy","type":"address"}]},
	{"type":"function","name":"setupSafe","stateMutability":"nonpayable","inputs":[
		{"name":"initData","type":"tuple","components":[
			{"name":"singleton","type":"address"},
			{"name":"owners","type":"address[]"},
			{"name":"threshold","type":"uint256"},
			{"name":"setupTo","type":"address"},
			{"name":"setupData","type":"bytes"},
			{"name":"safe7579","type":"address"},
			{"name":"validators","type":"tuple[]","components":[{"name":"module","type":"address"},{"name":"initData","type":"bytes"}]},
			{"name":"callData","type":"bytes"}]}],"outputs":[]}
]`

	factoryABIJSON = `[
	{"type":"function","name":"createProxyWithNonce","stateMutability":"nonpayable","inputs":[
		{"name":"_singleton","type":"address"},
		{"name":"initializer","type":"bytes"},
		{"name":"saltNonce","type":"uint256"}],"outputs":[{"name":"proxy","type":"address"}]},
	{"type":"function","name":"proxyCreationCode","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"bytes"}]}
]`

	accountABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"payable","inputs":[
		{"name":"mode","type":"bytes32"},
		{"name":"executionCalldata","type":"bytes"}],"outputs":[]}
]`

	entryPointABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view","inputs":[
		{"name":"sender","type":"address"},
		{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`
)

var (
	launchpadABI  = mustParseABI(launchpadABIJSON)
	factoryABI    = mustParseABI(factoryABIJSON)
	accountABI    = mustParseABI(accountABIJSON)
	entryPointABI = mustParseABI(entryPointABIJSON)

	initDataArgs = abi.Arguments{{Type: launchpadABI.Methods["setupSafe"].Inputs[0].Type}}

	executionBatchArgs = abi.Arguments{{Type: mustNewType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "callData", Type: "bytes"},
	})}}

	validatorSignatureArgs = abi.Arguments{
		{Type: mustNewType("bytes", nil)},
		{Type: mustNewType("address", nil)},
	}
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}
