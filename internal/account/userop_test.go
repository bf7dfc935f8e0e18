package account

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUserOperation() *UserOperation {
	factory := SafeProxyFactory
	return &UserOperation{
		Sender:               fixtureAccount,
		Nonce:                big.NewInt(3),
		Factory:              &factory,
		FactoryData:          []byte{0x01, 0x02},
		CallData:             []byte{0xca, 0xfe},
		CallGasLimit:         big.NewInt(100_000),
		VerificationGasLimit: big.NewInt(200_000),
		PreVerificationGas:   big.NewInt(50_000),
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		Signature:            DummySignature(),
	}
}

func TestUserOperation_Pack(t *testing.T) {
	t.Run("packs gas fields and init code", func(t *testing.T) {
		packed, err := testUserOperation().Pack()
		require.NoError(t, err)

		assert.Equal(t, append(SafeProxyFactory.Bytes(), 0x01, 0x02), packed.InitCode)
		assert.Equal(t, common.LeftPadBytes(big.NewInt(200_000).Bytes(), 16), packed.AccountGasLimits[:16])
		assert.Equal(t, common.LeftPadBytes(big.NewInt(100_000).Bytes(), 16), packed.AccountGasLimits[16:])
		assert.Equal(t, common.LeftPadBytes(big.NewInt(1_000_000_000).Bytes(), 16), packed.GasFees[:16])
		assert.Equal(t, common.LeftPadBytes(big.NewInt(2_000_000_000).Bytes(), 16), packed.GasFees[16:])
		assert.Empty(t, packed.PaymasterAndData)
	})

	t.Run("packs paymaster fields", func(t *testing.T) {
		op := testUserOperation()
		paymaster := common.HexToAddress("0x1111111111111111111111111111111111111111")
		op.Paymaster = &paymaster
		op.PaymasterVerificationGasLimit = big.NewInt(7)
		op.PaymasterPostOpGasLimit = big.NewInt(9)
		op.PaymasterData = []byte{0xee}

		packed, err := op.Pack()
		require.NoError(t, err)

		require.Len(t, packed.PaymasterAndData, 20+16+16+1)
		assert.Equal(t, paymaster.Bytes(), packed.PaymasterAndData[:20])
		assert.Equal(t, byte(7), packed.PaymasterAndData[35])
		assert.Equal(t, byte(9), packed.PaymasterAndData[51])
		assert.Equal(t, byte(0xee), packed.PaymasterAndData[52])
	})

	t.Run("no factory means empty init code", func(t *testing.T) {
		op := testUserOperation()
		op.Factory = nil

		packed, err := op.Pack()
		require.NoError(t, err)
		assert.Empty(t, packed.InitCode)
	})

	t.Run("rejects gas above 128 bits", func(t *testing.T) {
		op := testUserOperation()
		op.CallGasLimit = new(big.Int).Lsh(big.NewInt(1), 128)

		_, err := op.Pack()
		assert.ErrorIs(t, err, ErrEncoding)
	})
}

func TestUserOperation_Hash(t *testing.T) {
	chainID := big.NewInt(11155111)

	base, err := testUserOperation().Hash(EntryPointV07, chainID)
	require.NoError(t, err)

	t.Run("matches manual encoding", func(t *testing.T) {
		op := testUserOperation()
		packed, err := op.Pack()
		require.NoError(t, err)

		inner, err := userOpArgs.Pack(
			packed.Sender, packed.Nonce,
			crypto.Keccak256Hash(packed.InitCode), crypto.Keccak256Hash(packed.CallData),
			packed.AccountGasLimits, packed.PreVerificationGas, packed.GasFees,
			crypto.Keccak256Hash(packed.PaymasterAndData),
		)
		require.NoError(t, err)
		assert.Len(t, inner, 8*32)

		outer, err := userOpHashArgs.Pack(crypto.Keccak256Hash(inner), EntryPointV07, chainID)
		require.NoError(t, err)
		assert.Equal(t, crypto.Keccak256Hash(outer), base)
	})

	t.Run("signature is excluded", func(t *testing.T) {
		op := testUserOperation()
		op.Signature = []byte{0x01}
		h, err := op.Hash(EntryPointV07, chainID)
		require.NoError(t, err)
		assert.Equal(t, base, h)
	})

	t.Run("scoped to chain and entry point", func(t *testing.T) {
		h1, err := testUserOperation().Hash(EntryPointV07, big.NewInt(1))
		require.NoError(t, err)
		h2, err := testUserOperation().Hash(common.HexToAddress("0x1111111111111111111111111111111111111111"), chainID)
		require.NoError(t, err)

		assert.NotEqual(t, base, h1)
		assert.NotEqual(t, base, h2)
	})

	t.Run("covers call data", func(t *testing.T) {
		op := testUserOperation()
		op.CallData = []byte{0xbe, 0xef}
		h, err := op.Hash(EntryPointV07, chainID)
		require.NoError(t, err)
		assert.NotEqual(t, base, h)
	})
}

func TestUserOperation_JSON(t *testing.T) {
	op := testUserOperation()

	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "0x3", fields["nonce"])
	assert.Equal(t, "0x186a0", fields["callGasLimit"])
	assert.Equal(t, "0xcafe", fields["callData"])
	assert.NotContains(t, fields, "paymaster")
	assert.NotContains(t, fields, "paymasterVerificationGasLimit")

	var decoded UserOperation
	require.NoError(t, json.Unmarshal(raw, &decoded))

	h1, err := op.Hash(EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	h2, err := decoded.Hash(EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, op.Signature, decoded.Signature)
	require.NotNil(t, decoded.Factory)
	assert.Equal(t, *op.Factory, *decoded.Factory)
}
