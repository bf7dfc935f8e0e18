package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/safe7579/internal/testutil"
)

func newTestKeySigner(t *testing.T) *KeystoreSigner {
	t.Helper()
	signer, err := NewKeySigner(testutil.OwnerKey(t))
	require.NoError(t, err)
	return signer
}

func mailTypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Mail": {
				{Name: "from", Type: "address"},
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:              "Ether Mail",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1),
			VerifyingContract: "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC",
		},
		Message: apitypes.TypedDataMessage{
			"from":     "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826",
			"contents": "Hello, Bob!",
		},
	}
}

func TestNewKeySigner(t *testing.T) {
	t.Run("derives address from key", func(t *testing.T) {
		signer := newTestKeySigner(t)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signer.Address().Hex())
	})

	t.Run("rejects nil key", func(t *testing.T) {
		_, err := NewKeySigner(nil)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestKeystoreSigner_SignMessage(t *testing.T) {
	t.Run("signs message with EIP-191 prefix", func(t *testing.T) {
		signer := newTestKeySigner(t)

		message := []byte("Hello, Ethereum!")
		sig, err := signer.SignMessage(message)
		require.NoError(t, err)
		require.Len(t, sig, 65) // r (32) + s (32) + v (1)

		// V should be 27 or 28 for EIP-191 compatibility
		assert.True(t, sig[64] == 27 || sig[64] == 28)

		recoverable := append([]byte{}, sig...)
		recoverable[64] -= 27
		pub, err := crypto.SigToPub(accounts.TextHash(message), recoverable)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
	})

	t.Run("signs empty message", func(t *testing.T) {
		signer := newTestKeySigner(t)

		sig, err := signer.SignMessage([]byte{})
		require.NoError(t, err)
		require.Len(t, sig, 65)
	})

	t.Run("returns error when locked", func(t *testing.T) {
		signer := newTestKeySigner(t)
		signer.Lock()

		_, err := signer.SignMessage([]byte("test"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAccountLocked)
	})
}

func TestKeystoreSigner_SignTypedData(t *testing.T) {
	t.Run("signs EIP-712 hash", func(t *testing.T) {
		signer := newTestKeySigner(t)
		typedData := mailTypedData()

		sig, err := signer.SignTypedData(typedData)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.True(t, sig[64] == 27 || sig[64] == 28)

		hash, _, err := apitypes.TypedDataAndHash(typedData)
		require.NoError(t, err)
		recoverable := append([]byte{}, sig...)
		recoverable[64] -= 27
		pub, err := crypto.SigToPub(hash, recoverable)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
	})

	t.Run("rejects malformed typed data", func(t *testing.T) {
		signer := newTestKeySigner(t)
		typedData := mailTypedData()
		typedData.PrimaryType = "Missing"

		_, err := signer.SignTypedData(typedData)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTypedData)
	})

	t.Run("returns error when locked", func(t *testing.T) {
		signer := newTestKeySigner(t)
		signer.Lock()

		_, err := signer.SignTypedData(mailTypedData())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAccountLocked)
	})
}

func TestKeystoreSigner_Lock(t *testing.T) {
	t.Run("keystore signer stops signing after lock", func(t *testing.T) {
		dir := testutil.TempDir(t)
		km, err := NewKeystoreManager(dir)
		require.NoError(t, err)

		account, err := km.CreateAccount("testpassword")
		require.NoError(t, err)

		signer, err := km.GetSigner(account.Address, "testpassword")
		require.NoError(t, err)
		assert.Equal(t, account.Address, signer.Address())

		_, err = signer.SignMessage([]byte("test"))
		require.NoError(t, err)

		signer.Lock()

		_, err = signer.SignMessage([]byte("test"))
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("can be called multiple times", func(t *testing.T) {
		signer := newTestKeySigner(t)

		// Should not panic on multiple calls
		signer.Lock()
		signer.Lock()
		signer.Lock()
	})
}
