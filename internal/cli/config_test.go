package cli

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/safe7579/internal/account"
)

func TestLoadAccountConfig(t *testing.T) {
	t.Run("empty config leaves defaults to the account", func(t *testing.T) {
		cfg, err := loadAccountConfig(viper.New())
		require.NoError(t, err)

		assert.Equal(t, account.Config{}, cfg)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, account.EntryPointV07, cfg.EntryPoint)
		assert.Equal(t, account.OwnableValidator, cfg.Validator().Address)
	})

	t.Run("reads every key", func(t *testing.T) {
		v := viper.New()
		v.Set(keyFactory, "0x1111111111111111111111111111111111111111")
		v.Set(keyValidator, "0x2222222222222222222222222222222222222222")
		v.Set(keyValidatorInitData, "0xabcd")
		v.Set(keyIndex, 5)
		v.Set(keyAddress, "0x3333333333333333333333333333333333333333")

		cfg, err := loadAccountConfig(v)
		require.NoError(t, err)

		assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Factory)
		assert.Equal(t, []account.Module{{
			Address:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
			InitData: []byte{0xab, 0xcd},
		}}, cfg.Validators)
		assert.Equal(t, uint64(5), cfg.Index)
		require.NotNil(t, cfg.Address)
		assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), *cfg.Address)
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for key, value := range map[string]string{
			keyEntryPoint:        "0x1234",
			keyValidator:         "not-an-address",
			keyAddress:           "0xzz",
			keyValidatorInitData: "zz",
		} {
			v := viper.New()
			v.Set(keyValidator, "0x2222222222222222222222222222222222222222")
			v.Set(key, value)

			_, err := loadAccountConfig(v)
			assert.Error(t, err, key)
		}
	})
}

func TestParseCall(t *testing.T) {
	target := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")

	tests := []struct {
		name  string
		input string
		value int64
		data  []byte
	}{
		{"target only", "0xdddddddddddddddddddddddddddddddddddddddd", 0, []byte{}},
		{"decimal value", "0xdddddddddddddddddddddddddddddddddddddddd,1000", 1000, []byte{}},
		{"hex value and data", "0xdddddddddddddddddddddddddddddddddddddddd,0x10,0xa9059cbb", 16, []byte{0xa9, 0x05, 0x9c, 0xbb}},
		{"empty value", "0xdddddddddddddddddddddddddddddddddddddddd,,0x01", 0, []byte{0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := parseCall(tt.input)
			require.NoError(t, err)
			assert.Equal(t, target, call.To)
			assert.Equal(t, 0, big.NewInt(tt.value).Cmp(call.Value))
			assert.Equal(t, tt.data, call.Data)
		})
	}

	for _, bad := range []string{"", "0x1234", "0xdddddddddddddddddddddddddddddddddddddddd,-1", "0xdddddddddddddddddddddddddddddddddddddddd,1,zz", "a,b,c,d"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := parseCall(bad)
			assert.Error(t, err)
		})
	}
}

func TestWatchOwner(t *testing.T) {
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	var signer account.Signer = watchOwner(owner)

	assert.Equal(t, owner, signer.Address())
	_, err := signer.SignMessage([]byte("hello"))
	assert.ErrorIs(t, err, errWatchOnly)
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range accountCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"address", "init-code", "encode", "nonce", "sign-message", "sign-typed-data", "sign-userop"} {
		assert.True(t, names[want], "missing account %s", want)
	}

	found, _, err := rootCmd.Find([]string{"wallet", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", found.Name())
}
