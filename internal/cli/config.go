package cli

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"
	"github.com/yolodolo42/safe7579/internal/account"
)

// Config keys under the account section. Every key can also be set through
// the environment, e.g. SAFE7579_ACCOUNT_VALIDATOR.
const (
	keyEntryPoint        = "account.entry_point"
	keyFactory           = "account.factory"
	keyLaunchpad         = "account.launchpad"
	keySingleton         = "account.singleton"
	keyAdapter           = "account.adapter"
	keyValidator         = "account.validator"
	keyValidatorInitData = "account.validator_init_data"
	keyIndex             = "account.index"
	keyAddress           = "account.address"
)

// loadAccountConfig builds an account config from v. Unset addresses are
// left zero so the account package fills in the canonical deployments.
func loadAccountConfig(v *viper.Viper) (account.Config, error) {
	var cfg account.Config

	addresses := []struct {
		key string
		dst *common.Address
	}{
		{keyEntryPoint, &cfg.EntryPoint},
		{keyFactory, &cfg.Factory},
		{keyLaunchpad, &cfg.Launchpad},
		{keySingleton, &cfg.Singleton},
		{keyAdapter, &cfg.Adapter},
	}
	for _, a := range addresses {
		addr, ok, err := parseAddress(v.GetString(a.key))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", a.key, err)
		}
		if ok {
			*a.dst = addr
		}
	}

	validator, ok, err := parseAddress(v.GetString(keyValidator))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", keyValidator, err)
	}
	if ok {
		initData := []byte{}
		if raw := strings.TrimSpace(v.GetString(keyValidatorInitData)); raw != "" {
			initData, err = hexutil.Decode(raw)
			if err != nil {
				return cfg, fmt.Errorf("%s: %w", keyValidatorInitData, err)
			}
		}
		cfg.Validators = []account.Module{{Address: validator, InitData: initData}}
	}

	cfg.Index = v.GetUint64(keyIndex)

	known, ok, err := parseAddress(v.GetString(keyAddress))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", keyAddress, err)
	}
	if ok {
		cfg.Address = &known
	}

	return cfg, nil
}

// parseAddress accepts an empty string as "unset".
func parseAddress(s string) (common.Address, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, false, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, false, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), true, nil
}

// parseCall parses "to[,value[,data]]". Value is decimal wei or 0x-hex.
func parseCall(s string) (account.Call, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return account.Call{}, fmt.Errorf("call %q: expected to[,value[,data]]", s)
	}

	to, ok, err := parseAddress(parts[0])
	if err != nil {
		return account.Call{}, fmt.Errorf("call %q: %w", s, err)
	}
	if !ok {
		return account.Call{}, fmt.Errorf("call %q: target address is required", s)
	}
	call := account.Call{To: to, Value: new(big.Int), Data: []byte{}}

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		value, ok := new(big.Int).SetString(strings.TrimSpace(parts[1]), 0)
		if !ok || value.Sign() < 0 {
			return account.Call{}, fmt.Errorf("call %q: invalid value %q", s, parts[1])
		}
		call.Value = value
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		data, err := hexutil.Decode(strings.TrimSpace(parts[2]))
		if err != nil {
			return account.Call{}, fmt.Errorf("call %q: data: %w", s, err)
		}
		call.Data = data
	}
	return call, nil
}
