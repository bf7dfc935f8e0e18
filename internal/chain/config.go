package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrUnknownChain is returned for chain names with no configuration
var ErrUnknownChain = errors.New("unknown chain")

// ChainConfig holds configuration for an EVM chain.
// Invariant: ChainID and ChainIDInt must always represent the same value.
// ChainIDInt exists for YAML serialization (big.Int doesn't serialize cleanly).
type ChainConfig struct {
	Name           string   `yaml:"name"`
	ChainID        *big.Int `yaml:"-"`
	ChainIDInt     int64    `yaml:"chain_id"`
	RPCURLs        []string `yaml:"rpc_urls"`
	ExplorerURL    string   `yaml:"explorer_url"`
	NativeCurrency string   `yaml:"native_currency"`
	IsTestnet      bool     `yaml:"is_testnet"`
}

func newChainConfig(name string, chainID int64, currency, explorer string, testnet bool, rpcURLs ...string) *ChainConfig {
	return &ChainConfig{
		Name:           name,
		ChainID:        big.NewInt(chainID),
		ChainIDInt:     chainID,
		RPCURLs:        rpcURLs,
		ExplorerURL:    explorer,
		NativeCurrency: currency,
		IsTestnet:      testnet,
	}
}

// DefaultChains returns the chains where the canonical Safe7579 launchpad,
// adapter and v0.7 entry point are deployed.
func DefaultChains() map[string]*ChainConfig {
	return map[string]*ChainConfig{
		"ethereum": newChainConfig("Ethereum Mainnet", 1, "ETH", "https://etherscan.io", false,
			"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"),
		"base": newChainConfig("Base", 8453, "ETH", "https://basescan.org", false,
			"https://mainnet.base.org", "https://base.llamarpc.com"),
		"arbitrum": newChainConfig("Arbitrum One", 42161, "ETH", "https://arbiscan.io", false,
			"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"),
		"optimism": newChainConfig("Optimism", 10, "ETH", "https://optimistic.etherscan.io", false,
			"https://mainnet.optimism.io", "https://optimism.llamarpc.com"),
		"polygon": newChainConfig("Polygon", 137, "POL", "https://polygonscan.com", false,
			"https://polygon-rpc.com", "https://polygon.llamarpc.com"),
		"sepolia": newChainConfig("Sepolia Testnet", 11155111, "ETH", "https://sepolia.etherscan.io", true,
			"https://rpc.sepolia.org", "https://sepolia.drpc.org"),
		"base-sepolia": newChainConfig("Base Sepolia Testnet", 84532, "ETH", "https://sepolia.basescan.org", true,
			"https://sepolia.base.org"),
	}
}

// WithRPCURL returns a copy of the config that dials rpcURL before the
// defaults. An empty URL returns the config unchanged.
func (c *ChainConfig) WithRPCURL(rpcURL string) *ChainConfig {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return c
	}
	out := *c
	out.ChainID = new(big.Int).Set(c.ChainID)
	out.RPCURLs = append([]string{rpcURL}, c.RPCURLs...)
	return &out
}

// FormatBalance formats a wei amount with the given decimals, trimming
// trailing zeros but keeping at least one fractional digit.
func FormatBalance(wei *big.Int, decimals uint8) string {
	if wei == nil {
		return "0.0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	fracStr := "0"
	if decimals > 0 {
		digits := frac.String()
		fracStr = strings.Repeat("0", int(decimals)-len(digits)) + digits
		fracStr = strings.TrimRight(fracStr, "0")
		if fracStr == "" {
			fracStr = "0"
		}
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), fracStr)
}
