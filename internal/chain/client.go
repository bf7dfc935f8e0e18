package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Client manages connections to multiple EVM chains
type Client struct {
	chains  map[string]*ChainConfig
	clients map[string]*ethclient.Client
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// NewClient creates a new multi-chain client
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		chains:  DefaultChains(),
		clients: make(map[string]*ethclient.Client),
		logger:  logger.With().Str("component", "chain").Logger(),
	}
}

// AddChain adds or overrides a chain configuration. An existing connection
// for the chain is dropped so the next call dials the new RPC URLs.
func (c *Client) AddChain(name string, config *ChainConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chains[name] = config
	if client, ok := c.clients[name]; ok {
		client.Close()
		delete(c.clients, name)
	}
}

// GetChainConfig returns the configuration for a chain
func (c *Client) GetChainConfig(chainName string) (*ChainConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.chains[chainName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, chainName)
	}
	return config, nil
}

// ListChains returns all configured chains in name order
func (c *Client) ListChains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chains := make([]string, 0, len(c.chains))
	for name := range c.chains {
		chains = append(chains, name)
	}
	sort.Strings(chains)
	return chains
}

// getClient returns an ethclient for the given chain, creating one if needed.
// Acquires write lock upfront to prevent duplicate connection creation under
// contention. Connection creation is not a hot path.
func (c *Client) getClient(ctx context.Context, chainName string) (*ethclient.Client, *ChainConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, configExists := c.chains[chainName]
	if !configExists {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownChain, chainName)
	}

	// Return cached client if available
	if client, exists := c.clients[chainName]; exists {
		return client, config, nil
	}

	var lastErr error
	for _, rpcURL := range config.RPCURLs {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := ethclient.DialContext(dialCtx, rpcURL)
		cancel()

		if err != nil {
			c.logger.Debug().Err(err).Str("chain", chainName).Str("rpc", rpcURL).Msg("dial failed")
			lastErr = err
			continue
		}

		// Verify chain ID
		idCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		chainID, err := client.ChainID(idCtx)
		cancel()

		if err != nil {
			client.Close()
			lastErr = err
			continue
		}

		if chainID.Cmp(config.ChainID) != 0 {
			client.Close()
			lastErr = fmt.Errorf("chain ID mismatch: expected %s, got %s", config.ChainID.String(), chainID.String())
			continue
		}

		c.logger.Debug().Str("chain", chainName).Str("rpc", rpcURL).Msg("connected")
		c.clients[chainName] = client
		return client, config, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URLs configured")
	}
	return nil, nil, fmt.Errorf("failed to connect to %s: %w", chainName, lastErr)
}

// ChainID returns the chain ID reported by the connected node
func (c *Client) ChainID(ctx context.Context, chainName string) (*big.Int, error) {
	client, _, err := c.getClient(ctx, chainName)
	if err != nil {
		return nil, err
	}

	return client.ChainID(ctx)
}

// GetBalance returns the native token balance for an address on a chain
func (c *Client) GetBalance(ctx context.Context, chainName string, address common.Address) (*big.Int, error) {
	client, _, err := c.getClient(ctx, chainName)
	if err != nil {
		return nil, err
	}

	return client.BalanceAt(ctx, address, nil)
}

// CodeAt returns the deployed bytecode at address (empty for EOAs and
// undeployed accounts)
func (c *Client) CodeAt(ctx context.Context, chainName string, address common.Address) ([]byte, error) {
	client, _, err := c.getClient(ctx, chainName)
	if err != nil {
		return nil, err
	}

	return client.CodeAt(ctx, address, nil)
}

// CallContract executes a contract call (read-only)
func (c *Client) CallContract(ctx context.Context, chainName string, msg ethereum.CallMsg) ([]byte, error) {
	client, _, err := c.getClient(ctx, chainName)
	if err != nil {
		return nil, err
	}

	return client.CallContract(ctx, msg, nil)
}

// Close closes all client connections
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[string]*ethclient.Client)
}
