package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultReadAttempts = 3
	defaultRetryDelay   = 250 * time.Millisecond
)

// backend is the subset of Client a Reader needs
type backend interface {
	ChainID(ctx context.Context, chainName string) (*big.Int, error)
	CodeAt(ctx context.Context, chainName string, address common.Address) ([]byte, error)
	CallContract(ctx context.Context, chainName string, msg ethereum.CallMsg) ([]byte, error)
}

// Reader is a read-only view of a single chain. Every call is bounded by a
// per-attempt timeout and retried a fixed number of times; all calls are
// idempotent reads so retrying is safe.
type Reader struct {
	backend   backend
	chainName string
	timeout   time.Duration
	attempts  uint
	delay     time.Duration
	logger    zerolog.Logger
}

// Reader returns a read-only view of chainName
func (c *Client) Reader(chainName string) (*Reader, error) {
	if _, err := c.GetChainConfig(chainName); err != nil {
		return nil, err
	}
	return newReader(c, chainName, c.logger), nil
}

func newReader(b backend, chainName string, logger zerolog.Logger) *Reader {
	return &Reader{
		backend:   b,
		chainName: chainName,
		timeout:   DefaultReadTimeout,
		attempts:  DefaultReadAttempts,
		delay:     defaultRetryDelay,
		logger:    logger.With().Str("chain", chainName).Logger(),
	}
}

// WithTimeout sets the per-attempt timeout
func (r *Reader) WithTimeout(timeout time.Duration) *Reader {
	r.timeout = timeout
	return r
}

// WithAttempts sets how many times a failing read is tried
func (r *Reader) WithAttempts(attempts uint) *Reader {
	if attempts == 0 {
		attempts = 1
	}
	r.attempts = attempts
	return r
}

// ChainName returns the chain this reader is bound to
func (r *Reader) ChainName() string {
	return r.chainName
}

// ReadContract executes an eth_call against to with the given call data
func (r *Reader) ReadContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return withRetry(ctx, r, "eth_call", func(ctx context.Context) ([]byte, error) {
		return r.backend.CallContract(ctx, r.chainName, ethereum.CallMsg{To: &to, Data: data})
	})
}

// ChainID returns the chain ID reported by the node
func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	return withRetry(ctx, r, "eth_chainId", func(ctx context.Context) (*big.Int, error) {
		return r.backend.ChainID(ctx, r.chainName)
	})
}

// IsContractDeployed reports whether address has code
func (r *Reader) IsContractDeployed(ctx context.Context, address common.Address) (bool, error) {
	code, err := withRetry(ctx, r, "eth_getCode", func(ctx context.Context) ([]byte, error) {
		return r.backend.CodeAt(ctx, r.chainName, address)
	})
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func withRetry[T any](ctx context.Context, r *Reader, method string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			out, err := fn(callCtx)
			if err != nil {
				return err
			}
			result = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Debug().Err(err).Str("method", method).Uint("attempt", n+1).Msg("chain read failed, retrying")
		}),
	)
	return result, err
}
