package account

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	fixtureOwner     = common.HexToAddress("0x" + strings.Repeat("a", 39) + "1")
	fixtureValidator = common.HexToAddress("0x" + strings.Repeat("b", 39) + "2")
	fixtureAccount   = common.HexToAddress("0x" + strings.Repeat("c", 39) + "3")
	fixtureTarget    = common.HexToAddress("0x" + strings.Repeat("d", 40))
)

func fixtureConfig() Config {
	return Config{Validators: []Module{{Address: fixtureValidator}}}
}

// fakeReader answers the handful of contract reads the account makes by
// dispatching on the 4-byte selector.
type fakeReader struct {
	mu sync.Mutex

	predicted    common.Address
	creationCode []byte
	chainID      *big.Int
	nonce        *big.Int
	deployed     bool

	readErr   error
	chainErr  error
	deployErr error

	reads        map[string]int
	deployChecks int
	predictArgs  []interface{}
	nonceArgs    []interface{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		predicted:    fixtureAccount,
		creationCode: []byte{0x60, 0x80, 0x60, 0x40, 0x52},
		chainID:      big.NewInt(11155111),
		nonce:        big.NewInt(0),
		reads:        make(map[string]int),
	}
}

func (f *fakeReader) ReadContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("short call data")
	}

	dispatch := []struct {
		contract abi.ABI
		method   string
		handle   func(abi.Method, []interface{}) ([]byte, error)
	}{
		{factoryABI, "proxyCreationCode", func(m abi.Method, _ []interface{}) ([]byte, error) {
			return m.Outputs.Pack(f.creationCode)
		}},
		{launchpadABI, "predictSafeAddress", func(m abi.Method, args []interface{}) ([]byte, error) {
			f.predictArgs = args
			return m.Outputs.Pack(f.predicted)
		}},
		{entryPointABI, "getNonce", func(m abi.Method, args []interface{}) ([]byte, error) {
			f.nonceArgs = args
			return m.Outputs.Pack(f.nonce)
		}},
	}
	for _, d := range dispatch {
		m := d.contract.Methods[d.method]
		if !bytes.Equal(data[:4], m.ID) {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		f.reads[d.method]++
		return d.handle(m, args)
	}
	return nil, fmt.Errorf("unexpected call %x", data[:4])
}

func (f *fakeReader) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeReader) IsContractDeployed(context.Context, common.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployChecks++
	if f.deployErr != nil {
		return false, f.deployErr
	}
	return f.deployed, nil
}

func (f *fakeReader) setDeployed(deployed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployed = deployed
}

func (f *fakeReader) setDeployErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployErr = err
}

func (f *fakeReader) totalReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.reads {
		total += n
	}
	return total
}

func (f *fakeReader) checks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deployChecks
}

// fakeSigner returns a fixed raw signature for every request.
type fakeSigner struct {
	address  common.Address
	sig      []byte
	err      error
	messages [][]byte
}

func newFakeSigner(lastByte byte) *fakeSigner {
	sig := bytes.Repeat([]byte{0x11}, 65)
	sig[64] = lastByte
	return &fakeSigner{address: fixtureOwner, sig: sig}
}

func (s *fakeSigner) Address() common.Address {
	return s.address
}

func (s *fakeSigner) SignMessage(message []byte) ([]byte, error) {
	s.messages = append(s.messages, common.CopyBytes(message))
	if s.err != nil {
		return nil, s.err
	}
	return common.CopyBytes(s.sig), nil
}

func (s *fakeSigner) SignTypedData(apitypes.TypedData) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return common.CopyBytes(s.sig), nil
}

func newTestAccount(t *testing.T, reader ChainReader, owner Signer) *SmartAccount {
	t.Helper()
	acc, err := New(context.Background(), fixtureConfig(), owner, reader, zerolog.Nop())
	require.NoError(t, err)
	return acc
}

// unpackCall splits call data into the method it targets and its decoded
// arguments.
func unpackCall(t *testing.T, contract abi.ABI, method string, data []byte) []interface{} {
	t.Helper()
	m := contract.Methods[method]
	require.GreaterOrEqual(t, len(data), 4)
	require.Equal(t, m.ID, data[:4], "expected %s call", method)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}
