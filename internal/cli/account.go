package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/safe7579/internal/account"
	"github.com/yolodolo42/safe7579/internal/chain"
)

const commandTimeout = 60 * time.Second

var errWatchOnly = errors.New("owner key is not unlocked for this command")

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Resolve, encode and sign for a smart account",
	Long: `Commands for the Safe7579 smart account of an owner key.

The account is identified by the owner (--owner), the validator module
(account.validator, default: ownable validator) and the index
(account.index, default: 0).`,
}

var accountAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the account address and deployment state",
	RunE:  runAccountAddress,
}

var accountInitCodeCmd = &cobra.Command{
	Use:   "init-code",
	Short: "Show the factory and factory data that deploy the account",
	RunE:  runAccountInitCode,
}

var accountEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode calls into account call data",
	Long: `Encode one or more calls into the call data of a user operation.

Each --call is to[,value[,data]]. An account that is not deployed yet
always gets the launchpad setup call instead.`,
	RunE: runAccountEncode,
}

var accountNonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Read the account nonce for the validator's nonce key",
	RunE:  runAccountNonce,
}

var accountSignMessageCmd = &cobra.Command{
	Use:   "sign-message <message>",
	Short: "Sign a message for ERC-1271 verification by the account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountSignMessage,
}

var accountSignTypedDataCmd = &cobra.Command{
	Use:   "sign-typed-data <file.json>",
	Short: "Sign EIP-712 typed data for ERC-1271 verification by the account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountSignTypedData,
}

var accountSignUserOpCmd = &cobra.Command{
	Use:   "sign-userop <file.json>",
	Short: "Sign a v0.7 user operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountSignUserOp,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountAddressCmd)
	accountCmd.AddCommand(accountInitCodeCmd)
	accountCmd.AddCommand(accountEncodeCmd)
	accountCmd.AddCommand(accountNonceCmd)
	accountCmd.AddCommand(accountSignMessageCmd)
	accountCmd.AddCommand(accountSignTypedDataCmd)
	accountCmd.AddCommand(accountSignUserOpCmd)

	accountCmd.PersistentFlags().String("owner", "", "Owner EOA address (must be in the keystore for signing)")
	accountCmd.PersistentFlags().Uint64("index", 0, "Account index for the same owner")
	accountCmd.PersistentFlags().String("validator", "", "Validator module address")
	_ = viper.BindPFlag("owner", accountCmd.PersistentFlags().Lookup("owner"))
	_ = viper.BindPFlag(keyIndex, accountCmd.PersistentFlags().Lookup("index"))
	_ = viper.BindPFlag(keyValidator, accountCmd.PersistentFlags().Lookup("validator"))

	accountEncodeCmd.Flags().StringArray("call", nil, "Call as to[,value[,data]] (repeatable)")
}

// watchOwner stands in for the owner on read-only commands so no password
// is asked for.
type watchOwner common.Address

func (w watchOwner) Address() common.Address {
	return common.Address(w)
}

func (watchOwner) SignMessage([]byte) ([]byte, error) {
	return nil, errWatchOnly
}

func (watchOwner) SignTypedData(apitypes.TypedData) ([]byte, error) {
	return nil, errWatchOnly
}

// session is one resolved account plus the connections behind it.
type session struct {
	account *account.SmartAccount
	client  *chain.Client
	chain   string
	lock    func()
}

func (s *session) Close() {
	if s.lock != nil {
		s.lock()
	}
	s.client.Close()
}

func ownerAddress() (common.Address, error) {
	owner, ok, err := parseAddress(viper.GetString("owner"))
	if err != nil {
		return common.Address{}, fmt.Errorf("--owner: %w", err)
	}
	if !ok {
		return common.Address{}, fmt.Errorf("--owner is required")
	}
	return owner, nil
}

// openAccount resolves the account. With unlock set the owner key is read
// from the keystore; otherwise the account can only read and encode.
func openAccount(ctx context.Context, unlock bool) (*session, error) {
	logger := newLogger(viper.GetBool("verbose"))

	owner, err := ownerAddress()
	if err != nil {
		return nil, err
	}
	cfg, err := loadAccountConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	var (
		signer account.Signer = watchOwner(owner)
		lock   func()
	)
	if unlock {
		ks, err := GetSigner(owner)
		if err != nil {
			return nil, err
		}
		signer, lock = ks, ks.Lock
	}
	closeAll := func(client *chain.Client) {
		if lock != nil {
			lock()
		}
		client.Close()
	}

	chainName := viper.GetString("chain")
	client := chain.NewClient(logger)
	if rpcURL := viper.GetString("rpc"); rpcURL != "" {
		chainCfg, err := client.GetChainConfig(chainName)
		if err != nil {
			closeAll(client)
			return nil, err
		}
		client.AddChain(chainName, chainCfg.WithRPCURL(rpcURL))
	}

	reader, err := client.Reader(chainName)
	if err != nil {
		closeAll(client)
		return nil, err
	}

	acc, err := account.New(ctx, cfg, signer, reader, logger)
	if err != nil {
		closeAll(client)
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	return &session{account: acc, client: client, chain: chainName, lock: lock}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

func runAccountAddress(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	deployed, err := s.account.IsDeployed(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Address:   %s\n", s.account.Address().Hex())
	fmt.Printf("Owner:     %s\n", s.account.Owner().Hex())
	fmt.Printf("Validator: %s\n", s.account.Validator().Address.Hex())
	fmt.Printf("Chain:     %s (%s)\n", s.chain, s.account.ChainID())
	fmt.Printf("Deployed:  %t\n", deployed)

	chainCfg, err := s.client.GetChainConfig(s.chain)
	if err != nil {
		return err
	}
	balance, err := s.client.GetBalance(ctx, s.chain, s.account.Address())
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	fmt.Printf("Balance:   %s %s\n", chain.FormatBalance(balance, 18), chainCfg.NativeCurrency)

	return nil
}

func runAccountInitCode(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	factory, ok, err := s.account.GetFactory(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Account is deployed; no init code needed.")
		return nil
	}
	factoryData, err := s.account.GetFactoryData(ctx)
	if err != nil {
		return err
	}
	initCode, err := s.account.GetInitCode(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Factory:      %s\n", factory.Hex())
	fmt.Printf("Factory data: %s\n", hexutil.Encode(factoryData))
	fmt.Printf("Init code:    %s\n", hexutil.Encode(initCode))
	return nil
}

func runAccountEncode(cmd *cobra.Command, args []string) error {
	rawCalls, _ := cmd.Flags().GetStringArray("call")
	if len(rawCalls) == 0 {
		return fmt.Errorf("at least one --call is required")
	}
	calls := make([]account.Call, 0, len(rawCalls))
	for _, raw := range rawCalls {
		call, err := parseCall(raw)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	callData, err := s.account.EncodeCallData(ctx, calls...)
	if err != nil {
		return err
	}
	fmt.Println(hexutil.Encode(callData))
	return nil
}

func runAccountNonce(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	nonce, err := s.account.GetNonce(ctx)
	if err != nil {
		return err
	}
	fmt.Println(nonce.String())
	return nil
}

func runAccountSignMessage(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	sig, err := s.account.SignMessage([]byte(args[0]))
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}
	fmt.Println(hexutil.Encode(sig))
	return nil
}

func runAccountSignTypedData(cmd *cobra.Command, args []string) error {
	var typedData apitypes.TypedData
	if err := readJSONFile(args[0], &typedData); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	sig, err := s.account.SignTypedData(typedData)
	if err != nil {
		return fmt.Errorf("failed to sign typed data: %w", err)
	}
	fmt.Println(hexutil.Encode(sig))
	return nil
}

func runAccountSignUserOp(cmd *cobra.Command, args []string) error {
	var op account.UserOperation
	if err := readJSONFile(args[0], &op); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openAccount(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if op.Sender != s.account.Address() {
		return fmt.Errorf("user operation sender %s is not the account %s", op.Sender.Hex(), s.account.Address().Hex())
	}

	sig, err := s.account.SignUserOperation(&op)
	if err != nil {
		return fmt.Errorf("failed to sign user operation: %w", err)
	}
	op.Signature = sig

	out, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readJSONFile(path string, dst interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
