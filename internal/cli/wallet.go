package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/safe7579/internal/wallet"
	"golang.org/x/term"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage owner keys",
	Long:  `Create, import, and list the EOA keys that own smart accounts.
Keys are stored as encrypted keystore files under $HOME/.safe7579.`,
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new owner key",
	RunE:  runWalletCreate,
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an owner key from a private key",
	RunE:  runWalletImport,
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List owner keys",
	RunE:  runWalletList,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletListCmd)

	walletImportCmd.Flags().String("key", "", "Private key to import (hex, with or without 0x prefix)")
}

// readPassword prompts on the terminal unless SAFE7579_PASSWORD is set.
func readPassword(prompt string) (string, error) {
	if password := viper.GetString("password"); password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// readNewPassword asks twice and enforces a minimum length
func readNewPassword(prompt string) (string, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	dataDir := getDataDir()
	km, err := wallet.NewKeystoreManager(dataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	password, err := readNewPassword("Enter password for new owner key: ")
	if err != nil {
		return err
	}

	account, err := km.CreateAccount(password)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Println("\nOwner key created.")
	fmt.Printf("Address: %s\n", account.Address.Hex())
	fmt.Printf("Keystore: %s\n", account.URL.Path)
	fmt.Println("\nBack up the keystore file: the smart account address is derived from this owner.")

	return nil
}

func runWalletImport(cmd *cobra.Command, args []string) error {
	privateKey, _ := cmd.Flags().GetString("key")

	if privateKey == "" {
		fmt.Print("Enter private key (hex): ")
		var input string
		_, _ = fmt.Scanln(&input)
		privateKey = strings.TrimSpace(input)
	}

	if privateKey == "" {
		return fmt.Errorf("private key is required")
	}

	dataDir := getDataDir()
	km, err := wallet.NewKeystoreManager(dataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	password, err := readNewPassword("Enter password to encrypt owner key: ")
	if err != nil {
		return err
	}

	account, err := km.ImportKey(privateKey, password)
	if err != nil {
		return fmt.Errorf("failed to import key: %w", err)
	}

	fmt.Println("\nOwner key imported.")
	fmt.Printf("Address: %s\n", account.Address.Hex())
	fmt.Printf("Keystore: %s\n", account.URL.Path)

	return nil
}

func runWalletList(cmd *cobra.Command, args []string) error {
	dataDir := getDataDir()
	km, err := wallet.NewKeystoreManager(dataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	accounts := km.ListAccounts()

	if len(accounts) == 0 {
		fmt.Println("No owner keys found.")
		fmt.Println("Use 'safe7579 wallet create' to create a new wallet.")
		return nil
	}

	fmt.Printf("Found %d owner key(s):\n\n", len(accounts))
	for i, acc := range accounts {
		fmt.Printf("%d. %s\n", i+1, acc.Address.Hex())
	}

	return nil
}

// GetSigner unlocks the keystore owner at address
func GetSigner(address common.Address) (*wallet.KeystoreSigner, error) {
	dataDir := getDataDir()
	km, err := wallet.NewKeystoreManager(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keystore: %w", err)
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", address.Hex()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return km.GetSigner(address, password)
}
