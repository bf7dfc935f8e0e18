package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SAFE7579"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "safe7579",
		Short: "Safe + ERC-7579 smart account toolkit",
		Long: `safe7579 resolves, encodes and signs for Safe smart accounts that run
the ERC-7579 adapter behind an ERC-4337 v0.7 entry point.

It predicts counterfactual account addresses, builds the factory init code,
encodes single and batch executions, reads validator-scoped nonces and
produces owner signatures. It never broadcasts anything.`,
		SilenceUsage: true,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.safe7579/config.yaml)")
	rootCmd.PersistentFlags().String("chain", "sepolia", "Chain to read from")
	rootCmd.PersistentFlags().String("rpc", "", "RPC URL tried before the chain defaults")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	_ = viper.BindPFlag("chain", rootCmd.PersistentFlags().Lookup("chain"))
	_ = viper.BindPFlag("rpc", rootCmd.PersistentFlags().Lookup("rpc"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir := getDataDir()
		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// account.validator -> SAFE7579_ACCOUNT_VALIDATOR
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Silently ignore missing config file - it's optional
	_ = viper.ReadInConfig()
}

func getDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".safe7579"
	}
	return filepath.Join(home, ".safe7579")
}

// newLogger writes human-readable logs to stderr so command output on stdout
// stays machine-readable.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
