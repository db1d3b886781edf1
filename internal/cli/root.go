package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/model"
)

var (
	cfgFile string
	verbose bool
)

var version = "v0.1.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvester - aggregate information system records from registered producers",
	Long: `Harvester periodically collects JSON records describing information systems
from a set of registered producers, keeps the most recently updated version of
every record, attaches approvals from the approval authority and saves the
resulting collection.

A producer that cannot be reached is skipped for the cycle. When the approval
authority cannot be reached the cycle is discarded and the previously saved
collection stays in place.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "harvester %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.harvester/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is the normal case
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(home + "/.harvester")
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := setupViper(); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	configureLogging()
}

// setupViper registers every default so that HARVESTER_* variables can
// override any key, e.g. HARVESTER_APPROVALS_URL for approvals.url.
func setupViper() error {
	viper.SetEnvPrefix("HARVESTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	raw, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return err
	}
	setDefaults("", defaults)
	return nil
}

func setDefaults(prefix string, values map[string]any) {
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

func configureLogging() {
	cfg := logging.DefaultConfig()
	if err := viper.UnmarshalKey("logging", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading logging config: %v\n", err)
	}
	if verbose {
		cfg.Level = "debug"
	}
	logging.Configure(&cfg)
}

// loadConfig returns the effective configuration. Callers validate the
// parts they need.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	return cfg, nil
}
