package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/pairwise/internal/model"
)

// version is overridden at build time with -ldflags "-X github.com/ppiankov/pairwise/internal/cli.version=..."
var version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pairwise",
	Short: "Pairwise - reference-anchored review comparison surveys",
	Long: `Pairwise serves human evaluation surveys that show a reference review next
to two candidate reviews and collect per-category preference judgments.

Two survey variants are available:
  hybrid  access-code gate, pre-assigned sample lists, sequential navigation
  random  one random paper, reference and candidate pair per request

Every submission is stored and handed back to the evaluator as a JSON file.
Pairwise gathers opinions; it does not score or aggregate them.`,
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
	Long:  `Display the version number of Pairwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pairwise v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.pairwise/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.pairwise")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PAIRWISE_*, e.g. PAIRWISE_SERVER_MODE
	viper.SetEnvPrefix("PAIRWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so env vars can override it
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", string(d.Server.Mode))
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("server.message_delay", d.Server.MessageDelay)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.secure_cookie", d.Server.SecureCookie)

	v.SetDefault("data.base", d.Data.Base)
	v.SetDefault("data.timeout", d.Data.Timeout)
	v.SetDefault("data.user_agent", d.Data.UserAgent)
	v.SetDefault("data.max_body_bytes", d.Data.MaxBodyBytes)
	v.SetDefault("data.http_proxy", d.Data.HTTPProxy)
	v.SetDefault("data.https_proxy", d.Data.HTTPSProxy)
	v.SetDefault("data.requests_per_second", d.Data.RequestsPerSecond)
	v.SetDefault("data.burst_size", d.Data.BurstSize)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.mongo_uri", d.Store.MongoURI)
	v.SetDefault("store.mongo_database", d.Store.MongoDatabase)

	v.SetDefault("dataset.workers", d.Dataset.Workers)
	v.SetDefault("output.verbose", d.Output.Verbose)
}

// loadConfig resolves the effective configuration: flags > env > file > defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if !cfg.Server.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode: %s (supported: hybrid, random)", cfg.Server.Mode)
	}
	return cfg, nil
}

// newLogger returns the structured logger shared by every component
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
