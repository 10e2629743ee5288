package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/rfm-cli/internal/config"
	"github.com/KaramelBytes/rfm-cli/internal/logging"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// Global flags
	cfgFile    string
	debug      bool
	flagLogLvl string
	flagLogFmt string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:           "rfm",
	Short:         "RFM: score customers by Recency, Frequency and Monetary value",
	Long:          `rfm reads a purchase log (CSV, TSV or XLSX), computes Recency, Frequency and Monetary metrics per customer, bins them into scores and assigns value and customer segments.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.rfm/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagLogLvl, "log-level", "", "log level: debug|info|warn|error|off (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFmt, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") {
		cfg.LogLevel = flagLogLvl
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flagLogFmt
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.Debug().Str("config", cfgFile).Msg("configuration loaded")
}

// defaultConfig mirrors the loader defaults for when the config file is
// unusable.
func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		ScoreBuckets:      5,
		PreviewRows:       5,
		OutputFormat:      "markdown",
		ServerHost:        "127.0.0.1",
		ServerPort:        8080,
		ReadTimeoutSec:    15,
		WriteTimeoutSec:   30,
		RequestTimeoutSec: 30,
		MaxUploadMB:       32,
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}
