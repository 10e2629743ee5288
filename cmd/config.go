package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/rfm-cli/internal/config"
	"github.com/KaramelBytes/rfm-cli/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set rfm configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "score_buckets: %d\n", cfg.ScoreBuckets)
		fmt.Fprintf(out, "preview_rows: %d\n", cfg.PreviewRows)
		fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.DecimalSeparator != "" {
			fmt.Fprintf(out, "decimal_separator: %q\n", cfg.DecimalSeparator)
		}
		if cfg.ThousandsSeparator != "" {
			fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		}
		fmt.Fprintf(out, "server_host: %s\n", cfg.ServerHost)
		fmt.Fprintf(out, "server_port: %d\n", cfg.ServerPort)
		fmt.Fprintf(out, "read_timeout_sec: %d\n", cfg.ReadTimeoutSec)
		fmt.Fprintf(out, "write_timeout_sec: %d\n", cfg.WriteTimeoutSec)
		fmt.Fprintf(out, "request_timeout_sec: %d\n", cfg.RequestTimeoutSec)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "rate_limit_rps: %.3f\n", cfg.RateLimitRPS)
		fmt.Fprintf(out, "rate_limit_burst: %d\n", cfg.RateLimitBurst)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// start from the file, not from flag overrides applied at startup
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		positive := func() (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			return i, nil
		}
		switch key {
		case "score_buckets":
			if c.ScoreBuckets, err = positive(); err != nil {
				return err
			}
		case "preview_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for preview_rows: %v", val)
			}
			c.PreviewRows = i
		case "output_format":
			c.OutputFormat = strings.ToLower(val)
		case "delimiter":
			c.Delimiter = val
		case "decimal_separator":
			c.DecimalSeparator = val
		case "thousands_separator":
			c.ThousandsSeparator = val
		case "server_host":
			c.ServerHost = val
		case "server_port":
			if c.ServerPort, err = positive(); err != nil {
				return err
			}
		case "read_timeout_sec":
			if c.ReadTimeoutSec, err = positive(); err != nil {
				return err
			}
		case "write_timeout_sec":
			if c.WriteTimeoutSec, err = positive(); err != nil {
				return err
			}
		case "request_timeout_sec":
			if c.RequestTimeoutSec, err = positive(); err != nil {
				return err
			}
		case "max_upload_mb":
			if c.MaxUploadMB, err = positive(); err != nil {
				return err
			}
		case "rate_limit_rps":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for rate_limit_rps: %v", val)
			}
			c.RateLimitRPS = f
		case "rate_limit_burst":
			if c.RateLimitBurst, err = positive(); err != nil {
				return err
			}
		case "log_level":
			lvl := strings.ToLower(val)
			if logging.ParseLevel(lvl).String() != lvl && lvl != "warning" && lvl != "off" && lvl != "disabled" {
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn, error or off)", val)
			}
			c.LogLevel = lvl
		case "log_format":
			switch strings.ToLower(val) {
			case "console", "json":
				c.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
