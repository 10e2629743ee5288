package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Scoring
	ScoreBuckets int    `mapstructure:"score_buckets" yaml:"score_buckets"`
	PreviewRows  int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	// Input parsing; empty means auto-detect
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter,omitempty"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator,omitempty"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator,omitempty"`

	// Upload server
	ServerHost        string  `mapstructure:"server_host" yaml:"server_host"`
	ServerPort        int     `mapstructure:"server_port" yaml:"server_port"`
	ReadTimeoutSec    int     `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec   int     `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	RequestTimeoutSec int     `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	MaxUploadMB       int     `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.rfm.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".rfm"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.rfm/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RFM")
	v.AutomaticEnv()

	v.SetDefault("score_buckets", 5)
	v.SetDefault("preview_rows", 5)
	v.SetDefault("output_format", "markdown")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	// server defaults
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8080)
	v.SetDefault("read_timeout_sec", 15)
	v.SetDefault("write_timeout_sec", 30)
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// a missing file means defaults; a broken one is an error
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the scorer or server cannot run with.
func (c *Global) Validate() error {
	if c.ScoreBuckets < 1 {
		return fmt.Errorf("score_buckets must be >= 1, got %d", c.ScoreBuckets)
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must be >= 0, got %d", c.PreviewRows)
	}
	switch c.OutputFormat {
	case "markdown", "json", "csv":
	default:
		return fmt.Errorf("invalid output_format: %s (use markdown, json or csv)", c.OutputFormat)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0, got %d", c.MaxUploadMB)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be >= 0, got %v", c.RateLimitRPS)
	}
	if _, err := ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}
	if _, err := ParseDecimalSeparator(c.DecimalSeparator); err != nil {
		return fmt.Errorf("decimal_separator: %w", err)
	}
	if _, err := ParseThousandsSeparator(c.ThousandsSeparator); err != nil {
		return fmt.Errorf("thousands_separator: %w", err)
	}
	return nil
}

// ParseDelimiter resolves a CSV delimiter setting. Empty yields 0 (sniff).
func ParseDelimiter(s string) (rune, error) {
	return oneOf(s, ",;|\t", "use ',', ';', '|' or 'tab'")
}

// ParseDecimalSeparator resolves a decimal separator setting. Empty yields 0
// (auto-detect).
func ParseDecimalSeparator(s string) (rune, error) {
	return oneOf(s, ".,", "use '.' or 'comma'")
}

// ParseThousandsSeparator resolves a thousands separator setting. Empty
// yields 0 (auto-detect).
func ParseThousandsSeparator(s string) (rune, error) {
	return oneOf(s, ",. ", "use ',', '.' or 'space'")
}

func oneOf(s, allowed, hint string) (rune, error) {
	r, err := SingleRune(s)
	if err != nil {
		return 0, fmt.Errorf("%w (%s)", err, hint)
	}
	if r != 0 && !strings.ContainsRune(allowed, r) {
		return 0, fmt.Errorf("unsupported separator %q (%s)", s, hint)
	}
	return r, nil
}

// SingleRune converts a one-character setting to a rune. Empty means auto
// and yields 0; "\t" and "tab" both mean a tab. "space", "comma" and "dot"
// are accepted as names.
func SingleRune(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	case "space":
		return ' ', nil
	case "comma":
		return ',', nil
	case "dot":
		return '.', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("expected a single character, got %q", s)
	}
	return r[0], nil
}
