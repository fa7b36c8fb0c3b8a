package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rhystmorgan/fxTerm/internal/ledger"
)

const (
	EnvPrefix      = "FXTERM"
	AppDir         = ".fxterm"
	ConfigFileName = "config"
)

// Config is the application configuration. Values come from defaults, then
// ~/.fxterm/config.yaml, then FXTERM_* environment variables, then flags.
type Config struct {
	APIURL                string        `mapstructure:"api_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RetryCount            int           `mapstructure:"retry_count"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	BreakerFailures       uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown       time.Duration `mapstructure:"breaker_cooldown"`
	FeeRate               string        `mapstructure:"fee_rate"`
	LogLevel              string        `mapstructure:"log_level"`
	DataDir               string        `mapstructure:"data_dir"`
	SessionExpiringWindow time.Duration `mapstructure:"session_expiring_window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", ledger.DefaultBaseURL)
	v.SetDefault("timeout", ledger.DefaultTimeout)
	v.SetDefault("retry_count", ledger.DefaultRetryCount)
	v.SetDefault("retry_delay", ledger.DefaultRetryDelay)
	v.SetDefault("breaker_failures", ledger.DefaultBreakerFailures)
	v.SetDefault("breaker_cooldown", ledger.DefaultBreakerCooldown)
	v.SetDefault("fee_rate", "0.01")
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", filepath.Join("~", AppDir))
	v.SetDefault("session_expiring_window", 2*time.Minute)
}

// Load builds the configuration. configFile may be empty, in which case an
// optional config.yaml in the data directory is read. flags may be nil;
// any flag named like a key with dashes (api-url) overrides it.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range v.AllKeys() {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		dir, err := expandHome(v.GetString("data_dir"))
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	dir, err := expandHome(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url: %q (must be an http or https URL)", c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}

	if c.RetryCount < 0 {
		return fmt.Errorf("retry count must be non-negative, got: %d", c.RetryCount)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative, got: %v", c.RetryDelay)
	}

	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return fmt.Errorf("invalid fee_rate: %q", c.FeeRate)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in [0, 1), got: %s", rate)
	}

	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}

	if c.SessionExpiringWindow < 0 {
		return fmt.Errorf("session expiring window must be non-negative, got: %v", c.SessionExpiringWindow)
	}

	return nil
}

// FeeRateDecimal is the validated fee rate.
func (c *Config) FeeRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return decimal.RequireFromString("0.01")
	}
	return rate
}

func (c *Config) ToLedgerConfig() ledger.Config {
	retries := c.RetryCount
	if retries == 0 {
		retries = 1
	}

	return ledger.Config{
		BaseURL:         c.APIURL,
		Timeout:         c.Timeout,
		RetryCount:      retries,
		RetryDelay:      c.RetryDelay,
		BreakerFailures: c.BreakerFailures,
		BreakerCooldown: c.BreakerCooldown,
	}
}

func IsDebugEnabled() bool {
	v := os.Getenv(EnvPrefix + "_DEBUG")
	return v == "true" || v == "1"
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
