package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

type EdenredConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type WalletConfig struct {
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	ImportEmail string `mapstructure:"import_email"`
	APIURL      string `mapstructure:"api_url"`
	DocsURL     string `mapstructure:"docs_url"`
}

type Config struct {
	Edenred EdenredConfig `mapstructure:"edenred"`
	Wallet  WalletConfig  `mapstructure:"budgetbakers"`

	OutputDir   string        `mapstructure:"output_dir"`
	OnlyNew     bool          `mapstructure:"only_new"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	Timezone    string        `mapstructure:"timezone"`
	LogLevel    string        `mapstructure:"log_level"`
}

// config key -> environment variable
var envBindings = map[string]string{
	"edenred.host":              "EDENRED_HOST",
	"edenred.user":              "EDENRED_USER",
	"edenred.password":          "EDENRED_PASSWORD",
	"budgetbakers.user":         "BUDGETBAKERS_USER",
	"budgetbakers.password":     "BUDGETBAKERS_PASSWORD",
	"budgetbakers.import_email": "BUDGETBAKERS_IMPORT_EMAIL",
	"budgetbakers.api_url":      "BUDGETBAKERS_API_URL",
	"budgetbakers.docs_url":     "BUDGETBAKERS_DOCS_URL",
	"output_dir":                "EDENWALLET_OUTPUT_DIR",
	"only_new":                  "EDENWALLET_ONLY_NEW",
	"step_timeout":              "EDENWALLET_STEP_TIMEOUT",
	"timezone":                  "EDENWALLET_TIMEZONE",
	"log_level":                 "EDENWALLET_LOG_LEVEL",
}

// flag name -> config key
var flagBindings = map[string]string{
	"output":    "output_dir",
	"only-new":  "only_new",
	"timeout":   "step_timeout",
	"timezone":  "timezone",
	"log-level": "log_level",
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Wallet: WalletConfig{
			APIURL:  wallet.DefaultAPIURL,
			DocsURL: wallet.DefaultDocsURL,
		},
		OutputDir:   "transactions",
		OnlyNew:     true,
		StepTimeout: 30 * time.Second,
		LogLevel:    "info",
	}
}

// Build loads .env, then the config file (cfgFile, or ./config.yaml when
// present), then the environment, then the flags that were set explicitly.
// flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = gotenv.Load()

	v := viper.New()
	def := Default()
	v.SetDefault("budgetbakers.api_url", def.Wallet.APIURL)
	v.SetDefault("budgetbakers.docs_url", def.Wallet.DocsURL)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("only_new", def.OnlyNew)
	v.SetDefault("step_timeout", def.StepTimeout)
	v.SetDefault("log_level", def.LogLevel)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location is the time zone batch dates are compared in. Empty means the
// machine's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) EdenredCredentials() edenred.Credentials {
	return edenred.Credentials{Username: c.Edenred.User, Password: c.Edenred.Password}
}

func (c *Config) WalletCredentials() wallet.Credentials {
	return wallet.Credentials{Username: c.Wallet.User, Password: c.Wallet.Password}
}

// WalletOptions builds the client options for the sink API.
func (c *Config) WalletOptions() (wallet.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return wallet.Options{}, err
	}
	return wallet.Options{
		APIURL:      c.Wallet.APIURL,
		DocsURL:     c.Wallet.DocsURL,
		ImportEmail: c.Wallet.ImportEmail,
		StepTimeout: c.StepTimeout,
		Location:    loc,
	}, nil
}

func (c *Config) EdenredOptions() edenred.Options {
	return edenred.Options{StepTimeout: c.StepTimeout}
}
