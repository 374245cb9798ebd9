package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command, merged
// from flags, environment variables, and an optional config file.
type SimulateConfig struct {
	Ops          string
	Out          string
	PGDSN        string
	BatchSize    int
	StartTime    uint64
	QuoteAddress string
	VarAddress   string
	Treasury     string

	VirtualQuote       string
	BootstrapQuote     string
	InitialQuote       string
	ShareMatch         string
	MinCollectableFees string
	TransferFeeBps     int64

	LogLevel string
}

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	VirtualQuote    string
	BootstrapQuote  string
	ShareMatch      string
	ReserveQuote    string
	ReserveVariable string
	AmountIn        string
	Side            string
	LogLevel        string
}

// LoadSimulate merges config file, environment variables, and flags.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SimulateConfig{}, err
	}

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("batch-size", 100)
	v.SetDefault("quote-address", "0x0000000000000000000000000000000000000001")
	v.SetDefault("var-address", "0x0000000000000000000000000000000000000002")
	v.SetDefault("treasury", "0x0000000000000000000000000000000000000003")
	v.SetDefault("min-collectable-fees", "0")
	v.SetDefault("log-level", "info")

	cfg := SimulateConfig{
		Ops:                v.GetString("ops"),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		BatchSize:          v.GetInt("batch-size"),
		StartTime:          v.GetUint64("start-time"),
		QuoteAddress:       v.GetString("quote-address"),
		VarAddress:         v.GetString("var-address"),
		Treasury:           v.GetString("treasury"),
		VirtualQuote:       v.GetString("virtual-quote"),
		BootstrapQuote:     v.GetString("bootstrap-quote"),
		InitialQuote:       v.GetString("initial-quote"),
		ShareMatch:         v.GetString("share-match"),
		MinCollectableFees: v.GetString("min-collectable-fees"),
		TransferFeeBps:     v.GetInt64("transfer-fee-bps"),
		LogLevel:           v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadQuote merges config file, environment variables, and flags.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QuoteConfig{}, err
	}

	v.SetDefault("side", "buy")
	v.SetDefault("log-level", "info")

	cfg := QuoteConfig{
		VirtualQuote:    v.GetString("virtual-quote"),
		BootstrapQuote:  v.GetString("bootstrap-quote"),
		ShareMatch:      v.GetString("share-match"),
		ReserveQuote:    v.GetString("reserve-quote"),
		ReserveVariable: v.GetString("reserve-variable"),
		AmountIn:        v.GetString("amount-in"),
		Side:            v.GetString("side"),
		LogLevel:        v.GetString("log-level"),
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
