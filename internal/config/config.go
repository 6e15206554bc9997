package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables;
// every settings key has a default, so running without a config file works.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Poll     PollConfig
	Settings Settings
	Watch    WatchConfig
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig defines the history-store connection settings. An empty URL
// means the monitor runs without durable history.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// PollConfig defines the poll cycle cadence and fetch timeout.
type PollConfig struct {
	IntervalSec    int `mapstructure:"interval_sec"`
	FetchTimeoutMS int `mapstructure:"fetch_timeout_ms"`
}

// WatchConfig lists the canonical symbols to monitor, as base assets quoted
// against a single quote currency.
type WatchConfig struct {
	QuoteAsset string   `mapstructure:"quote_asset"`
	Bases      []string `mapstructure:"bases"`
}

// Settings holds the user-tunable knobs read by the spread engine and the
// history tracker. The poller captures one Settings value per cycle and
// passes it down, so a cycle's behavior is fixed by a single snapshot.
// All percentage fields are percent values (0.10 means 0.10%).
type Settings struct {
	FeePerLeg              float64 `mapstructure:"fee_per_leg"`
	SlipPerLeg             float64 `mapstructure:"slip_per_leg"`
	OutlierPct             float64 `mapstructure:"outlier_pct"`
	NoiseFloorPct          float64 `mapstructure:"noise_floor_pct"`
	ProfitMethod           string  `mapstructure:"profit_method"`
	Threshold              float64 `mapstructure:"threshold"`
	TargetSpread           float64 `mapstructure:"target_spread"`
	WithdrawalFee          float64 `mapstructure:"withdrawal_fee"`
	DepositFee             float64 `mapstructure:"deposit_fee"`
	InterExchangeThreshold float64 `mapstructure:"inter_exchange_threshold"`
	UIThrottleMS           int     `mapstructure:"ui_throttle_ms"`
	MinHoldMS              int     `mapstructure:"min_hold_ms"`
	EnableAlerts           bool    `mapstructure:"enable_alerts"`
	AlertThreshold         float64 `mapstructure:"alert_threshold"`
	EnableSound            bool    `mapstructure:"enable_sound"`
}

// RoundTripCost is the total transaction cost of entering and exiting a
// position, in percent: one fee and one slippage allowance per leg.
func (s Settings) RoundTripCost() float64 {
	return 2*s.FeePerLeg + 2*s.SlipPerLeg
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("poll.interval_sec", 50)
	viper.SetDefault("poll.fetch_timeout_ms", 15000)

	viper.SetDefault("watch.quote_asset", "USDT")
	viper.SetDefault("watch.bases", []string{
		"BTC", "ETH", "BNB", "SOL", "XRP", "ADA", "AVAX", "DOGE",
		"MATIC", "DOT", "LINK", "UNI", "ATOM", "LTC", "TRX", "APT",
	})

	viper.SetDefault("settings.fee_per_leg", 0.10)
	viper.SetDefault("settings.slip_per_leg", 0.05)
	viper.SetDefault("settings.outlier_pct", 8.0)
	viper.SetDefault("settings.noise_floor_pct", 0.05)
	viper.SetDefault("settings.profit_method", "max")
	viper.SetDefault("settings.threshold", 0.5)
	viper.SetDefault("settings.target_spread", 0.20)
	viper.SetDefault("settings.withdrawal_fee", 0.15)
	viper.SetDefault("settings.deposit_fee", 0.0)
	viper.SetDefault("settings.inter_exchange_threshold", 0.5)
	viper.SetDefault("settings.ui_throttle_ms", 800)
	viper.SetDefault("settings.min_hold_ms", 3000)
	viper.SetDefault("settings.enable_alerts", false)
	viper.SetDefault("settings.alert_threshold", 1.0)
	viper.SetDefault("settings.enable_sound", false)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults cover every key. When a
// file is present it is watched, so externally edited settings are picked up
// by the next SettingsSnapshot.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	} else {
		viper.WatchConfig()
	}

	err = viper.Unmarshal(&config)
	return
}

// SettingsSnapshot captures the current settings once. The poller takes one
// snapshot per cycle and passes it down by value; nothing reads settings
// mid-computation.
func SettingsSnapshot() Settings {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return DefaultSettings()
	}
	return c.Settings
}

// DefaultSettings returns the documented defaults, used when the settings
// source is absent or unreadable.
func DefaultSettings() Settings {
	return Settings{
		FeePerLeg:              0.10,
		SlipPerLeg:             0.05,
		OutlierPct:             8.0,
		NoiseFloorPct:          0.05,
		ProfitMethod:           "max",
		Threshold:              0.5,
		TargetSpread:           0.20,
		WithdrawalFee:          0.15,
		DepositFee:             0.0,
		InterExchangeThreshold: 0.5,
		UIThrottleMS:           800,
		MinHoldMS:              3000,
		AlertThreshold:         1.0,
	}
}
