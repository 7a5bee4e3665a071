// Package config loads the broker's settings once at boot into an
// immutable Configuration tree (§6 "Configuration"). There is no hot
// reload: a settings change is a restart, per DESIGN NOTES' replacement of
// the source's module-level settings singleton with an injected aggregate.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vpnbroker/broker/internal/types"
	"github.com/vpnbroker/broker/internal/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Panel      PanelConfig      `validate:"required"`
	Pricing    PricingConfig    `validate:"required"`
	Scheduler  SchedulerConfig  `validate:"required"`
	Payments   PaymentsConfig   `validate:"omitempty"`
	Telegram   TelegramConfig   `validate:"omitempty"`
	Cache      CacheConfig      `validate:"omitempty"`
	Notify     NotifyConfig     `validate:"omitempty"`
	Checkout   CheckoutConfig   `validate:"omitempty"`
	LuckyGame  LuckyGameConfig  `validate:"omitempty"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode" validate:"required"` // "local" | "staging" | "production"
}

type ServerConfig struct {
	WebhookAddress string `mapstructure:"webhook_address" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required"`
	// Dir is where log_rotation (§4.7) finds the per-level log files to
	// archive; empty disables rotation entirely (stdout-only deployments).
	Dir string `mapstructure:"dir"`
}

// PanelConfig configures the upstream VPN control-plane client (C3).
type PanelConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required"`
	BearerToken    string        `mapstructure:"bearer_token" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" default:"10s"`
	MaxRetries     int           `mapstructure:"max_retries" default:"3"`
	TrialSquadUUID string        `mapstructure:"trial_squad_uuid" validate:"required"`
}

// PricingConfig holds every constant the Pricing Engine (C1) reads — never
// mutated at runtime, never cached as a package-level global (DESIGN NOTES).
type PricingConfig struct {
	PeriodPrices          map[int]types.Kopeks `mapstructure:"period_prices" validate:"required"`
	TrafficPrices         map[int]types.Kopeks `mapstructure:"traffic_prices" validate:"required"`
	PricePerDevice        types.Kopeks         `mapstructure:"price_per_device"`
	DefaultDeviceLimit    int                  `mapstructure:"default_device_limit" default:"3"`
	MaxDevicesLimit       int                  `mapstructure:"max_devices_limit" default:"20"`
	ResetTrafficFeePeriod int                  `mapstructure:"reset_traffic_fee_period" default:"30"`

	TrialDurationDays int `mapstructure:"trial_duration_days" default:"3"`
	TrialTrafficGB    int `mapstructure:"trial_traffic_gb" default:"10"`
	TrialDeviceLimit  int `mapstructure:"trial_device_limit" default:"2"`
}

// SchedulerConfig holds the cadence for every Scheduler Fleet worker (C7).
type SchedulerConfig struct {
	ExpiryNotifierInterval   time.Duration `mapstructure:"expiry_notifier_interval" default:"15m"`
	AutopayInterval          time.Duration `mapstructure:"autopay_interval" default:"1h"`
	TrialCleanupInterval     time.Duration `mapstructure:"trial_cleanup_interval" default:"1h"`
	ReportDispatchLocalTime  string        `mapstructure:"report_dispatch_local_time" default:"09:00"`
	LogRotationLocalTime     string        `mapstructure:"log_rotation_local_time" default:"00:00"`
	LogRetentionDays         int           `mapstructure:"log_retention_days" default:"30"`
	ReceiptDrainInterval     time.Duration `mapstructure:"receipt_drain_interval" default:"5m"`
	ReceiptMaxAttempts       int           `mapstructure:"receipt_max_attempts" default:"10"`
	MaintenanceWatchInterval time.Duration `mapstructure:"maintenance_watch_interval" default:"1m"`
	TrialExpiredGraceHours   int           `mapstructure:"trial_expired_grace_hours" default:"1"`
	AutopayWarningDays       []int         `mapstructure:"autopay_warning_days"`
}

type PaymentsConfig struct {
	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	StarsEnabled        bool   `mapstructure:"stars_enabled" default:"true"`
}

// NotifyConfig configures the Notification Bus' (C8) outbound channels.
type NotifyConfig struct {
	Svix SvixConfig `mapstructure:"svix"`
}

// SvixConfig configures the Svix-backed external webhook fan-out channel,
// grounded on the teacher's internal/svix client.
type SvixConfig struct {
	Enabled       bool   `mapstructure:"enabled" default:"false"`
	BaseURL       string `mapstructure:"base_url"`
	AuthToken     string `mapstructure:"auth_token"`
	ApplicationID string `mapstructure:"application_id"`
}

// LuckyGameConfig configures the wallet-funded mini-game supplement
// (§4.12), gated on an active subscription and limited to one play per
// user per day.
type LuckyGameConfig struct {
	Enabled            bool         `mapstructure:"enabled" default:"true"`
	MinStakeKopeks     types.Kopeks `mapstructure:"min_stake_kopeks" default:"1000"`
	MaxStakeKopeks     types.Kopeks `mapstructure:"max_stake_kopeks" default:"50000"`
	WinProbabilityPct  int          `mapstructure:"win_probability_pct" default:"30"`
	WinMultiplier      int          `mapstructure:"win_multiplier" default:"3"`
}

// CheckoutConfig configures the Checkout Orchestrator's (C5) draft
// persistence (§3 "CheckoutDraft": "TTL: days").
type CheckoutConfig struct {
	DraftTTL time.Duration `mapstructure:"draft_ttl" default:"72h"`
}

type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	AdminChannelID int64  `mapstructure:"admin_channel_id"`
}

type CacheConfig struct {
	Enabled             bool          `mapstructure:"enabled" default:"true"`
	AvailableServersTTL time.Duration `mapstructure:"available_servers_ttl" default:"30s"`
}

// NewConfig loads configuration from ./config/config.yaml (or
// ./internal/config), overlaying BROKER_-prefixed environment variables,
// matching the teacher's viper + godotenv bootstrap.
func NewConfig() (*Configuration, error) {
	v := viper.New()

	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("BROKER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}

// GetDefaultConfig returns sane defaults for tests and local scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "local"},
		Server:     ServerConfig{WebhookAddress: ":8080"},
		Logging:    LoggingConfig{Level: "debug", Dir: ""},
		Panel: PanelConfig{
			BaseURL:        "http://localhost:8000",
			BearerToken:    "dev",
			RequestTimeout: 10 * time.Second,
			MaxRetries:     3,
			TrialSquadUUID: "trial-sq-1",
		},
		Pricing: PricingConfig{
			PeriodPrices: map[int]types.Kopeks{
				14: 59000, 30: 99000, 60: 179000, 90: 269000, 180: 449000, 360: 799000,
			},
			TrafficPrices: map[int]types.Kopeks{
				0: 0, 50: 10000, 100: 15000, 250: 25000, 500: 40000,
			},
			PricePerDevice:        20000,
			DefaultDeviceLimit:    3,
			MaxDevicesLimit:       20,
			ResetTrafficFeePeriod: 30,
			TrialDurationDays:     3,
			TrialTrafficGB:        10,
			TrialDeviceLimit:      2,
		},
		Scheduler: SchedulerConfig{
			ExpiryNotifierInterval:   15 * time.Minute,
			AutopayInterval:          time.Hour,
			TrialCleanupInterval:     time.Hour,
			ReportDispatchLocalTime:  "09:00",
			LogRotationLocalTime:     "00:00",
			LogRetentionDays:         30,
			ReceiptDrainInterval:     5 * time.Minute,
			ReceiptMaxAttempts:       10,
			MaintenanceWatchInterval: time.Minute,
			TrialExpiredGraceHours:   1,
			AutopayWarningDays:       []int{1, 3, 7},
		},
		Cache:    CacheConfig{Enabled: true, AvailableServersTTL: 30 * time.Second},
		Notify:   NotifyConfig{Svix: SvixConfig{Enabled: false}},
		Checkout: CheckoutConfig{DraftTTL: 72 * time.Hour},
		LuckyGame: LuckyGameConfig{
			Enabled: true, MinStakeKopeks: 1000, MaxStakeKopeks: 50000,
			WinProbabilityPct: 30, WinMultiplier: 3,
		},
	}
}
