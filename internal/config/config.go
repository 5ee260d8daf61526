package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the bot needs at runtime. Policy values default
// to the store's standing rules and can be overridden per deployment.
type Config struct {
	BotToken string
	AdminIDs []int64
	GroupID  int64

	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// QRIS payment provider.
	QRISBaseURL    string
	QRISMerchantID string
	QRISAPIKey     string
	QRISQRString   string
	StoreName      string

	CommissionRate      float64
	GoldThreshold       int64
	PlatinumThreshold   int64
	ResellerUpgradeCost int64
	MinimumTopup        int64

	DepositExpiry     time.Duration
	ReconcileInterval time.Duration
	ProvisionTimeout  time.Duration
	TrialDuration     time.Duration

	TrialLimitUser     int
	TrialLimitReseller int
}

func Load() (*Config, error) {
	cfg := &Config{
		BotToken:      strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		GroupID:       envInt64("GROUP_ID", 0),
		PostgresDSN:   strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(envInt64("REDIS_DB", 0)),

		QRISBaseURL:    envString("QRIS_BASE_URL", "https://gateway.okeconnect.com"),
		QRISMerchantID: strings.TrimSpace(os.Getenv("QRIS_MERCHANT_ID")),
		QRISAPIKey:     strings.TrimSpace(os.Getenv("QRIS_API_KEY")),
		QRISQRString:   strings.TrimSpace(os.Getenv("QRIS_QR_STRING")),
		StoreName:      envString("STORE_NAME", "Pertamax98 Store"),

		CommissionRate:      envFloat("COMMISSION_RATE", 0.10),
		GoldThreshold:       envInt64("GOLD_THRESHOLD", 50000),
		PlatinumThreshold:   envInt64("PLATINUM_THRESHOLD", 80000),
		ResellerUpgradeCost: envInt64("RESELLER_UPGRADE_COST", 50000),
		MinimumTopup:        envInt64("MINIMUM_TOPUP", 5000),

		DepositExpiry:     envDuration("DEPOSIT_EXPIRY", 5*time.Minute),
		ReconcileInterval: envDuration("RECONCILE_INTERVAL", 10*time.Second),
		ProvisionTimeout:  envDuration("PROVISION_TIMEOUT", 35*time.Second),
		TrialDuration:     envDuration("TRIAL_DURATION", 60*time.Minute),

		TrialLimitUser:     int(envInt64("TRIAL_LIMIT_USER", 1)),
		TrialLimitReseller: int(envInt64("TRIAL_LIMIT_RESELLER", 10)),
	}

	for _, part := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad admin id %q: %w", part, err)
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
