package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
)

// Config is the resolved runtime configuration for M47.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	TokenSecret               string
	AllowEphemeralTokenSecret bool
	TokenTTL                  time.Duration
	EntitlementTTL            time.Duration

	Currency           string
	RazorpayKeyID      string
	RazorpaySecret     string
	PaymentHTTPTimeout time.Duration

	LoyaltyGrantSecret string

	DriveKeyFile       string
	StorageHTTPTimeout time.Duration

	Bundles []domain.Bundle
	Coupons []domain.Coupon
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Store struct {
		Currency string `yaml:"currency"`
		Bundles  []struct {
			ID       string `yaml:"id"`
			Name     string `yaml:"name"`
			FolderID string `yaml:"folder_id"`
			Price    int64  `yaml:"price"`
		} `yaml:"bundles"`
		Coupons []struct {
			Code    string `yaml:"code"`
			Percent int    `yaml:"percent"`
		} `yaml:"coupons"`
	} `yaml:"store"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "M47-Bundle-Access-Service",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		MaxDBConns:                20,
		AllowEphemeralTokenSecret: true,
		TokenTTL:                  2 * time.Hour,
		EntitlementTTL:            7200 * time.Second,
		Currency:                  "INR",
		DriveKeyFile:              "gdrive_service_account.json",
		PaymentHTTPTimeout:        8 * time.Second,
		StorageHTTPTimeout:        30 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Store.Currency != "" {
			cfg.Currency = f.Store.Currency
		}
		for _, b := range f.Store.Bundles {
			cfg.Bundles = append(cfg.Bundles, domain.Bundle{
				BundleID:  b.ID,
				Name:      b.Name,
				FolderID:  b.FolderID,
				BasePrice: b.Price,
			})
		}
		for _, c := range f.Store.Coupons {
			cfg.Coupons = append(cfg.Coupons, domain.Coupon{
				Code:    c.Code,
				Percent: c.Percent,
			})
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.TokenSecret = envOrDefault("JWT_SECRET", cfg.TokenSecret)
	cfg.AllowEphemeralTokenSecret = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralTokenSecret)
	cfg.Currency = envOrDefault("STORE_CURRENCY", cfg.Currency)
	cfg.RazorpayKeyID = envOrDefault("RAZORPAY_KEY_ID", cfg.RazorpayKeyID)
	cfg.RazorpaySecret = envOrDefault("RAZORPAY_SECRET", cfg.RazorpaySecret)
	cfg.LoyaltyGrantSecret = envOrDefault("LOYALTY_GRANT_SECRET", cfg.LoyaltyGrantSecret)
	cfg.DriveKeyFile = envOrDefault("GDRIVE_KEY_FILE", cfg.DriveKeyFile)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.TokenTTL = time.Duration(envInt("TOKEN_TTL_MINUTES", int(cfg.TokenTTL.Minutes()))) * time.Minute
	cfg.EntitlementTTL = time.Duration(envInt("ENTITLEMENT_TTL_SECONDS", int(cfg.EntitlementTTL.Seconds()))) * time.Second
	cfg.PaymentHTTPTimeout = time.Duration(envInt("PAYMENT_HTTP_TIMEOUT_SECONDS", int(cfg.PaymentHTTPTimeout.Seconds()))) * time.Second
	cfg.StorageHTTPTimeout = time.Duration(envInt("STORAGE_HTTP_TIMEOUT_SECONDS", int(cfg.StorageHTTPTimeout.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if len(cfg.Bundles) == 0 {
		return Config{}, fmt.Errorf("bundle catalog is empty")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpaySecret == "" {
		return Config{}, fmt.Errorf("missing RAZORPAY_KEY_ID or RAZORPAY_SECRET")
	}
	if cfg.TokenSecret == "" && !cfg.AllowEphemeralTokenSecret {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
