package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the settlement service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string
	Env       string

	HTTPPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	WorkspaceID string

	IPWhitelistEnabled bool
	BankingAllowedIPs  []string
	BankingSecret      string
	BlockchainSecret   string
	BlockchainProvider string

	ReceivingWallet string
	TokenAddress    string
	ChainRPCURL     string
	ChainNetwork    string
	ChainRPCTimeout time.Duration
	VNDPerUSDT      float64

	WebhookRateLimit  int
	WebhookRateWindow time.Duration

	S3Bucket  string
	AWSRegion string

	EmailHost    string
	EmailPort    int
	EmailUser    string
	EmailPass    string
	EmailFrom    string
	EmailTimeout time.Duration
}

// IsProduction reports whether the service runs with production guarantees.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		Env      string `yaml:"env"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Payments struct {
		WorkspaceID     string  `yaml:"workspace_id"`
		ReceivingWallet string  `yaml:"receiving_wallet"`
		TokenAddress    string  `yaml:"token_address"`
		ChainRPCURL     string  `yaml:"chain_rpc_url"`
		ChainNetwork    string  `yaml:"chain_network"`
		VNDPerUSDT      float64 `yaml:"vnd_per_usdt"`
	} `yaml:"payments"`
	Delivery struct {
		S3Bucket  string `yaml:"s3_bucket"`
		AWSRegion string `yaml:"aws_region"`
	} `yaml:"delivery"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:         "DGX-Settlement-Service",
		Env:               "development",
		HTTPPort:          8080,
		MaxDBConns:        20,
		ChainNetwork:      "bsc",
		ChainRPCTimeout:   15 * time.Second,
		VNDPerUSDT:        26000,
		WebhookRateLimit:  60,
		WebhookRateWindow: time.Minute,
		AWSRegion:         "ap-southeast-1",
		EmailPort:         587,
		EmailTimeout:      15 * time.Second,
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
		if f.Service.Env != "" {
			cfg.Env = f.Service.Env
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Payments.WorkspaceID != "" {
			cfg.WorkspaceID = f.Payments.WorkspaceID
		}
		if f.Payments.ReceivingWallet != "" {
			cfg.ReceivingWallet = f.Payments.ReceivingWallet
		}
		if f.Payments.TokenAddress != "" {
			cfg.TokenAddress = f.Payments.TokenAddress
		}
		if f.Payments.ChainRPCURL != "" {
			cfg.ChainRPCURL = f.Payments.ChainRPCURL
		}
		if f.Payments.ChainNetwork != "" {
			cfg.ChainNetwork = f.Payments.ChainNetwork
		}
		if f.Payments.VNDPerUSDT > 0 {
			cfg.VNDPerUSDT = f.Payments.VNDPerUSDT
		}
		if f.Delivery.S3Bucket != "" {
			cfg.S3Bucket = f.Delivery.S3Bucket
		}
		if f.Delivery.AWSRegion != "" {
			cfg.AWSRegion = f.Delivery.AWSRegion
		}
	}

	cfg.Env = envOrDefault("APP_ENV", cfg.Env)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.WorkspaceID = envOrDefault("DEFAULT_WORKSPACE_ID", cfg.WorkspaceID)

	cfg.IPWhitelistEnabled = envBool("ENABLE_IP_WHITELIST", cfg.IPWhitelistEnabled)
	cfg.BankingAllowedIPs = envCSV("BANKING_WEBHOOK_ALLOWED_IPS", cfg.BankingAllowedIPs)
	cfg.BankingSecret = envOrDefault("BANKING_WEBHOOK_SECRET", cfg.BankingSecret)
	cfg.BlockchainSecret = envOrDefault("BLOCKCHAIN_WEBHOOK_SECRET", cfg.BlockchainSecret)
	cfg.BlockchainProvider = envOrDefault("BLOCKCHAIN_WEBHOOK_PROVIDER", cfg.BlockchainProvider)

	cfg.ReceivingWallet = envOrDefault("DGNX_USDT_WALLET", cfg.ReceivingWallet)
	cfg.TokenAddress = envOrDefault("USDT_TOKEN_ADDRESS", cfg.TokenAddress)
	cfg.ChainRPCURL = envOrDefault("USDT_RPC_URL", cfg.ChainRPCURL)
	cfg.ChainNetwork = envOrDefault("USDT_NETWORK", cfg.ChainNetwork)
	cfg.ChainRPCTimeout = time.Duration(envInt("USDT_RPC_TIMEOUT_SECONDS", int(cfg.ChainRPCTimeout.Seconds()))) * time.Second
	cfg.VNDPerUSDT = envFloat("VND_PER_USDT", cfg.VNDPerUSDT)

	cfg.WebhookRateLimit = envInt("WEBHOOK_RATE_LIMIT", cfg.WebhookRateLimit)
	cfg.WebhookRateWindow = time.Duration(envInt("WEBHOOK_RATE_WINDOW_SECONDS", int(cfg.WebhookRateWindow.Seconds()))) * time.Second

	cfg.S3Bucket = envOrDefault("AWS_S3_BUCKET_NAME", cfg.S3Bucket)
	cfg.AWSRegion = envOrDefault("AWS_REGION", cfg.AWSRegion)

	cfg.EmailHost = envOrDefault("EMAIL_HOST", cfg.EmailHost)
	cfg.EmailPort = envInt("EMAIL_PORT", cfg.EmailPort)
	cfg.EmailUser = envOrDefault("EMAIL_USER", cfg.EmailUser)
	cfg.EmailPass = envOrDefault("EMAIL_PASS", cfg.EmailPass)
	cfg.EmailFrom = envOrDefault("EMAIL_FROM", cfg.EmailFrom)
	cfg.EmailTimeout = time.Duration(envInt("EMAIL_TIMEOUT_SECONDS", int(cfg.EmailTimeout.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DATABASE_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	// Webhook secrets are mandatory in production. In development an empty
	// secret drops the guard into pass-through mode, which is logged loudly.
	if cfg.IsProduction() {
		if cfg.BankingSecret == "" {
			return Config{}, fmt.Errorf("missing BANKING_WEBHOOK_SECRET in production")
		}
		if cfg.BlockchainSecret == "" {
			return Config{}, fmt.Errorf("missing BLOCKCHAIN_WEBHOOK_SECRET in production")
		}
	} else {
		if cfg.BankingSecret == "" || cfg.BlockchainSecret == "" {
			slog.Default().Warn("webhook secret not set, signature guard runs in dev pass-through",
				"module", "bootstrap",
				"layer", "app",
				"operation", "load_config",
				"outcome", "degraded",
			)
		}
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

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
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

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
