// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	PublicBaseURL   string        `yaml:"public_base_url"` // used to build training webhook URLs
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type WebhookConfig struct {
	PaymentSecret  string        `yaml:"payment_secret"`  // whsec_<base64>
	TrainingSecret string        `yaml:"training_secret"` // whsec_<base64>
	Tolerance      time.Duration `yaml:"tolerance"`
}

type UsageConfig struct {
	FreePlanName     string        `yaml:"free_plan_name"`
	RateLimit        int           `yaml:"rate_limit"` // requests per window per user
	RateWindow       time.Duration `yaml:"rate_window"`
	MaxPromptTokens  int           `yaml:"max_prompt_tokens"`
	ImagesPerRequest int           `yaml:"images_per_request"`
}

type OutboundConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type ImageGenConfig struct {
	Provider       string `yaml:"provider"` // openai | gemini | replicate
	OpenAIKey      string `yaml:"openai_key"`
	OpenAIModel    string `yaml:"openai_model"`
	GeminiKey      string `yaml:"gemini_key"`
	GeminiURL      string `yaml:"gemini_url"`
	GeminiModel    string `yaml:"gemini_model"`
	ReplicateModel string `yaml:"replicate_model"` // owner/name of the hosted base model
	MaxConcurrent  int    `yaml:"max_concurrent"`
}

type TrainingConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TrainerVersion string `yaml:"trainer_version"` // owner/model/versions/<id>
	Destination    string `yaml:"destination"`     // owner/model that receives trained weights
}

type BillingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	ReturnURL string `yaml:"return_url"` // where checkout sends the user back
}

type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

type NotifyConfig struct {
	Workers  int            `yaml:"workers"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Usage    UsageConfig    `yaml:"usage"`
	Outbound OutboundConfig `yaml:"outbound"`
	ImageGen ImageGenConfig `yaml:"image_gen"`
	Training TrainingConfig `yaml:"training"`
	Billing  BillingConfig  `yaml:"billing"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies env overrides and defaults, and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Webhook.PaymentSecret == "" {
		return nil, errors.New("webhook.payment_secret is required")
	}
	if cfg.Webhook.TrainingSecret == "" {
		return nil, errors.New("webhook.training_secret is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"DATABASE_URL", &cfg.Database.URL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"PAYMENT_WEBHOOK_SECRET", &cfg.Webhook.PaymentSecret},
		{"TRAINING_WEBHOOK_SECRET", &cfg.Webhook.TrainingSecret},
		{"JWT_SECRET", &cfg.Auth.JWTSecret},
		{"ADMIN_API_KEY", &cfg.Auth.AdminAPIKey},
		{"OPENAI_API_KEY", &cfg.ImageGen.OpenAIKey},
		{"GEMINI_API_KEY", &cfg.ImageGen.GeminiKey},
		{"TRAINING_API_TOKEN", &cfg.Training.APIToken},
		{"BILLING_API_KEY", &cfg.Billing.APIKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 100 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Webhook.Tolerance <= 0 {
		cfg.Webhook.Tolerance = 5 * time.Minute
	}
	if cfg.Usage.FreePlanName == "" {
		cfg.Usage.FreePlanName = "free"
	}
	if cfg.Usage.RateLimit <= 0 {
		cfg.Usage.RateLimit = 30
	}
	if cfg.Usage.RateWindow <= 0 {
		cfg.Usage.RateWindow = time.Minute
	}
	if cfg.Usage.MaxPromptTokens <= 0 {
		cfg.Usage.MaxPromptTokens = 1000
	}
	if cfg.Usage.ImagesPerRequest <= 0 {
		cfg.Usage.ImagesPerRequest = 1
	}
	if cfg.Outbound.Timeout <= 0 {
		cfg.Outbound.Timeout = 30 * time.Second
	}
	if cfg.Outbound.MaxRetries <= 0 {
		cfg.Outbound.MaxRetries = 3
	}
	if cfg.ImageGen.Provider == "" {
		cfg.ImageGen.Provider = "openai"
	}
	if cfg.ImageGen.OpenAIModel == "" {
		cfg.ImageGen.OpenAIModel = "dall-e-3"
	}
	if cfg.ImageGen.GeminiModel == "" {
		cfg.ImageGen.GeminiModel = "imagen-3.0-generate-002"
	}
	if cfg.ImageGen.ReplicateModel == "" {
		cfg.ImageGen.ReplicateModel = "black-forest-labs/flux-schnell"
	}
	if cfg.ImageGen.MaxConcurrent <= 0 {
		cfg.ImageGen.MaxConcurrent = 8
	}
	if cfg.Training.BaseURL == "" {
		cfg.Training.BaseURL = "https://api.replicate.com/v1"
	}
	if cfg.Billing.BaseURL == "" {
		cfg.Billing.BaseURL = "https://live.dodopayments.com"
	}
	if cfg.Billing.ReturnURL == "" && cfg.Server.PublicBaseURL != "" {
		cfg.Billing.ReturnURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/dashboard"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.Email.Port == 0 {
		cfg.Notify.Email.Port = 587
	}
}
