package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DispatchModeHTTP  = "http"
	DispatchModeQueue = "queue"

	defaultSignedURLTTL = 900 * time.Second
)

// Config holds every setting read from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	BaseURL     string
	LogMode     string

	WorkerBaseURL       string
	DispatchMode        string
	RedisAddr           string
	GenerateRatePerMin  int
	HealthProbeTimeout  time.Duration
	WorkerClientTimeout time.Duration

	Auth    AuthConfig
	Storage StorageConfig

	CookieSecure bool
}

// AuthConfig configures verification of authenticated sessions.
type AuthConfig struct {
	JWTSecret        string
	JWKSURL          string
	Issuer           string
	Audience         string
	TelegramBotToken string
}

// StorageConfig configures the S3 compatible bucket holding episode audio.
type StorageConfig struct {
	Endpoint     string
	Region       string
	AccessKeyID  string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	SignedURLTTL time.Duration
}

// Complete reports whether every credential needed to presign a URL is present.
func (s StorageConfig) Complete() bool {
	return s.Region != "" && s.AccessKeyID != "" && s.SecretKey != "" && s.Bucket != ""
}

// Missing lists the unset storage variables.
func (s StorageConfig) Missing() []string {
	var missing []string
	if s.Region == "" {
		missing = append(missing, "AWS_REGION")
	}
	if s.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if s.SecretKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if s.Bucket == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}
	return missing
}

// Load reads an optional .env file and then the process environment.
// The returned bool is false when no .env file could be loaded.
func Load() (Config, bool) {
	loaded := godotenv.Load() == nil

	cfg := Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		BaseURL:     strings.TrimRight(getenv("BASE_URL", ""), "/"),
		LogMode:     getenv("LOG_MODE", "dev"),

		WorkerBaseURL:       strings.TrimRight(getenv("WORKER_BASE_URL", ""), "/"),
		DispatchMode:        strings.ToLower(getenv("DISPATCH_MODE", DispatchModeHTTP)),
		RedisAddr:           getenv("REDIS_ADDR", "127.0.0.1:6379"),
		GenerateRatePerMin:  getenvInt("GENERATE_RATE_PER_MINUTE", 6),
		HealthProbeTimeout:  5 * time.Second,
		WorkerClientTimeout: getenvSeconds("WORKER_TIMEOUT_SECONDS", 30*time.Second),

		Auth: AuthConfig{
			JWTSecret:        getenv("AUTH_JWT_SECRET", ""),
			JWKSURL:          getenv("AUTH_JWKS_URL", ""),
			Issuer:           getenv("AUTH_ISSUER", ""),
			Audience:         getenv("AUTH_AUDIENCE", ""),
			TelegramBotToken: getenv("TELEGRAM_BOT_TOKEN", ""),
		},
		Storage: StorageConfig{
			Endpoint:     getenv("S3_ENDPOINT", "s3.amazonaws.com"),
			Region:       getenv("AWS_REGION", ""),
			AccessKeyID:  getenv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:    getenv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:       getenv("S3_BUCKET_NAME", getenv("S3_BUCKET", "")),
			UseSSL:       getenvBool("S3_USE_SSL", true),
			SignedURLTTL: getenvSeconds("S3_SIGNED_URL_TTL_SECONDS", defaultSignedURLTTL),
		},
		CookieSecure: getenvBool("COOKIE_SECURE", false),
	}
	return cfg, loaded
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getenvSeconds(key string, fallback time.Duration) time.Duration {
	n := getenvInt(key, 0)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
