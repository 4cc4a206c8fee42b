package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	HTTPPort string

	// Daraja credentials.
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortcode      string
	MpesaPasskey        string
	MpesaCallbackURL    string
	MpesaBaseURL        string

	// Outbound mail account.
	SMTPHost  string
	SMTPPort  int
	EmailUser string
	EmailPass string
	AdminTo   string
	AdminCC   string

	// Gated content.
	PublicBaseURL string
	ContentDir    string
	EbookFile     string
	TokenTTL      time.Duration

	// Optional external token store / limiter backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables. Provider and mail
// credentials are required; everything else has a default.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:            getEnv("PORT", "5000"),
		MpesaConsumerKey:    strings.TrimSpace(os.Getenv("MPESA_CONSUMER_KEY")),
		MpesaConsumerSecret: strings.TrimSpace(os.Getenv("MPESA_CONSUMER_SECRET")),
		MpesaShortcode:      strings.TrimSpace(os.Getenv("MPESA_SHORTCODE")),
		MpesaPasskey:        strings.TrimSpace(os.Getenv("MPESA_PASSKEY")),
		MpesaCallbackURL:    strings.TrimSpace(os.Getenv("MPESA_CALLBACK_URL")),
		MpesaBaseURL:        getEnv("MPESA_BASE_URL", "https://api.safaricom.co.ke"),
		SMTPHost:            getEnv("SMTP_HOST", "mail.cidalitravel.com"),
		SMTPPort:            getInt("SMTP_PORT", 465),
		EmailUser:           strings.TrimSpace(os.Getenv("EMAIL_USER")),
		EmailPass:           os.Getenv("EMAIL_PASS"),
		AdminTo:             getEnv("ADMIN_EMAIL", "info@cidalitravel.com"),
		AdminCC:             getEnv("ADMIN_CC", "zekele.enterprise@gmail.com"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:5000"),
		ContentDir:          getEnv("CONTENT_DIR", "public"),
		EbookFile:           getEnv("EBOOK_FILE", "Born_Too_Soon.pdf"),
		TokenTTL:            getDuration("TOKEN_TTL", 30*time.Minute),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getInt("REDIS_DB", 0),
	}

	required := []struct {
		key, val string
	}{
		{"MPESA_CONSUMER_KEY", cfg.MpesaConsumerKey},
		{"MPESA_CONSUMER_SECRET", cfg.MpesaConsumerSecret},
		{"MPESA_SHORTCODE", cfg.MpesaShortcode},
		{"MPESA_PASSKEY", cfg.MpesaPasskey},
		{"MPESA_CALLBACK_URL", cfg.MpesaCallbackURL},
		{"EMAIL_USER", cfg.EmailUser},
		{"EMAIL_PASS", cfg.EmailPass},
	}
	for _, r := range required {
		if r.val == "" {
			return Config{}, fmt.Errorf("%s is required", r.key)
		}
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
