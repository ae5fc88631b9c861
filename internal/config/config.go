package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pauljones0/artist-push-bot/internal/validator"
)

// Source strategy names accepted by SOURCE_MODE.
const (
	SourceInstagram = "instagram"
	SourceBrowser   = "browser"
	SourceMock      = "mock"
)

type Config struct {
	Port             string `validate:"required"`
	Accounts         []string
	PollInterval     time.Duration `validate:"min=1s"`
	FetchTimeout     time.Duration `validate:"min=1s"`
	FetchConcurrency int           `validate:"gte=1"`
	FeedCap          int           `validate:"gte=1"`
	LedgerAccountCap int           `validate:"gte=1"`

	SourceMode         string `validate:"oneof=instagram browser mock"`
	SourceMockFallback bool

	EmailHost         string
	EmailPort         int `validate:"gte=0,lte=65535"`
	EmailUser         string
	EmailPass         string
	NotificationEmail string `validate:"omitempty,email"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", "3000"),
		FetchConcurrency:  5,
		FeedCap:           50,
		LedgerAccountCap:  500,
		SourceMode:        envOr("SOURCE_MODE", SourceInstagram),
		EmailHost:         os.Getenv("EMAIL_HOST"),
		EmailPort:         587,
		EmailUser:         os.Getenv("EMAIL_USER"),
		EmailPass:         os.Getenv("EMAIL_PASS"),
		NotificationEmail: os.Getenv("NOTIFICATION_EMAIL"),
	}

	var err error
	if cfg.PollInterval, err = durationOr("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = durationOr("FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = intOr("FETCH_CONCURRENCY", cfg.FetchConcurrency); err != nil {
		return nil, err
	}
	if cfg.FeedCap, err = intOr("FEED_CAP", cfg.FeedCap); err != nil {
		return nil, err
	}
	if cfg.LedgerAccountCap, err = intOr("LEDGER_ACCOUNT_CAP", cfg.LedgerAccountCap); err != nil {
		return nil, err
	}
	if cfg.EmailPort, err = intOr("EMAIL_PORT", cfg.EmailPort); err != nil {
		return nil, err
	}
	if v := os.Getenv("SOURCE_MOCK_FALLBACK"); v != "" {
		if cfg.SourceMockFallback, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid SOURCE_MOCK_FALLBACK %q: %w", v, err)
		}
	}

	cfg.Accounts = parseAccounts(os.Getenv("INSTAGRAM_ACCOUNTS"))

	if cfg.EmailHost == "" || cfg.EmailUser == "" || cfg.NotificationEmail == "" {
		slog.Warn("Email not fully configured, notifications will be skipped")
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseAccounts splits the comma-separated seed list, ignoring blanks and the
// "username" placeholder left by an uncustomized .env.
func parseAccounts(raw string) []string {
	if raw == "" || strings.Contains(raw, "username") {
		return nil
	}
	var accounts []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
