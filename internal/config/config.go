package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RemoteURL     string
	DataPath      string
	Location      *time.Location
	HTTPAddr      string
	LogLevel      string
	Env           string // dev|prod
	SentryDSN     string
	RemoteTimeout time.Duration
	ProbeInterval time.Duration
	SeedSample    bool

	// дайджест в Telegram; пустой токен — выключен
	BotToken       string
	DigestChatID   int64
	DigestInterval time.Duration

	SheetStore SheetStoreConfig
}

type SheetStoreConfig struct {
	Addr        string
	Backend     string // xlsx|postgres
	XLSXPath    string
	DatabaseURL string
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tz := getenv("TZ", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	var errs []error
	remoteTimeout, err := durationEnv("REMOTE_TIMEOUT", 15*time.Second)
	errs = append(errs, err)
	probe, err := durationEnv("SYNC_PROBE_INTERVAL", 30*time.Second)
	errs = append(errs, err)
	digestEvery, err := durationEnv("DIGEST_INTERVAL", 24*time.Hour)
	errs = append(errs, err)
	seed, err := boolEnv("SEED_SAMPLE", false)
	errs = append(errs, err)
	chatID, err := int64Env("DIGEST_CHAT_ID")
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg := &Config{
		RemoteURL:      strings.TrimSpace(os.Getenv("REMOTE_URL")),
		DataPath:       getenv("DATA_PATH", "./data/attendance.db"),
		Location:       loc,
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Env:            getenv("ENV", "dev"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		RemoteTimeout:  remoteTimeout,
		ProbeInterval:  probe,
		SeedSample:     seed,
		BotToken:       os.Getenv("BOT_TOKEN"),
		DigestChatID:   chatID,
		DigestInterval: digestEvery,
		SheetStore: SheetStoreConfig{
			Addr:        getenv("SHEETSTORE_ADDR", ":8090"),
			Backend:     strings.ToLower(getenv("SHEETSTORE_BACKEND", "xlsx")),
			XLSXPath:    getenv("SHEETSTORE_XLSX", "./data/remote.xlsx"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}
	return cfg, nil
}

// DigestEnabled — настроены и токен, и чат.
func (c *Config) DigestEnabled() bool {
	return c.BotToken != "" && c.DigestChatID != 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func boolEnv(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func int64Env(k string) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad id %q: %w", k, v, err)
	}
	return n, nil
}
