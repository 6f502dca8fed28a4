// Package config reads process configuration from the environment, an
// optional .env file and an optional TOML rates file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/arbr39/kaizen/internal/domain"
)

// Schedule holds the cron specs for reminders, the weekly report and the
// penalty job.
type Schedule struct {
	Morning string
	Evening string
	Weekly  string
	Monthly string
	Report  string
	Penalty string
}

// Config holds everything the kaizen binary needs to wire itself.
type Config struct {
	DatabasePath string
	HTTPAddr     string
	DiscordToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionIdle   time.Duration

	Timezone string
	Location *time.Location
	Schedule Schedule

	RatesFile string
	Rates     domain.Rates

	CalendarCredentials string
	CalendarID          string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns the built-in defaults. The database lives under
// ~/.kaizen unless KAIZEN_DB says otherwise.
func DefaultConfig() Config {
	dbPath := "kaizen.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".kaizen", "kaizen.db")
	}
	return Config{
		DatabasePath: dbPath,
		SessionIdle:  30 * time.Minute,
		Timezone:     "UTC",
		Location:     time.UTC,
		Schedule: Schedule{
			Morning: "0 7 * * *",
			Evening: "0 22 * * *",
			Weekly:  "0 18,20 * * 0",
			Monthly: "0 10 1 * *",
			Report:  "0 20 * * 0",
			Penalty: "30 6 * * *",
		},
		Rates:      domain.Rates{},
		CalendarID: "primary",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads .env (when present) and the environment on top of the
// defaults. Malformed numbers and durations keep their defaults; an unknown
// timezone or a bad rates file is an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	setString(&cfg.DatabasePath, "KAIZEN_DB")
	setString(&cfg.HTTPAddr, "KAIZEN_HTTP_ADDR")
	setString(&cfg.DiscordToken, "DISCORD_BOT_TOKEN")
	setString(&cfg.RedisAddr, "KAIZEN_REDIS_ADDR")
	setString(&cfg.RedisPassword, "KAIZEN_REDIS_PASSWORD")
	if v := os.Getenv("KAIZEN_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	if v := os.Getenv("KAIZEN_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionIdle = d
		}
	}
	setString(&cfg.Timezone, "KAIZEN_TIMEZONE")
	setString(&cfg.Schedule.Morning, "KAIZEN_MORNING_CRON")
	setString(&cfg.Schedule.Evening, "KAIZEN_EVENING_CRON")
	setString(&cfg.Schedule.Weekly, "KAIZEN_WEEKLY_CRON")
	setString(&cfg.Schedule.Monthly, "KAIZEN_MONTHLY_CRON")
	setString(&cfg.Schedule.Report, "KAIZEN_REPORT_CRON")
	setString(&cfg.Schedule.Penalty, "KAIZEN_PENALTY_CRON")
	setString(&cfg.RatesFile, "KAIZEN_RATES_FILE")
	setString(&cfg.CalendarCredentials, "GOOGLE_CALENDAR_CREDENTIALS")
	setString(&cfg.CalendarID, "GOOGLE_CALENDAR_ID")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("KAIZEN_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.RatesFile != "" {
		rates, err := LoadRates(cfg.RatesFile)
		if err != nil {
			return cfg, err
		}
		cfg.Rates = rates
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

type ratesFile struct {
	Rates map[string]int64 `toml:"rates"`
}

// LoadRates reads operator rate overrides from a TOML file:
//
//	[rates]
//	morning_kaizen = 60
//	streak_bonus = 15
func LoadRates(path string) (domain.Rates, error) {
	var f ratesFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("reading rates file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("rates file %s: unknown key %s", path, undecoded[0])
	}
	rates := make(domain.Rates, len(f.Rates))
	for k, v := range f.Rates {
		rates[domain.Trigger(k)] = v
	}
	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("rates file %s: %w", path, err)
	}
	return rates, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
