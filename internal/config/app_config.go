package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Profile is the deployment environment. It selects the scheduling defaults.
type Profile string

// Known profiles.
const (
	ProfileDevelopment Profile = "development"
	ProfileTest        Profile = "test"
	ProfileProduction  Profile = "production"
)

// Schedule is the cadence of the notification pipeline.
type Schedule struct {
	// NotifyDelay is added to the detection time to get a notification's send time.
	NotifyDelay time.Duration
	// DetectInterval is how often the change detector runs.
	DetectInterval time.Duration
	// DeliverInterval is how often due notifications are delivered.
	DeliverInterval time.Duration
}

// profileSchedules maps each profile to its default cadence. Delivery runs
// coarser than the delay in production so edits made within the delay window
// collapse into one notification.
var profileSchedules = map[Profile]Schedule{
	ProfileProduction:  {NotifyDelay: 12 * time.Hour, DetectInterval: time.Hour, DeliverInterval: time.Hour},
	ProfileDevelopment: {NotifyDelay: 5 * time.Second, DetectInterval: time.Minute, DeliverInterval: time.Minute},
	ProfileTest:        {NotifyDelay: 5 * time.Second, DetectInterval: time.Minute, DeliverInterval: time.Minute},
}

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Env selects the scheduling profile: development, test or production.
	Env string `envconfig:"APP_ENV" default:"development"`

	// DatabaseURL is the marketplace Postgres DSN listings are read from.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// RedisURL enables the Redis snapshot store when set. Otherwise the
	// snapshot lives in process memory.
	RedisURL string `envconfig:"REDIS_URL"`

	// TelegramBotToken authenticates the Bot API client.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	// DataDir is the root data directory. Defaults to ~/.earn-bot.
	DataDir string `envconfig:"EARN_BOT_DATA_DIR"`

	// Port is the HTTP port for /health and /metrics. Defaults to 3000.
	Port int `envconfig:"APP_PORT" default:"3000"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ListingHost and UTMSource build the canonical listing link.
	ListingHost string `envconfig:"LISTING_HOST" default:"earn.superteam.fun"`
	UTMSource   string `envconfig:"UTM_SOURCE" default:"telegrambot"`

	// Optional overrides of the profile schedule.
	NotifyDelay     time.Duration `envconfig:"NOTIFY_DELAY"`
	DetectInterval  time.Duration `envconfig:"DETECT_INTERVAL"`
	DeliverInterval time.Duration `envconfig:"DELIVER_INTERVAL"`

	// SweepCron is the crontab expression of the retention sweep.
	SweepCron string `envconfig:"SWEEP_CRON" default:"0 0 * * *"`

	// Retention is how long sent notifications are kept.
	Retention time.Duration `envconfig:"RETENTION" default:"168h"`

	// SendInterval is the minimum gap between two outbound messages.
	SendInterval time.Duration `envconfig:"SEND_INTERVAL" default:"50ms"`

	// WarmSnapshot seeds the snapshot at start-up without notifying.
	WarmSnapshot bool `envconfig:"WARM_SNAPSHOT" default:"false"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.earn-bot if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".earn-bot")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values envconfig cannot check on its own.
func (c *AppConfig) Validate() error {
	var errs []error
	if _, ok := profileSchedules[c.Profile()]; !ok {
		errs = append(errs, fmt.Errorf("APP_ENV must be development, test or production, got %q", c.Env))
	}
	for name, d := range map[string]time.Duration{
		"NOTIFY_DELAY":     c.NotifyDelay,
		"DETECT_INTERVAL":  c.DetectInterval,
		"DELIVER_INTERVAL": c.DeliverInterval,
		"SEND_INTERVAL":    c.SendInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}
	if c.Retention <= 0 {
		errs = append(errs, fmt.Errorf("RETENTION must be positive, got %s", c.Retention))
	}
	if strings.TrimSpace(c.SweepCron) == "" {
		errs = append(errs, errors.New("SWEEP_CRON must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Profile returns the normalized deployment profile.
func (c *AppConfig) Profile() Profile {
	return Profile(strings.ToLower(strings.TrimSpace(c.Env)))
}

// IsProduction reports whether the production profile is active.
func (c *AppConfig) IsProduction() bool {
	return c.Profile() == ProfileProduction
}

// Schedule returns the profile cadence with any explicit overrides applied.
func (c *AppConfig) Schedule() Schedule {
	s, ok := profileSchedules[c.Profile()]
	if !ok {
		s = profileSchedules[ProfileDevelopment]
	}
	if c.NotifyDelay > 0 {
		s.NotifyDelay = c.NotifyDelay
	}
	if c.DetectInterval > 0 {
		s.DetectInterval = c.DetectInterval
	}
	if c.DeliverInterval > 0 {
		s.DeliverInterval = c.DeliverInterval
	}
	return s
}

// RequireDatabase returns an error when DATABASE_URL is missing.
func (c *AppConfig) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// RequireTelegram returns an error when TELEGRAM_BOT_TOKEN is missing.
func (c *AppConfig) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.earn-bot/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DatabasePath returns the path to the bot's SQLite database.
func (c *AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "earn-bot.db")
}
