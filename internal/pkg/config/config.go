package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Timezone   string           `yaml:"timezone"`
	TeamsFile  string           `yaml:"teams_file" env:"TEAMS_FILE"`
	Scoreboard ScoreboardConfig `yaml:"scoreboard"`
	Odds       OddsConfig       `yaml:"odds"`
	Polling    PollingConfig    `yaml:"polling"`
	Storage    StorageConfig    `yaml:"storage"`
	Notify     NotifyConfig     `yaml:"notify"`
	Logging    LoggingConfig    `yaml:"logging"`
	Health     HealthConfig     `yaml:"health"`
}

type ScoreboardConfig struct {
	URL         string        `yaml:"url"`
	ShowBrowser bool          `yaml:"show_browser"` // run Chrome with a window
	PageTimeout time.Duration `yaml:"page_timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

type OddsConfig struct {
	APIKey     string        `yaml:"api_key" env:"ODDS_API_KEY"`
	BaseURL    string        `yaml:"base_url"`
	Sport      string        `yaml:"sport"`
	Regions    string        `yaml:"regions"`
	Markets    string        `yaml:"markets"`
	OddsFormat string        `yaml:"odds_format"`
	DateFormat string        `yaml:"date_format"`
	RateLimit  time.Duration `yaml:"rate_limit"` // minimum gap between requests
	Timeout    time.Duration `yaml:"timeout"`
}

type PollingConfig struct {
	Interval           time.Duration `yaml:"interval"`
	MinWait            time.Duration `yaml:"min_wait"`
	IdleWait           time.Duration `yaml:"idle_wait"`
	StartGrace         time.Duration `yaml:"start_grace"`
	StaleWarnAfter     time.Duration `yaml:"stale_warn_after"`
	StaleConcludeAfter time.Duration `yaml:"stale_conclude_after"`
	RestartDelay       time.Duration `yaml:"restart_delay"`
}

type StorageConfig struct {
	Sinks []string    `yaml:"sinks"` // csv, sql, redis, amqp, stream
	CSV   CSVConfig   `yaml:"csv"`
	SQL   SQLConfig   `yaml:"sql"`
	Redis RedisConfig `yaml:"redis"`
	AMQP  AMQPConfig  `yaml:"amqp"`
}

type CSVConfig struct {
	StateDir string `yaml:"state_dir"`
	LinesDir string `yaml:"lines_dir"`
}

type SQLConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Channel  string        `yaml:"channel"`
}

type AMQPConfig struct {
	URL      string `yaml:"url" env:"AMQP_URL"`
	Exchange string `yaml:"exchange"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type EmailConfig struct {
	SMTPHost  string `yaml:"smtp_host"`
	SMTPPort  int    `yaml:"smtp_port"`
	Sender    string `yaml:"sender"`
	Password  string `yaml:"password" env:"ALERT_EMAIL_PASSWORD"`
	Recipient string `yaml:"recipient"` // e.g. an SMS gateway address
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// Sink names accepted in storage.sinks.
const (
	SinkCSV    = "csv"
	SinkSQL    = "sql"
	SinkRedis  = "redis"
	SinkAMQP   = "amqp"
	SinkStream = "stream"
)

// Load reads the YAML document at configPath, applies a .env file from the
// working directory if present, overrides secrets from the environment and
// validates the result. It is read once per process.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate fills defaults and rejects unusable combinations.
func (c *Config) Validate() error {
	if c.Timezone == "" {
		c.Timezone = "America/Los_Angeles"
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	setDefault(&c.Scoreboard.URL, "https://www.mlb.com/scores")
	setDuration(&c.Scoreboard.PageTimeout, 60*time.Second)

	setDefault(&c.Odds.BaseURL, "https://api.the-odds-api.com/v4")
	setDefault(&c.Odds.Sport, "baseball_mlb")
	setDefault(&c.Odds.Regions, "us")
	setDefault(&c.Odds.Markets, "h2h,spreads,totals")
	setDefault(&c.Odds.OddsFormat, "decimal")
	setDefault(&c.Odds.DateFormat, "iso")
	if c.Odds.DateFormat != "iso" {
		return fmt.Errorf("unsupported odds.date_format %q, only iso is supported", c.Odds.DateFormat)
	}
	setDuration(&c.Odds.RateLimit, time.Second)
	setDuration(&c.Odds.Timeout, 30*time.Second)

	setDuration(&c.Polling.Interval, time.Minute)
	setDuration(&c.Polling.MinWait, 30*time.Second)
	setDuration(&c.Polling.IdleWait, 2*time.Hour)
	setDuration(&c.Polling.StartGrace, 30*time.Minute)
	setDuration(&c.Polling.StaleWarnAfter, time.Hour)
	setDuration(&c.Polling.StaleConcludeAfter, 5*time.Hour)
	setDuration(&c.Polling.RestartDelay, 5*time.Minute)
	if c.Polling.StaleConcludeAfter <= c.Polling.StaleWarnAfter {
		return fmt.Errorf("polling.stale_conclude_after (%s) must exceed polling.stale_warn_after (%s)",
			c.Polling.StaleConcludeAfter, c.Polling.StaleWarnAfter)
	}

	if c.Storage.SQL.Driver == "" {
		c.Storage.SQL.Driver = "postgres"
	}
	setDuration(&c.Storage.Redis.TTL, 24*time.Hour)
	setDefault(&c.Storage.Redis.Channel, "games")
	setDefault(&c.Storage.AMQP.Exchange, "mlb.games")
	if c.Notify.Email.SMTPPort == 0 {
		c.Notify.Email.SMTPPort = 587
	}

	setDefault(&c.Logging.Dir, "logs")
	setDefault(&c.Logging.Level, "INFO")
	setDuration(&c.Health.ReadHeaderTimeout, 5*time.Second)

	if len(c.Storage.Sinks) == 0 {
		return fmt.Errorf("storage.sinks must name at least one sink")
	}
	for i, name := range c.Storage.Sinks {
		name = strings.ToLower(strings.TrimSpace(name))
		c.Storage.Sinks[i] = name
		switch name {
		case SinkCSV:
			if c.Storage.CSV.StateDir == "" || c.Storage.CSV.LinesDir == "" {
				return fmt.Errorf("csv sink requires storage.csv.state_dir and storage.csv.lines_dir")
			}
		case SinkSQL:
			if c.Storage.SQL.DSN == "" {
				return fmt.Errorf("sql sink requires storage.sql.dsn")
			}
			if c.Storage.SQL.Driver != "postgres" && c.Storage.SQL.Driver != "sqlite" {
				return fmt.Errorf("unsupported storage.sql.driver %q", c.Storage.SQL.Driver)
			}
		case SinkRedis:
			if c.Storage.Redis.Addr == "" {
				return fmt.Errorf("redis sink requires storage.redis.addr")
			}
		case SinkAMQP:
			if c.Storage.AMQP.URL == "" {
				return fmt.Errorf("amqp sink requires storage.amqp.url")
			}
		case SinkStream:
		default:
			return fmt.Errorf("unknown sink %q in storage.sinks", name)
		}
	}
	return nil
}

// Location returns the configured time zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasSink reports whether name is listed in storage.sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Storage.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setDuration(field *time.Duration, value time.Duration) {
	if *field <= 0 {
		*field = value
	}
}
