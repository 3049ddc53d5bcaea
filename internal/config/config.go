package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultReplyTemplates are used when REPLY_TEMPLATES is not set.
// {tags} expands to the tagged users, {author} to the post author's handle.
var DefaultReplyTemplates = []string{
	"Participating! Good luck everyone {tags} {author}",
	"Count me in! {tags} {author}",
	"Excited to join this giveaway! {tags} {author}",
	"Thanks for the opportunity! {tags} {author}",
	"Hope I win! Good luck to all {tags} {author}",
}

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Debug     bool
	Version   string
	SentryDSN string

	// X API credentials
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
	APIBaseURL        string

	// Timeline fetching
	SearchQuery    string
	TweetsPerFetch int
	SinceIDFile    string

	// Participation behaviour
	TaggedUsers         []string
	ReplyTemplates      []string
	MaxDailyEntries     int
	EngagementThreshold int
	PollInterval        time.Duration
	ActionDelay         time.Duration
	RateLimitBackoff    time.Duration
	RandomSeed          int64
	DryRun              bool
	Language            string

	// Logging
	LogFile  string
	LogLevel string

	// Optional Telegram notifications
	TelegramBotToken string
	TelegramChatID   int64

	// Warnings collected while loading, logged once the logger exists.
	Warnings []string
}

// LoadConfig loads configuration from environment variables.
// A .env file is loaded first if present; variables already set in the
// environment take precedence over it.
func LoadConfig() (*Config, error) {
	envErr := godotenv.Load()
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		cfg.Warnings = append([]string{"No .env file found, relying on environment variables"}, cfg.Warnings...)
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment without touching
// any .env file.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Version:   getEnv("VERSION", "dev"),
		SentryDSN: getEnv("SENTRY_DSN", ""),

		APIKey:            getEnv("API_KEY", ""),
		APISecret:         getEnv("API_SECRET", ""),
		AccessToken:       getEnv("ACCESS_TOKEN", ""),
		AccessTokenSecret: getEnv("ACCESS_TOKEN_SECRET", ""),
		BearerToken:       getEnv("BEARER_TOKEN", ""),
		APIBaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "https://api.twitter.com"), "/"),

		SearchQuery: getEnv("SEARCH_QUERY", "giveaway OR contest -is:retweet"),
		SinceIDFile: getEnv("SINCE_ID_FILE", "since_id.txt"),

		TaggedUsers:    splitList(getEnv("TAGGED_USERS", ""), ","),
		ReplyTemplates: splitList(getEnv("REPLY_TEMPLATES", ""), "|"),
		Language:       getEnv("BOT_LANGUAGE", "en"),

		LogFile:  getEnv("LOG_FILE", "bot.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = getBool("DRY_RUN", false); err != nil {
		return nil, err
	}
	if cfg.TweetsPerFetch, err = getInt("TWEETS_PER_FETCH", 10); err != nil {
		return nil, err
	}
	if cfg.MaxDailyEntries, err = getInt("MAX_DAILY_ENTRIES", 250); err != nil {
		return nil, err
	}
	if cfg.EngagementThreshold, err = getInt("ENGAGEMENT_THRESHOLD", 10); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ActionDelay, err = getDuration("ACTION_DELAY", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitBackoff, err = getDuration("RATE_LIMIT_BACKOFF", 15*time.Minute); err != nil {
		return nil, err
	}

	seedStr := getEnv("RANDOM_SEED", "")
	if seedStr != "" {
		if cfg.RandomSeed, err = strconv.ParseInt(seedStr, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
		}
	}

	chatIDStr := getEnv("TELEGRAM_CHAT_ID", "")
	if chatIDStr != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if len(cfg.ReplyTemplates) == 0 {
		cfg.ReplyTemplates = append([]string(nil), DefaultReplyTemplates...)
	}
	cfg.TaggedUsers = normalizeHandles(cfg.TaggedUsers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the essential variables and value ranges.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.APISecret == "" {
		return fmt.Errorf("API_SECRET is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("ACCESS_TOKEN is required")
	}
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}
	if c.MaxDailyEntries < 0 {
		return fmt.Errorf("MAX_DAILY_ENTRIES must not be negative")
	}
	if c.EngagementThreshold < 0 {
		return fmt.Errorf("ENGAGEMENT_THRESHOLD must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.ActionDelay < 0 {
		return fmt.Errorf("ACTION_DELAY must not be negative")
	}
	if c.TweetsPerFetch < 10 || c.TweetsPerFetch > 100 {
		// recent search only accepts 10..100
		c.Warnings = append(c.Warnings, fmt.Sprintf("TWEETS_PER_FETCH=%d is outside 10..100, clamping", c.TweetsPerFetch))
		c.TweetsPerFetch = max(10, min(c.TweetsPerFetch, 100))
	}
	if c.BearerToken == "" {
		c.Warnings = append(c.Warnings, "BEARER_TOKEN is not set. Search will use the user token.")
	}
	if c.SentryDSN == "" {
		c.Warnings = append(c.Warnings, "SENTRY_DSN is not set. Error tracking disabled.")
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// NotificationsEnabled reports whether Telegram notifications are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("90s", "2m") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeHandles makes sure every tagged user carries a leading '@'.
func normalizeHandles(handles []string) []string {
	for i, h := range handles {
		if !strings.HasPrefix(h, "@") {
			handles[i] = "@" + h
		}
	}
	return handles
}
