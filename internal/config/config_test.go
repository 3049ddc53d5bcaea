package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN", "token")
	t.Setenv("ACCESS_TOKEN_SECRET", "token-secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.MaxDailyEntries)
	assert.Equal(t, 10, cfg.EngagementThreshold)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.ActionDelay)
	assert.Equal(t, 10, cfg.TweetsPerFetch)
	assert.Equal(t, "since_id.txt", cfg.SinceIDFile)
	assert.Equal(t, "https://api.twitter.com", cfg.APIBaseURL)
	assert.Equal(t, DefaultReplyTemplates, cfg.ReplyTemplates)
	assert.Empty(t, cfg.TaggedUsers)
	assert.False(t, cfg.NotificationsEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("TAGGED_USERS", "alice, @bob ,,carol")
	t.Setenv("REPLY_TEMPLATES", "In! {tags}| Me too {author} ")
	t.Setenv("MAX_DAILY_ENTRIES", "5")
	t.Setenv("POLL_INTERVAL", "90")
	t.Setenv("ACTION_DELAY", "250ms")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("TWEETS_PER_FETCH", "500")
	t.Setenv("API_BASE_URL", "http://localhost:8080/")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"@alice", "@bob", "@carol"}, cfg.TaggedUsers)
	assert.Equal(t, []string{"In! {tags}", "Me too {author}"}, cfg.ReplyTemplates)
	assert.Equal(t, 5, cfg.MaxDailyEntries)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.ActionDelay)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, 100, cfg.TweetsPerFetch)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.True(t, cfg.NotificationsEnabled())
}

func TestFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "")
	t.Setenv("ACCESS_TOKEN", "token")
	t.Setenv("ACCESS_TOKEN_SECRET", "token-secret")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_SECRET is required")
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"MAX_DAILY_ENTRIES": "lots",
		"POLL_INTERVAL":     "soon",
		"DRY_RUN":           "maybe",
		"TELEGRAM_CHAT_ID":  "chat",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(key, value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnv_TelegramRequiresBoth(t *testing.T) {
	setCredentials(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_CollectsWarnings(t *testing.T) {
	setCredentials(t)
	t.Setenv("BEARER_TOKEN", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("TWEETS_PER_FETCH", "5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.TweetsPerFetch)
	assert.Equal(t, []string{
		"TWEETS_PER_FETCH=5 is outside 10..100, clamping",
		"BEARER_TOKEN is not set. Search will use the user token.",
		"SENTRY_DSN is not set. Error tracking disabled.",
	}, cfg.Warnings)
}

func TestLoadConfig_MissingDotEnvIsAWarning(t *testing.T) {
	setCredentials(t)
	t.Setenv("BEARER_TOKEN", "app")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example/1")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"No .env file found, relying on environment variables"}, cfg.Warnings)
}
