// Package monitor runs the polling cycle that ties fetching, filtering,
// participating and quota accounting together.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"giveaway-bot/internal/actions"
	"giveaway-bot/internal/giveaway"
	"giveaway-bot/internal/notify"
	"giveaway-bot/internal/state"
	"giveaway-bot/internal/timeutil"
	"giveaway-bot/internal/twitter"

	"github.com/getsentry/sentry-go"
)

// Timeline fetches recent posts.
type Timeline interface {
	SearchRecent(ctx context.Context, query, sinceID string, maxResults int) ([]twitter.Post, error)
}

// Participator enters a single giveaway.
type Participator interface {
	Participate(ctx context.Context, post twitter.Post) (actions.Result, error)
}

// Settings configure a Loop.
type Settings struct {
	Query            string
	PerFetch         int
	PollInterval     time.Duration
	RateLimitBackoff time.Duration
}

// Stats summarises one cycle.
type Stats struct {
	Fetched        int
	Eligible       int
	Entered        int
	Failed         int
	QuotaExhausted bool
}

// Loop polls the timeline on a fixed interval. All work happens on the
// calling goroutine.
type Loop struct {
	timeline Timeline
	filter   *giveaway.Filter
	exec     Participator
	counter  *state.DailyCounter
	marker   *state.Marker
	notifier notify.Notifier
	settings Settings
	logger   *slog.Logger

	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
	limitNotified bool
}

// NewLoop wires the loop's collaborators. A nil notifier disables
// notifications.
func NewLoop(
	timeline Timeline,
	filter *giveaway.Filter,
	exec Participator,
	counter *state.DailyCounter,
	marker *state.Marker,
	notifier notify.Notifier,
	settings Settings,
	logger *slog.Logger,
) *Loop {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		timeline: timeline,
		filter:   filter,
		exec:     exec,
		counter:  counter,
		marker:   marker,
		notifier: notifier,
		settings: settings,
		logger:   logger.With("component", "monitor"),
		now:      time.Now,
		sleep:    timeutil.Sleep,
	}
}

// Run executes cycles until ctx is cancelled. Cycle errors and panics are
// logged and reported; they never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("monitor started",
		"query", l.settings.Query,
		"poll_interval", l.settings.PollInterval.String(),
		"max_daily", l.counter.Max(),
		"since_id", l.marker.Last())

	for {
		stats, err := l.safeCycle(ctx)
		if ctx.Err() != nil {
			l.logger.Info("monitor stopped")
			return nil
		}

		wait := l.settings.PollInterval
		switch {
		case err != nil && twitter.IsRateLimited(err):
			if d, ok := twitter.RetryAfter(err, l.now()); ok {
				wait = d
			} else {
				wait = l.settings.RateLimitBackoff
			}
			l.logger.Warn("search rate limited, backing off", "wait", wait.String())
		case err != nil:
			l.logger.Error("cycle failed", "error", err)
		case stats.QuotaExhausted:
			wait = l.counter.UntilReset()
			l.logger.Info("daily limit reached, sleeping until midnight", "max", l.counter.Max(), "wait", wait.String())
		}

		if err := l.sleep(ctx, wait); err != nil {
			l.logger.Info("monitor stopped")
			return nil
		}
	}
}

// RunOnce executes a single cycle.
func (l *Loop) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	if l.counter.ResetIfNewDay() {
		l.limitNotified = false
		l.logger.Info("new day, daily counter reset")
	}
	if l.counter.Remaining() <= 0 {
		stats.QuotaExhausted = true
		return stats, nil
	}

	posts, err := l.timeline.SearchRecent(ctx, l.settings.Query, l.marker.Last(), l.settings.PerFetch)
	if err != nil {
		err = fmt.Errorf("failed to fetch posts: %w", err)
		if !twitter.IsRateLimited(err) {
			sentry.CaptureException(err)
		}
		return stats, err
	}
	stats.Fetched = len(posts)
	l.logger.Info("fetched posts", "count", len(posts), "since_id", l.marker.Last())

	newest := ""
	for _, p := range posts {
		if twitter.CompareIDs(p.ID, newest) > 0 {
			newest = p.ID
		}
	}
	if err := l.marker.Advance(newest); err != nil {
		l.logger.Error("failed to persist marker", "since_id", newest, "error", err)
		sentry.CaptureException(err)
	}

	for _, post := range posts {
		if l.counter.Remaining() <= 0 {
			stats.QuotaExhausted = true
			break
		}

		d := l.filter.Evaluate(post)
		log := l.logger.With("post_id", post.ID, "author", post.AuthorUsername)
		if !d.Eligible {
			log.Debug("post skipped", "reason", d.Reason, "pattern", d.Pattern, "engagement", post.Engagement())
			continue
		}
		stats.Eligible++
		log.Info("eligible giveaway found", "category", d.Category, "engagement", post.Engagement(), "url", post.URL())

		res, err := l.exec.Participate(ctx, post)
		if err != nil {
			return stats, err
		}
		if !res.OK() {
			stats.Failed++
			log.Warn("participation not counted", "succeeded", res.Succeeded)
			continue
		}
		if !l.counter.Take() {
			stats.QuotaExhausted = true
			break
		}
		stats.Entered++
		log.Info("participation counted", "count", l.counter.Count(), "max", l.counter.Max())

		if err := l.notifier.Participated(ctx, notify.Event{
			Post:     post,
			Category: d.Category,
			Result:   res,
			Count:    l.counter.Count(),
			Max:      l.counter.Max(),
		}); err != nil {
			log.Warn("participation notification failed", "error", err)
		}
	}

	if l.counter.Remaining() <= 0 {
		stats.QuotaExhausted = true
		if !l.limitNotified {
			l.limitNotified = true
			if err := l.notifier.DailyLimitReached(ctx, l.counter.Max()); err != nil {
				l.logger.Warn("limit notification failed", "error", err)
			}
		}
	}

	l.logger.Info("cycle finished",
		"fetched", stats.Fetched,
		"eligible", stats.Eligible,
		"entered", stats.Entered,
		"failed", stats.Failed,
		"today", l.counter.Count())
	return stats, nil
}

func (l *Loop) safeCycle(ctx context.Context) (stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic recovered in cycle", "panic", r, "stack", string(debug.Stack()))
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
			err = fmt.Errorf("panic in cycle: %v", r)
		}
	}()
	return l.RunOnce(ctx)
}
