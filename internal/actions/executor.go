// Package actions performs the like, retweet and reply sequence that enters
// a giveaway.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"giveaway-bot/internal/locales"
	"giveaway-bot/internal/timeutil"
	"giveaway-bot/internal/twitter"

	"github.com/getsentry/sentry-go"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/ratelimit"
)

// MaxReplyLength is the longest reply the API accepts, in characters.
const MaxReplyLength = 280

// RequiredSuccesses is how many of the three actions must succeed for a
// participation to count.
const RequiredSuccesses = 2

// Engager is the subset of the API client the executor needs.
type Engager interface {
	Like(ctx context.Context, postID string) error
	Retweet(ctx context.Context, postID string) error
	Reply(ctx context.Context, postID, text string) (string, error)
}

// Action names one engagement step.
type Action string

const (
	ActionLike    Action = "like"
	ActionRetweet Action = "retweet"
	ActionReply   Action = "reply"
)

// Result is the outcome of one participation attempt.
type Result struct {
	PostID    string
	Succeeded int
	Failed    map[Action]error
	ReplyID   string
	ReplyText string
	DryRun    bool
}

// OK reports whether enough actions succeeded for the entry to count.
func (r Result) OK() bool {
	return r.Succeeded >= RequiredSuccesses
}

// Settings configure an Executor.
type Settings struct {
	TaggedUsers []string
	Templates   []string
	// Delay is the minimum pause between two API actions. Zero disables pacing.
	Delay time.Duration
	// Backoff is the wait after a rate-limit response without a reset time.
	Backoff time.Duration
	// Seed drives template selection. Zero seeds from the clock.
	Seed      int64
	DryRun    bool
	Localizer *i18n.Localizer
}

// Executor runs participation sequences one at a time. It is not safe for
// concurrent use.
type Executor struct {
	engager   Engager
	limiter   ratelimit.Limiter
	rng       *rand.Rand
	templates []string
	tags      string
	backoff   time.Duration
	dryRun    bool
	localizer *i18n.Localizer
	logger    *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor validates settings and builds an Executor.
func NewExecutor(engager Engager, settings Settings, logger *slog.Logger) (*Executor, error) {
	if engager == nil {
		return nil, errors.New("engager is required")
	}
	if len(settings.Templates) == 0 {
		return nil, errors.New("at least one reply template is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := ratelimit.NewUnlimited()
	if settings.Delay > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(settings.Delay), ratelimit.WithoutSlack)
	}
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Executor{
		engager:   engager,
		limiter:   limiter,
		rng:       rand.New(rand.NewSource(seed)),
		templates: append([]string(nil), settings.Templates...),
		tags:      strings.Join(settings.TaggedUsers, " "),
		backoff:   settings.Backoff,
		dryRun:    settings.DryRun,
		localizer: settings.Localizer,
		logger:    logger.With("component", "actions"),
		now:       time.Now,
		sleep:     timeutil.Sleep,
	}, nil
}

// Participate likes, retweets and replies to post. Each failure is logged
// and reported but does not stop the remaining actions. A rate-limit
// response pauses before the next action. The returned error is non-nil
// only when ctx was cancelled.
func (e *Executor) Participate(ctx context.Context, post twitter.Post) (Result, error) {
	res := Result{
		PostID:    post.ID,
		Failed:    make(map[Action]error),
		ReplyText: e.ReplyText(post),
		DryRun:    e.dryRun,
	}
	log := e.logger.With("post_id", post.ID, "author", post.AuthorUsername)

	if e.dryRun {
		log.Info("dry run, skipping actions", "reply", res.ReplyText)
		res.Succeeded = 3
		return res, nil
	}

	steps := []struct {
		action Action
		run    func() error
	}{
		{ActionLike, func() error { return e.engager.Like(ctx, post.ID) }},
		{ActionRetweet, func() error { return e.engager.Retweet(ctx, post.ID) }},
		{ActionReply, func() error {
			id, err := e.engager.Reply(ctx, post.ID, res.ReplyText)
			res.ReplyID = id
			return err
		}},
	}

	for _, step := range steps {
		// Take does not watch ctx, so check again once it returns.
		e.limiter.Take()
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := step.run()
		switch {
		case err == nil:
			res.Succeeded++
			log.Debug("action succeeded", "action", step.action)
		case twitter.IsForbidden(err) && step.action != ActionReply:
			res.Succeeded++
			log.Info("action already performed", "action", step.action, "error", err)
		default:
			res.Failed[step.action] = err
			log.Error("action failed", "action", step.action, "error", err)
			sentry.CaptureException(fmt.Errorf("%s post %s: %w", step.action, post.ID, err))

			if twitter.IsRateLimited(err) {
				if err := e.waitRateLimit(ctx, err, log); err != nil {
					return res, err
				}
			}
		}
	}

	log.Info("participation finished", "succeeded", res.Succeeded, "ok", res.OK())
	return res, nil
}

// ReplyText picks a random template and fills in the tagged users and the
// post author. Replies over MaxReplyLength fall back to a short message.
func (e *Executor) ReplyText(post twitter.Post) string {
	author := ""
	if post.AuthorUsername != "" {
		author = "@" + post.AuthorUsername
	}
	tmpl := e.templates[e.rng.Intn(len(e.templates))]
	text := strings.TrimSpace(strings.NewReplacer("{tags}", e.tags, "{author}", author).Replace(tmpl))
	if utf8.RuneCountInString(text) <= MaxReplyLength {
		return text
	}

	if e.localizer != nil {
		text = locales.GetMessage(e.localizer, locales.MsgReplyFallback, map[string]interface{}{
			"Tags":   e.tags,
			"Author": author,
		})
	} else {
		text = strings.TrimSpace(e.tags + " " + author)
	}
	if utf8.RuneCountInString(text) > MaxReplyLength {
		text = string([]rune(text)[:MaxReplyLength])
	}
	return text
}

func (e *Executor) waitRateLimit(ctx context.Context, err error, log *slog.Logger) error {
	wait, ok := twitter.RetryAfter(err, e.now())
	if !ok {
		wait = e.backoff
	}
	log.Warn("rate limited, backing off", "wait", wait.String())
	return e.sleep(ctx, wait)
}
