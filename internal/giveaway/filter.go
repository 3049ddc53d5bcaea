// Package giveaway decides whether a post is a giveaway worth entering.
package giveaway

import (
	"fmt"
	"regexp"

	"giveaway-bot/internal/twitter"
)

// Category is the kind of inclusion phrase that matched.
type Category string

const (
	CategoryNone      Category = ""
	CategoryFollow    Category = "follow"
	CategoryTag       Category = "tag"
	CategoryTimeframe Category = "timeframe"
	CategoryKeyword   Category = "keyword"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonEligible   Reason = "eligible"
	ReasonExcluded   Reason = "excluded"
	ReasonNoMatch    Reason = "no_match"
	ReasonEngagement Reason = "engagement"
)

// DefaultEngagementThreshold is the maximum likes+shares for a post to qualify.
const DefaultEngagementThreshold = 10

// Decision is the outcome of evaluating one post.
type Decision struct {
	Eligible bool
	Category Category
	Reason   Reason
	// Pattern is the source of the pattern that decided the outcome, if any.
	Pattern string
}

// PatternSet is an ordered list of patterns for one inclusion category.
type PatternSet struct {
	Category Category
	Patterns []string
}

// DefaultInclusion lists the inclusion categories in evaluation order.
var DefaultInclusion = []PatternSet{
	{CategoryFollow, []string{
		`follow\s+all\s+these\s+accounts`,
		`follow\s+the\s+accounts`,
		`follow\s+all\s+accounts\s+mentioned`,
		`follow\s+our\s+partners`,
		`follow\s+all\s+accounts\s+below`,
		`follow`,
	}},
	{CategoryTag, []string{
		`tag\s+\d+\s+(?:people|friends|users|accounts)`,
		`tag\s+(?:three|four|five|\d+)\s+(?:people|friends|users|accounts)`,
		`mention\s+\d+\s+(?:people|friends|users|accounts)`,
	}},
	{CategoryTimeframe, []string{
		`winners?\s+(?:be\s+)?selected\s+in\s+\d+(?:-\d+)?\s+days?`,
		`draw\s+in\s+\d+\s+days?`,
		`ends?\s+in\s+\d+\s+days?`,
		`closes?\s+in\s+\d+\s+days?`,
	}},
	{CategoryKeyword, []string{
		`giveaway`,
		`funded`,
		`account`,
		`contest`,
		`prize`,
		`win\s+(?:money|cash|crypto|nft)`,
		`airdrop`,
		`free\s+(?:money|cash|crypto|nft)`,
		`enter\s+to\s+win`,
	}},
}

// DefaultExclusion lists requirements the bot cannot satisfy.
var DefaultExclusion = []string{
	`screenshot\s+proof`,
	`add\s+screenshot`,
	`upload\s+screenshot`,
	`screenshot\s+in\s+comments`,
	`dm\s+screenshot`,
	`send\s+screenshot`,
	`post\s+screenshot`,
	`share\s+screenshot`,
	`proof\s+of\s+follow`,
	`screenshot\s+required`,
}

type rule struct {
	category Category
	re       *regexp.Regexp
}

// Filter evaluates posts against exclusion and inclusion patterns and an
// engagement threshold. It holds no mutable state.
type Filter struct {
	exclusion []*regexp.Regexp
	inclusion []rule
	threshold int
}

// Option customises a Filter.
type Option func(*filterOptions)

type filterOptions struct {
	exclusion []string
	inclusion []PatternSet
}

// WithExtraExclusion appends exclusion patterns to the defaults.
func WithExtraExclusion(patterns ...string) Option {
	return func(o *filterOptions) {
		o.exclusion = append(o.exclusion, patterns...)
	}
}

// WithExtraInclusion appends an inclusion pattern set after the defaults.
func WithExtraInclusion(category Category, patterns ...string) Option {
	return func(o *filterOptions) {
		o.inclusion = append(o.inclusion, PatternSet{Category: category, Patterns: patterns})
	}
}

// NewFilter compiles the pattern sets. All patterns are case-insensitive.
func NewFilter(threshold int, opts ...Option) (*Filter, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("engagement threshold must not be negative, got %d", threshold)
	}

	o := filterOptions{
		exclusion: append([]string(nil), DefaultExclusion...),
		inclusion: append([]PatternSet(nil), DefaultInclusion...),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Filter{threshold: threshold}
	for _, p := range o.exclusion {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		f.exclusion = append(f.exclusion, re)
	}
	for _, set := range o.inclusion {
		for _, p := range set.Patterns {
			re, err := compile(p)
			if err != nil {
				return nil, err
			}
			f.inclusion = append(f.inclusion, rule{category: set.Category, re: re})
		}
	}
	return f, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Threshold returns the configured engagement threshold.
func (f *Filter) Threshold() int {
	return f.threshold
}

// Evaluate decides whether post is an eligible giveaway. Exclusion is
// checked before inclusion, and the first matching inclusion pattern wins.
func (f *Filter) Evaluate(post twitter.Post) Decision {
	d, matched := f.MatchText(post.Text)
	if !matched {
		return d
	}
	if post.Engagement() > f.threshold {
		d.Eligible = false
		d.Reason = ReasonEngagement
	}
	return d
}

// MatchText applies only the text patterns. matched is true when the text
// passes exclusion and hits at least one inclusion pattern.
func (f *Filter) MatchText(text string) (d Decision, matched bool) {
	for _, re := range f.exclusion {
		if re.MatchString(text) {
			return Decision{Reason: ReasonExcluded, Pattern: re.String()}, false
		}
	}
	for _, r := range f.inclusion {
		if r.re.MatchString(text) {
			return Decision{Eligible: true, Category: r.category, Reason: ReasonEligible, Pattern: r.re.String()}, true
		}
	}
	return Decision{Reason: ReasonNoMatch}, false
}
