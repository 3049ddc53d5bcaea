package twitter

import (
	"fmt"
	"time"
)

// Post is a single post fetched from the timeline.
type Post struct {
	ID             string
	AuthorID       string
	AuthorUsername string
	Text           string
	LikeCount      int
	ShareCount     int // retweets
	CreatedAt      time.Time
}

// URL returns a link to the post for logs and notifications.
func (p Post) URL() string {
	if p.AuthorUsername != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", p.AuthorUsername, p.ID)
	}
	if p.AuthorID != "" {
		return fmt.Sprintf("https://x.com/i/user/%s/status/%s", p.AuthorID, p.ID)
	}
	return fmt.Sprintf("https://x.com/i/status/%s", p.ID)
}

// Engagement is the combined like and share count.
func (p Post) Engagement() int {
	return p.LikeCount + p.ShareCount
}

// User is the authenticated account.
type User struct {
	ID             string
	Name           string
	Username       string
	FollowersCount int
	FollowingCount int
}

type apiPublicMetrics struct {
	RetweetCount   int `json:"retweet_count"`
	ReplyCount     int `json:"reply_count"`
	LikeCount      int `json:"like_count"`
	QuoteCount     int `json:"quote_count"`
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
}

type apiTweet struct {
	ID            string           `json:"id"`
	Text          string           `json:"text"`
	AuthorID      string           `json:"author_id"`
	CreatedAt     time.Time        `json:"created_at"`
	PublicMetrics apiPublicMetrics `json:"public_metrics"`
}

type apiUser struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Username      string           `json:"username"`
	PublicMetrics apiPublicMetrics `json:"public_metrics"`
}

type searchResponse struct {
	Data     []apiTweet `json:"data"`
	Includes struct {
		Users []apiUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type meResponse struct {
	Data apiUser `json:"data"`
}

type tweetIDRequest struct {
	TweetID string `json:"tweet_id"`
}

type likeResponse struct {
	Data struct {
		Liked bool `json:"liked"`
	} `json:"data"`
}

type retweetResponse struct {
	Data struct {
		Retweeted bool `json:"retweeted"`
	} `json:"data"`
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}
