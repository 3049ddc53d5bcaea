package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultBaseURL = "https://api.twitter.com"

	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Credentials are the OAuth 1.0a user-context keys plus an optional app
// bearer token used for read-only search.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

// Client talks to the X API v2. Writes (like, retweet, reply) are signed
// with the user token; search prefers the app bearer token when present.
type Client struct {
	baseURL string
	user    *http.Client
	app     *http.Client
	bearer  string

	userID string
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(creds Credentials, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := cleanhttp.DefaultPooledClient()
	base.Timeout = requestTimeout

	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	user := config.Client(ctx, token)

	app := user
	if creds.BearerToken != "" {
		app = base
	}

	return &Client{
		baseURL: baseURL,
		user:    user,
		app:     app,
		bearer:  creds.BearerToken,
	}
}

// Me returns the authenticated account and caches its ID for write calls.
func (c *Client) Me(ctx context.Context) (*User, error) {
	params := url.Values{}
	params.Set("user.fields", "public_metrics")

	var res meResponse
	if err := c.do(ctx, c.user, http.MethodGet, "/2/users/me?"+params.Encode(), nil, &res); err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	if res.Data.ID == "" {
		return nil, fmt.Errorf("failed to get authenticated user: empty response")
	}

	c.userID = res.Data.ID
	return &User{
		ID:             res.Data.ID,
		Name:           res.Data.Name,
		Username:       res.Data.Username,
		FollowersCount: res.Data.PublicMetrics.FollowersCount,
		FollowingCount: res.Data.PublicMetrics.FollowingCount,
	}, nil
}

// SearchRecent returns posts matching query that are newer than sinceID,
// oldest first. An empty sinceID fetches the most recent page.
func (c *Client) SearchRecent(ctx context.Context, query, sinceID string, maxResults int) ([]Post, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("tweet.fields", "created_at,author_id,public_metrics,conversation_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username")
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}

	var res searchResponse
	if err := c.do(ctx, c.app, http.MethodGet, "/2/tweets/search/recent?"+params.Encode(), nil, &res); err != nil {
		return nil, fmt.Errorf("failed to search recent posts: %w", err)
	}

	usernames := make(map[string]string, len(res.Includes.Users))
	for _, u := range res.Includes.Users {
		usernames[u.ID] = u.Username
	}

	posts := make([]Post, 0, len(res.Data))
	for _, t := range res.Data {
		posts = append(posts, Post{
			ID:             t.ID,
			AuthorID:       t.AuthorID,
			AuthorUsername: usernames[t.AuthorID],
			Text:           t.Text,
			LikeCount:      t.PublicMetrics.LikeCount,
			ShareCount:     t.PublicMetrics.RetweetCount,
			CreatedAt:      t.CreatedAt,
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return CompareIDs(posts[i].ID, posts[j].ID) < 0
	})
	return posts, nil
}

// Like likes a post as the authenticated user.
func (c *Client) Like(ctx context.Context, postID string) error {
	userID, err := c.ensureUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to like post %s: %w", postID, err)
	}

	var res likeResponse
	if err := c.do(ctx, c.user, http.MethodPost, "/2/users/"+userID+"/likes", tweetIDRequest{TweetID: postID}, &res); err != nil {
		return fmt.Errorf("failed to like post %s: %w", postID, err)
	}
	if !res.Data.Liked {
		return fmt.Errorf("failed to like post %s: not confirmed", postID)
	}
	return nil
}

// Retweet shares a post as the authenticated user.
func (c *Client) Retweet(ctx context.Context, postID string) error {
	userID, err := c.ensureUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to retweet post %s: %w", postID, err)
	}

	var res retweetResponse
	if err := c.do(ctx, c.user, http.MethodPost, "/2/users/"+userID+"/retweets", tweetIDRequest{TweetID: postID}, &res); err != nil {
		return fmt.Errorf("failed to retweet post %s: %w", postID, err)
	}
	if !res.Data.Retweeted {
		return fmt.Errorf("failed to retweet post %s: not confirmed", postID)
	}
	return nil
}

// Reply posts text in reply to postID and returns the new post's ID.
func (c *Client) Reply(ctx context.Context, postID, text string) (string, error) {
	req := createTweetRequest{Text: text}
	req.Reply.InReplyToTweetID = postID

	var res createTweetResponse
	if err := c.do(ctx, c.user, http.MethodPost, "/2/tweets", req, &res); err != nil {
		return "", fmt.Errorf("failed to reply to post %s: %w", postID, err)
	}
	return res.Data.ID, nil
}

func (c *Client) ensureUserID(ctx context.Context) (string, error) {
	if c.userID != "" {
		return c.userID, nil
	}
	if _, err := c.Me(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserLookup, err)
	}
	return c.userID, nil
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if httpClient == c.app && c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CompareIDs orders numeric post IDs. Snowflake IDs exceed what fits in a
// float, so they are compared by length first and then lexically.
func CompareIDs(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
