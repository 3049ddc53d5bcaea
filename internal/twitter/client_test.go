package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(bearer string) Credentials {
	return Credentials{
		APIKey:            "ck",
		APISecret:         "cs",
		AccessToken:       "at",
		AccessTokenSecret: "as",
		BearerToken:       bearer,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSearchRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "giveaway", r.URL.Query().Get("query"))
		assert.Equal(t, "100", r.URL.Query().Get("since_id"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id": "1000", "text": "second", "author_id": "7",
					"created_at":     "2024-05-01T10:00:00.000Z",
					"public_metrics": map[string]int{"like_count": 3, "retweet_count": 2},
				},
				{
					"id": "999", "text": "first", "author_id": "8",
					"public_metrics": map[string]int{"like_count": 1},
				},
			},
			"includes": map[string]interface{}{
				"users": []map[string]string{{"id": "7", "username": "host"}},
			},
			"meta": map[string]interface{}{"result_count": 2, "newest_id": "1000"},
		})
	}))
	defer srv.Close()

	c := NewClient(testCredentials("app-token"), srv.URL)
	posts, err := c.SearchRecent(context.Background(), "giveaway", "100", 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "999", posts[0].ID, "posts are returned oldest first")
	assert.Equal(t, "1000", posts[1].ID)
	assert.Equal(t, "host", posts[1].AuthorUsername)
	assert.Equal(t, 3, posts[1].LikeCount)
	assert.Equal(t, 2, posts[1].ShareCount)
	assert.Equal(t, 5, posts[1].Engagement())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), posts[1].CreatedAt.UTC())
	assert.Equal(t, "https://x.com/host/status/1000", posts[1].URL())
	assert.Empty(t, posts[0].AuthorUsername)
}

func TestSearchRecent_UserContextWithoutBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		assert.Empty(t, r.URL.Query().Get("since_id"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"meta": map[string]int{"result_count": 0}})
	}))
	defer srv.Close()

	c := NewClient(testCredentials(""), srv.URL)
	posts, err := c.SearchRecent(context.Background(), "giveaway", "", 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestLikeRetweetReply(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))

		switch r.URL.Path {
		case "/2/users/me":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"data": map[string]string{"id": "42", "username": "bot", "name": "Bot"},
			})
		case "/2/users/42/likes":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "555", body["tweet_id"])
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]bool{"liked": true}})
		case "/2/users/42/retweets":
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]bool{"retweeted": true}})
		case "/2/tweets":
			var body createTweetRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "555", body.Reply.InReplyToTweetID)
			assert.Equal(t, "count me in", body.Text)
			writeJSON(w, http.StatusCreated, map[string]interface{}{"data": map[string]string{"id": "777", "text": body.Text}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(testCredentials("app-token"), srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Like(ctx, "555"))
	require.NoError(t, c.Retweet(ctx, "555"))
	id, err := c.Reply(ctx, "555", "count me in")
	require.NoError(t, err)
	assert.Equal(t, "777", id)

	assert.Equal(t, []string{
		"GET /2/users/me",
		"POST /2/users/42/likes",
		"POST /2/users/42/retweets",
		"POST /2/tweets",
	}, calls, "the user id is looked up once and cached")
}

func TestAPIErrors(t *testing.T) {
	reset := time.Now().Add(90 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/me":
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"id": "42"}})
		case "/2/users/42/likes":
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"title": "Too Many Requests", "detail": "Too Many Requests", "status": 429})
		case "/2/users/42/retweets":
			writeJSON(w, http.StatusForbidden, map[string]interface{}{
				"errors": []map[string]string{{"message": "You have already retweeted this Tweet."}},
			})
		case "/2/tweets":
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"title": "Unauthorized"})
		}
	}))
	defer srv.Close()

	c := NewClient(testCredentials(""), srv.URL)
	ctx := context.Background()

	err := c.Like(ctx, "1")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	wait, ok := RetryAfter(err, time.Unix(reset-30, 0))
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	err = c.Retweet(ctx, "1")
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "already retweeted")

	_, err = c.Reply(ctx, "1", "hi")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	_, ok = RetryAfter(err, time.Now())
	assert.False(t, ok)
}

func TestLikeRetweet_UserLookupForbidden(t *testing.T) {
	var writes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/me" {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"title": "Forbidden", "detail": "client not enrolled"})
			return
		}
		writes++
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]bool{"liked": true, "retweeted": true}})
	}))
	defer srv.Close()

	c := NewClient(testCredentials(""), srv.URL)
	ctx := context.Background()

	err := c.Like(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserLookup)
	assert.False(t, IsForbidden(err), "a failed lookup is not an already-liked post")

	err = c.Retweet(ctx, "1")
	require.Error(t, err)
	assert.False(t, IsForbidden(err))
	assert.Zero(t, writes)
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("99", "100"))
	assert.Equal(t, 1, CompareIDs("1790000000000000001", "1790000000000000000"))
	assert.Equal(t, 0, CompareIDs("5", "5"))
	assert.Equal(t, 1, CompareIDs("5", ""))
}
