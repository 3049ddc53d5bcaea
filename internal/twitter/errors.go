package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUserLookup marks failures to resolve the authenticated user's ID
// before a write. The wrapped API error describes the lookup, not the write.
var ErrUserLookup = errors.New("failed to resolve authenticated user")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	// Reset is when the current rate-limit window ends, zero if unknown.
	Reset time.Time
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("X API error %d: %s", e.StatusCode, msg)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsForbidden reports whether err is a 403 response to the action itself.
// The API answers 403 when the action was already performed (liked or
// retweeted before). A 403 from the user lookup does not count.
func IsForbidden(err error) bool {
	if errors.Is(err, ErrUserLookup) {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// RetryAfter returns how long to wait before the rate-limit window resets.
// ok is false when err carries no reset time.
func RetryAfter(err error, now time.Time) (time.Duration, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Reset.IsZero() {
		return 0, false
	}
	wait := apiErr.Reset.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// parseAPIError builds an APIError from a failed response. The API uses
// both the problem format ({"title","detail"}) and the legacy {"errors":[...]}.
func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		if apiErr.Detail == "" && len(problem.Errors) > 0 {
			msgs := make([]string, 0, len(problem.Errors))
			for _, e := range problem.Errors {
				if e.Message != "" {
					msgs = append(msgs, e.Message)
				} else if e.Detail != "" {
					msgs = append(msgs, e.Detail)
				}
			}
			apiErr.Detail = strings.Join(msgs, "; ")
		}
	} else if len(body) > 0 {
		apiErr.Detail = strings.TrimSpace(string(body))
	}

	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if secs, err := strconv.ParseInt(reset, 10, 64); err == nil {
			apiErr.Reset = time.Unix(secs, 0)
		}
	}
	return apiErr
}
