package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrEmptyAccessToken = errors.New("refresh response carries no access token")
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	// Reason is the backend's "error" field, if the body had one.
	Reason string
	Body   []byte
}

func newHTTPError(method, url string, status int, body []byte) *HTTPError {
	e := &HTTPError{Method: method, URL: url, StatusCode: status, Body: body}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Reason = payload.Error
	}
	return e
}

func (e *HTTPError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Reason)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnauthorized reports whether err means the session can no longer be used:
// a 401 that survived recovery or a failed refresh.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrRefreshFailed) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}
