package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/storage"
	"github.com/rryowa/fra_portal/internal/util"
)

const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	HealthPath  = "/health"

	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 8 << 20
)

// Request describes one call to the backend. It is reused as-is when the call
// is retried after a token refresh.
type Request struct {
	Method string
	// Path is relative to the base URL, an absolute path under the base path,
	// or a full URL.
	Path  string
	Query url.Values
	// Body is sent as JSON.
	Body any
	// ID is sent as X-Request-ID. Generated when empty.
	ID string
	// Anonymous requests carry no token and never trigger a refresh.
	Anonymous bool
	// SkipRefresh returns a 401 to the caller instead of refreshing.
	SkipRefresh bool

	retried bool
	payload []byte
}

// Client talks to the FRA backend on behalf of the stored session.
type Client struct {
	baseURL   *url.URL
	origin    *url.URL
	http      *http.Client
	store     storage.SessionStore
	refresher *refresher
	log       *zap.SugaredLogger
}

func New(cfg *util.ClientConfig, store storage.SessionStore, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}

	return &Client{
		baseURL:   base,
		origin:    &url.URL{Scheme: base.Scheme, Host: base.Host},
		http:      &http.Client{Timeout: cfg.Timeout},
		store:     store,
		refresher: newRefresher(log),
		log:       log,
	}, nil
}

func (c *Client) Store() storage.SessionStore {
	return c.store
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends req and decodes a successful JSON response into out, which may be
// nil. A 401 is recovered once by refreshing the access token; concurrent
// callers share a single refresh.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var token string
	if !req.Anonymous {
		var err error
		if token, err = c.store.AccessToken(ctx); err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
	}

	err := c.dispatch(ctx, req, token, out)
	if !c.recoverable(req, err) {
		return err
	}
	return c.recoverUnauthorized(ctx, req, token, out, err)
}

func (c *Client) recoverable(req *Request, err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	if req.retried || req.Anonymous || req.SkipRefresh {
		return false
	}
	endpoint, ok := c.endpoint(req.Path)
	if !ok {
		return false
	}
	switch endpoint {
	case RefreshPath, LoginPath:
		return false
	}
	return true
}

// endpoint reports the backend path a request targets. ok is false when the
// request goes to another origin.
func (c *Client) endpoint(path string) (string, bool) {
	u, err := c.resolveURL(path, nil)
	if err != nil || !c.owns(u) {
		return "", false
	}
	return c.relative(u.Path), true
}

// owns reports whether u points at the backend this client serves. Tokens are
// only ever sent there.
func (c *Client) owns(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

func (c *Client) recoverUnauthorized(ctx context.Context, req *Request, sentToken string, out any, cause error) error {
	req.retried = true

	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return cause
	}

	// A refresh finished while this request was on the wire.
	if current, ok := c.newerToken(ctx, sentToken); ok {
		c.log.Debugw("retrying with already refreshed token", "request_id", req.ID)
		return c.dispatch(ctx, req, current, out)
	}

	token, err := c.refresher.acquireOrWait(ctx, req.ID, func(ctx context.Context) (string, error) {
		if current, ok := c.newerToken(ctx, sentToken); ok {
			return current, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return err
	}
	return c.dispatch(ctx, req, token, out)
}

func (c *Client) newerToken(ctx context.Context, sentToken string) (string, bool) {
	current, err := c.store.AccessToken(ctx)
	if err != nil || current == "" || current == sentToken {
		return "", false
	}
	return current, true
}

// refresh exchanges the stored refresh token for a new access token. On
// failure the session is cleared before returning.
func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read refresh token: %w", ErrRefreshFailed, err)
	}

	var resp models.RefreshResponse
	if refreshToken == "" {
		err = errors.New("no refresh token stored")
	} else {
		req := &Request{
			Method:      http.MethodPost,
			Path:        RefreshPath,
			Body:        struct{}{},
			ID:          uuid.NewString(),
			SkipRefresh: true,
		}
		err = c.dispatch(ctx, req, refreshToken, &resp)
		if err == nil && resp.AccessToken == "" {
			err = ErrEmptyAccessToken
		}
	}
	if err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log.Errorw("failed to clear session after refresh failure", "error", clearErr)
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := c.store.SetAccessToken(ctx, resp.AccessToken); err != nil {
		return "", fmt.Errorf("%w: persist access token: %w", ErrRefreshFailed, err)
	}
	return resp.AccessToken, nil
}

func (c *Client) dispatch(ctx context.Context, req *Request, token string, out any) error {
	u, err := c.resolveURL(req.Path, req.Query)
	if err != nil {
		return err
	}
	target := u.String()

	if req.Body != nil && req.payload == nil {
		if req.payload, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}
	var body io.Reader
	if req.payload != nil {
		body = bytes.NewReader(req.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, req.ID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" && c.owns(u) {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxResponseBytes {
		return fmt.Errorf("response from %s exceeds %d bytes", target, maxResponseBytes)
	}

	c.log.Debugw("backend call",
		"request_id", req.ID,
		"method", req.Method,
		"url", target,
		"status", resp.StatusCode,
		"retried", req.retried,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(req.Method, target, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", target, err)
	}
	return nil
}

// resolveURL maps a request path onto the backend. The health endpoint lives at
// the server root, outside the API base path.
func (c *Client) resolveURL(path string, query url.Values) (*url.URL, error) {
	var u *url.URL
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		parsed, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", path, err)
		}
		u = parsed
	case c.relative(path) == HealthPath:
		u = c.origin.JoinPath(HealthPath)
	default:
		u = c.baseURL.JoinPath(c.relative(path))
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// relative strips the base path from paths the backend hands out in full,
// such as layer URLs ("/api/map/geojson/india").
func (c *Client) relative(path string) string {
	basePath := c.baseURL.Path
	if basePath == "" || basePath == "/" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, basePath); ok && (rest == "" || rest[0] == '/') {
		return rest
	}
	return path
}
