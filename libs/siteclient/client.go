// Package siteclient talks to the site API and keeps the client-side caches
// for the landing content and the blog posts.
package siteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gregjones/httpcache"
)

const (
	defaultTimeout = 30 * time.Second
	apiPrefix      = "/api/v1"
)

// Client is safe for concurrent use. Construct it with New.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	tokens   TokenStore
	fallback FallbackStore
	log      *slog.Logger

	content *slot[sitecontent.ContentDocument]
	posts   *slot[[]sitecontent.BlogPost]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which revalidates cached GET
// responses through an in-memory httpcache transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore sets where the admin token is kept. Defaults to memory.
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithFallbackStore persists every successful fetch so LastKnownContent and
// LastKnownPosts can serve it when the API is unreachable.
func WithFallbackStore(fs FallbackStore) Option {
	return func(c *Client) { c.fallback = fs }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("siteclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("siteclient: base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		content: newSlot(sitecontent.ContentDocument.Clone),
		posts:   newSlot(sitecontent.ClonePosts),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   defaultTimeout,
		}
	}
	if c.tokens == nil {
		c.tokens = &MemoryTokenStore{}
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	return u.String()
}

type request struct {
	method  string
	path    string
	body    any
	auth    bool
	headers map[string]string
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses come
// back as *APIError. A 401 on an authenticated call clears the stored token.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("siteclient: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path), body)
	if err != nil {
		return fmt.Errorf("siteclient: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if req.auth {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("siteclient: read token: %w", err)
		}
		if token == "" {
			return fmt.Errorf("siteclient: not logged in: %w", ErrUnauthorized)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("siteclient: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		if req.auth && resp.StatusCode == http.StatusUnauthorized {
			if err := c.tokens.Clear(); err != nil {
				c.log.Warn("failed to clear rejected token", "error", err)
			}
		}
		return apiErr
	}
	// read to EOF either way; httpcache only stores bodies read completely
	defer func() { _, _ = io.Copy(io.Discard, resp.Body) }()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("siteclient: decode %s response: %w", req.path, err)
	}
	return nil
}

// Login exchanges credentials for a token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("siteclient: login response had no token")
	}
	return c.tokens.SetToken(out.Token)
}

// Logout drops the stored token and every cached value. There is no server
// side revocation; the token stays valid until it expires.
func (c *Client) Logout() error {
	c.content.invalidate()
	c.posts.invalidate()
	return c.tokens.Clear()
}

// LoggedIn reports whether a token is stored. It does not check expiry.
func (c *Client) LoggedIn() bool {
	token, err := c.tokens.Token()
	return err == nil && token != ""
}

// Session describes the admin behind the stored token.
type Session struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session asks the API to verify the stored token.
func (c *Client) Session(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/session", auth: true}, &s)
	return s, err
}
