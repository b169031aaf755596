package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"todoclient/internal/logging"
	"todoclient/internal/models"
)

// RefreshCookieName is the cookie the backend uses to carry the refresh token
const RefreshCookieName = "refresh_token"

// TokenSource supplies and renews the bearer token used to sign requests
type TokenSource interface {
	// Token returns the current token, or "" when there is none
	Token(ctx context.Context) (string, error)
	// RefreshRejected renews the token after the server rejected `rejected`.
	// Implementations must not issue a second network refresh when the token already changed.
	RefreshRejected(ctx context.Context, rejected string) (string, error)
	// Clear drops all credentials
	Clear()
}

// Client talks to the todo backend over HTTP/JSON
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A cookie jar is added if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets the signer used for every request
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// SetTokenSource wires the signer after construction. Call it before issuing requests.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// RefreshCookie returns the refresh cookie currently held, or ""
func (c *Client) RefreshCookie() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.endpoint("/auth/refresh")) {
		if ck.Name == RefreshCookieName {
			return ck.Value
		}
	}
	return ""
}

// SetRefreshCookie seeds the cookie jar, e.g. from a saved session
func (c *Client) SetRefreshCookie(value string) {
	if value == "" {
		return
	}
	c.httpClient.Jar.SetCookies(c.endpoint("/auth"), []*http.Cookie{{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/auth",
		HttpOnly: true,
	}})
}

// callOptions tune how a single call is signed and retried
type callOptions struct {
	unsigned bool // never attach a bearer token
	noRetry  bool // a 401 is final (login, refresh, logout)
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

// do performs a call: sign, send, on 401 renew once and replay once, then decode the envelope into out
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts callOptions) error {
	op := method + " " + path
	log := logging.Component("api").WithFields(logrus.Fields{"method": method, "path": path})

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	token := ""
	if c.tokens != nil && !opts.unsigned {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			if canceled(ctx, err) {
				return &TransportError{Op: op, Err: err}
			}
			return &AuthError{Status: http.StatusUnauthorized, Message: "Session expired. Please log in again.", Err: ErrUnauthenticated}
		}
		token = t
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.noRetry && !opts.unsigned && c.tokens != nil {
		drain(resp)
		log.Debug("Request unauthorized, renewing token")

		renewed, err := c.tokens.RefreshRejected(ctx, token)
		if err != nil {
			if canceled(ctx, err) {
				return &TransportError{Op: op, Err: err}
			}
			log.WithError(err).Info("Token renewal failed")
			return &AuthError{Status: http.StatusUnauthorized, Message: "Session expired. Please log in again.", Err: ErrUnauthenticated}
		}

		resp, err = c.send(ctx, method, path, payload, renewed)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.tokens.Clear()
			return &AuthError{Status: http.StatusUnauthorized, Message: "Session expired. Please log in again.", Err: ErrUnauthenticated}
		}
	}
	defer drain(resp)

	if err := decode(resp, out); err != nil {
		log.WithField("status", resp.StatusCode).WithError(err).Debug("Request failed")
		return err
	}
	log.WithField("status", resp.StatusCode).Debug("Request completed")
	return nil
}

// canceled reports whether err is the caller giving up rather than the session failing
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path).String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	sign(req, token)

	return c.httpClient.Do(req)
}

// sign attaches the bearer credential only when a token exists
func sign(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// decode maps the status code and envelope onto the error taxonomy, or fills out with data
func decode(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	var env models.Envelope[json.RawMessage]
	parseErr := json.Unmarshal(raw, &env)
	if len(bytes.TrimSpace(raw)) == 0 {
		parseErr = nil
	}

	status := resp.StatusCode
	message := env.Message
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Status: status, Message: message}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "Invalid request"
		}
		return &ValidationError{Status: status, Message: message}
	case status < 200 || status >= 300:
		if parseErr != nil {
			return &EnvelopeError{Status: status, Err: ErrMalformedResponse}
		}
		return &EnvelopeError{Status: status, Message: message}
	case parseErr != nil:
		return &EnvelopeError{Status: status, Message: "malformed response", Err: ErrMalformedResponse}
	case env.Error:
		return &EnvelopeError{Status: status, Message: message}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &EnvelopeError{Status: status, Message: "response has no data", Err: ErrMalformedResponse}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &EnvelopeError{Status: status, Message: "malformed response data", Err: errors.Join(ErrMalformedResponse, err)}
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
