// Package remote talks to a filingcabinet document server: collection
// levels, cursor-paginated document and page listings, and file bodies.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

const (
	// DefaultTimeout bounds a single JSON request.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "fcmirror"

	pagesPath = "/api/page/"
)

// Config configures a Client.
type Config struct {
	// BaseURL resolves relative URLs. Optional when every URL handed to
	// the client is absolute.
	BaseURL string
	// Timeout bounds each JSON request and the wait for file response
	// headers. File bodies are not bounded.
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client fetches resources from the document server. It never retries.
type Client struct {
	base      *url.URL
	http      *http.Client
	transport *http.Transport
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}

	if cfg.BaseURL != "" {
		base, err := parseAbsolute(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		c.base = base
	}

	if cfg.HTTPClient != nil {
		c.http = cfg.HTTPClient
	} else {
		// No http.Client.Timeout: it would cut off large file bodies.
		c.transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: cfg.Timeout,
		}
		c.http = &http.Client{Transport: c.transport}
	}

	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeInvalidURL, fmt.Sprintf("not an absolute URL: %q", raw), err)
	}
	return u, nil
}

// Resolve makes raw absolute, relative to ref when given, otherwise to
// the configured base URL.
func (c *Client) Resolve(raw string, ref *url.URL) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeInvalidURL, fmt.Sprintf("invalid URL %q", raw), err)
	}
	if u.IsAbs() {
		return u, nil
	}
	if ref == nil {
		ref = c.base
	}
	if ref == nil {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeInvalidURL, fmt.Sprintf("relative URL %q needs a base URL", raw), nil).
			WithSuggestion("Pass an absolute URL or set remote.base_url")
	}
	return ref.ResolveReference(u), nil
}

// ScopedURL resolves raw and sets the directory parameter for scope.
func (c *Client) ScopedURL(raw string, scope Scope) (string, error) {
	u, err := c.Resolve(raw, nil)
	if err != nil {
		return "", err
	}
	if scope.value != "" {
		q := u.Query()
		q.Set(directoryParam, scope.value)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// PagesURL returns the page listing URL for a document id.
func (c *Client) PagesURL(documentID int) (string, error) {
	u, err := c.Resolve(pagesPath, nil)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("document", strconv.Itoa(documentID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchCollection fetches one level of a collection.
func (c *Client) FetchCollection(ctx context.Context, collectionURL string, scope Scope) (*Node, error) {
	target, err := c.ScopedURL(collectionURL, scope)
	if err != nil {
		return nil, err
	}

	var node Node
	if err := c.getJSON(ctx, target, &node); err != nil {
		return nil, err
	}

	// documents_uri may be relative to the collection endpoint.
	if node.DocumentsURI != "" {
		ref, _ := url.Parse(target)
		docs, err := c.Resolve(node.DocumentsURI, ref)
		if err != nil {
			return nil, err
		}
		node.DocumentsURI = docs.String()
	}

	c.logger.Debug("collection fetched",
		slog.String("url", target),
		slog.String("scope", scope.String()),
		slog.Int("documents", node.DocumentCount),
		slog.Int("directories", len(node.Directories)))

	return &node, nil
}

// Download is an open file response. The caller must close Body.
type Download struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
}

// Open issues a GET for a file URL. Only HTTP 200 is accepted.
func (c *Client) Open(ctx context.Context, fileURL string) (*Download, error) {
	u, err := c.Resolve(fileURL, nil)
	if err != nil {
		return nil, err
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeInvalidURL, "cannot build request", err).WithDetail("url", target)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, target, err)
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, statusError(target, resp.StatusCode)
	}

	return &Download{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}

// getJSON fetches target and decodes the body into v. Any 2xx status is
// accepted; the body must be JSON.
func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return mirrorerrors.New(mirrorerrors.ErrCodeInvalidURL, "cannot build request", err).WithDetail("url", target)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, target, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(target, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt == "text/html" {
			return mirrorerrors.New(mirrorerrors.ErrCodeBadResponse, "expected JSON, got an HTML page", nil).
				WithDetail("url", target).
				WithSuggestion("Use the API URL of the collection, not its web page")
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return mirrorerrors.New(mirrorerrors.ErrCodeBadResponse, "response is not valid JSON", err).
			WithDetail("url", target)
	}
	return nil
}

// transportError classifies a failed round trip. Cancellation of the
// caller's context is returned as is.
func (c *Client) transportError(ctx context.Context, target string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	code := mirrorerrors.ErrCodeNetworkUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = mirrorerrors.ErrCodeNetworkTimeout
	}

	c.logger.Debug("request failed", slog.String("url", target), slog.String("error", err.Error()))

	return mirrorerrors.New(code, "request failed", err).
		WithDetail("url", target).
		WithSuggestion("Check that the server is reachable and run the command again")
}

func statusError(target string, status int) error {
	return mirrorerrors.New(mirrorerrors.ErrCodeHTTPStatus,
		fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status)), nil).
		WithDetail("url", target).
		WithDetail("status", strconv.Itoa(status))
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
