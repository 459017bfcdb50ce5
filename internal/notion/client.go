package notion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/retry"
)

const pageSize = 100

// Client wraps the notionapi client for block listing, block updates and
// asset downloads. Every request goes through a transport that throttles
// client-side and retries network errors, 429 and 5xx with backoff.
type Client struct {
	api        *notionapi.Client
	httpClient *http.Client
	transport  *transport
}

// NewClient creates a client from the notion configuration section.
// httpClient, when set, supplies the underlying transport and timeout.
func NewClient(cfg config.NotionConfig, httpClient *http.Client) *Client {
	timeout := config.Duration(cfg.Timeout, 30*time.Second)
	var base http.RoundTripper
	if httpClient != nil {
		base = httpClient.Transport
		if httpClient.Timeout > 0 {
			timeout = httpClient.Timeout
		}
	}
	if base == nil {
		base = http.DefaultTransport
	}

	version := cfg.APIVersion
	if version == "" {
		version = config.DefaultNotionVersion
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = config.DefaultRateLimit
	}

	t := &transport{
		base:    base,
		target:  apiTarget(cfg.BaseURL),
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		policy:  retry.FromConfig(cfg.Retry),
		logger:  slog.Default().With("component", "notion"),
	}
	hc := &http.Client{Transport: t, Timeout: timeout}

	return &Client{
		api:        notionapi.NewClient(notionapi.Token(cfg.Token), notionapi.WithHTTPClient(hc), notionapi.WithVersion(version)),
		httpClient: hc,
		transport:  t,
	}
}

// SetRetryPolicy replaces the backoff policy.
func (c *Client) SetRetryPolicy(p retry.Policy) {
	c.transport.policy = p
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.transport.logger = logger
	}
}

// ListChildren returns every child block of blockID, following pagination.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]notionapi.Block, error) {
	var blocks []notionapi.Block
	page := &notionapi.Pagination{PageSize: pageSize}
	for {
		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), page)
		if err != nil {
			return nil, requestError(err, "failed to list block children", blockID)
		}
		blocks = append(blocks, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return blocks, nil
		}
		page.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}

// UpdateBlock patches a block.
func (c *Client) UpdateBlock(ctx context.Context, blockID string, update *notionapi.BlockUpdateRequest) error {
	if _, err := c.api.Block.Update(ctx, notionapi.BlockID(blockID), update); err != nil {
		return requestError(err, "failed to update block", blockID)
	}
	return nil
}

// Download fetches a hosted asset into dst. Asset URLs are pre-signed, so no
// Notion headers are sent.
func (c *Client) Download(ctx context.Context, assetURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, http.NoBody)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to create download request").Build()
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(err, "failed to download asset", "")
	}
	defer func() { _ = resp.Body.Close() }()

	f, err := os.Create(dst)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create asset file").
			WithContext("path", dst).
			Build()
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return errors.WrapError(err, errors.CategoryNetwork, "failed to write asset").
			WithContext("url", assetURL).
			Build()
	}
	return f.Close()
}

// requestError keeps classified transport errors and wraps anything else
// (decoding failures, cancellation) as a network error.
func requestError(err error, msg, blockID string) error {
	if classified, ok := errors.AsClassified(err); ok {
		return classified
	}
	b := errors.WrapError(err, errors.CategoryNetwork, msg)
	if blockID != "" {
		b = b.WithContext("block_id", blockID)
	}
	return b.Build()
}

// apiTarget returns the configured API origin when it differs from the
// public endpoint notionapi is built for.
func apiTarget(raw string) *url.URL {
	raw = strings.TrimRight(raw, "/")
	if raw == "" || raw == config.DefaultNotionBaseURL {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

var apiHost = strings.TrimPrefix(config.DefaultNotionBaseURL, "https://")

// transport throttles, retries and classifies HTTP exchanges. Requests to the
// public API host are redirected to target when one is configured.
type transport struct {
	base    http.RoundTripper
	target  *url.URL
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.GetBody != nil && req.Body != nil {
		defer func() { _ = req.Body.Close() }()
	}
	var resp *http.Response
	err := t.policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			t.logger.Debug("Retrying Notion request",
				logfields.Method(req.Method), logfields.URL(req.URL.String()), logfields.Attempt(attempt))
		}
		if err := t.limiter.Wait(ctx); err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "rate limiter wait aborted").Build()
		}
		out, err := t.prepare(req)
		if err != nil {
			return err
		}
		r, err := t.base.RoundTrip(out)
		if err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "failed to execute Notion request").
				Retryable().
				WithContext("method", out.Method).
				WithContext("url", out.URL.String()).
				Build()
		}
		if r.StatusCode >= 300 {
			defer func() { _ = r.Body.Close() }()
			return statusError(out, r)
		}
		resp = r
		return nil
	}, errors.IsRetryable)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// prepare clones req for one attempt, rewinding the body and applying the target origin.
func (t *transport) prepare(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.InternalError("failed to rewind request body").WithCause(err).Build()
		}
		out.Body = body
	}
	if t.target != nil && out.URL.Host == apiHost {
		out.URL.Scheme = t.target.Scheme
		out.URL.Host = t.target.Host
		out.URL.Path = path.Join("/", t.target.Path, out.URL.Path)
		out.Host = ""
	}
	return out, nil
}

func statusError(req *http.Request, resp *http.Response) error {
	limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

	builder := errors.NewError(errors.CategoryNetwork, fmt.Sprintf("Notion API error: %s", resp.Status))
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		builder = errors.AuthError(fmt.Sprintf("Notion API error: %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		builder = errors.NewError(errors.CategoryNotFound, fmt.Sprintf("Notion API error: %s", resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests:
		builder = builder.RateLimit()
	case resp.StatusCode >= 500:
		builder = builder.Retryable()
	}

	return builder.
		WithContext("code", resp.StatusCode).
		WithContext("method", req.Method).
		WithContext("url", req.URL.String()).
		WithContext("response", bodyStr).
		Build()
}

// StatusCode returns the HTTP status carried by a client error, or 0.
func StatusCode(err error) int {
	classified, ok := errors.AsClassified(err)
	if !ok {
		return 0
	}
	v, _ := classified.Context().Get("code")
	code, _ := v.(int)
	return code
}
