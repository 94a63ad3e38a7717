package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultAPIURL is the GitHub REST endpoint
	DefaultAPIURL = "https://api.github.com"
	// DefaultRawURL is the raw content CDN
	DefaultRawURL = "https://raw.githubusercontent.com"
	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 30 * time.Second
)

// ClientOptions configures a Client. Empty fields fall back to defaults.
type ClientOptions struct {
	APIURL     string
	RawURL     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the GitHub REST API and the raw content CDN.
type Client struct {
	http   *http.Client
	apiURL string
	rawURL string
	token  string
	logger *zap.Logger
}

// NewClient creates a new GitHub client
func NewClient(opts ClientOptions) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.RawURL == "" {
		opts.RawURL = DefaultRawURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:   httpClient,
		apiURL: strings.TrimRight(opts.APIURL, "/"),
		rawURL: strings.TrimRight(opts.RawURL, "/"),
		token:  strings.TrimSpace(opts.Token),
		logger: logger,
	}
}

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

// Tree is a recursive tree listing.
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
}

// DefaultBranch returns the repository's default branch, or "main" when the
// metadata does not name one.
func (c *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var meta repoResponse
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, url.PathEscape(owner), url.PathEscape(repo))
	if err := c.getJSON(ctx, endpoint, &meta); err != nil {
		return "", err
	}
	if meta.DefaultBranch == "" {
		return "main", nil
	}
	return meta.DefaultBranch, nil
}

// Tree returns the complete recursive listing for ref in a single request.
func (c *Client) Tree(ctx context.Context, owner, repo, ref string) (*Tree, error) {
	var tree Tree
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.apiURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))
	if err := c.getJSON(ctx, endpoint, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// Contents fetches a file through the contents API and decodes it. Payloads
// that are not base64 encoded are reported as errors so callers can fall back.
func (c *Client) Contents(ctx context.Context, owner, repo, filePath, ref string) (string, error) {
	var payload contentResponse
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.apiURL, url.PathEscape(owner), url.PathEscape(repo), escapePath(filePath), url.QueryEscape(ref))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if payload.Encoding != "base64" || payload.Content == "" {
		return "", fmt.Errorf("unsupported content encoding %q for %s", payload.Encoding, filePath)
	}
	return DecodeContent(payload.Content)
}

// Raw fetches a file from the raw CDN, reading at most limit+1 bytes.
// Raw requests are never authenticated, so private repositories 404 here.
func (c *Client) Raw(ctx context.Context, owner, repo, ref, filePath string, limit int) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s",
		c.rawURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref), escapePath(filePath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, int64(limit)+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", endpoint, err)
	}
	if limit > 0 && len(data) > limit {
		return "", errTooLarge
	}
	return string(data), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("github request failed",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("ratelimit_remaining", resp.Header.Get("X-RateLimit-Remaining")))
		return &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// escapePath escapes each segment of a repository path
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
