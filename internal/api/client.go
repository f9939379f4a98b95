// Package api talks to the OpenVPN monitoring backend's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 4 << 10
)

// Server 受监控的 OpenVPN 服务器
// Server is one monitored OpenVPN server.
type Server struct {
	ID          ServerID `json:"id"`
	Name        string   `json:"name"`
	Host        string   `json:"host,omitempty"`
	Status      string   `json:"status,omitempty"`
	ClientCount int      `json:"clientCount,omitempty"`
}

// ServerID 服务器标识，后端可能以字符串或数字返回
// ServerID is a server identifier. The backend sends it either as a JSON
// string or as a number; both decode to the same text.
type ServerID string

func (id ServerID) String() string { return string(id) }

// UnmarshalJSON accepts "5", 5 and null.
func (id *ServerID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*id = ""
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ServerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("server id must be a string or number: %s", trimmed)
	}
	*id = ServerID(n.String())
	return nil
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: http %d", e.Status)
	}
	return fmt.Sprintf("api: http %d: %s", e.Status, e.Message)
}

// Options configures a Client.
type Options struct {
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client 后端 API 客户端
// Client is the backend API client. It also serves as the console
// endpoint resolver.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger zerolog.Logger
}

// NewClient parses baseURL and returns a client for it.
func NewClient(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("api base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", base.Scheme)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:   base,
		token:  opts.Token,
		http:   httpClient,
		logger: opts.Logger.With().Str("component", "api").Logger(),
	}, nil
}

// AuthHeader returns the headers that authenticate against the backend,
// for reuse on the hub upgrade request.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// ConsoleEndpoint resolves the hub URL for a server's console.
func (c *Client) ConsoleEndpoint(ctx context.Context, serverID string) (string, error) {
	if strings.TrimSpace(serverID) == "" {
		return "", fmt.Errorf("server id is empty")
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "api/servers/"+url.PathEscape(serverID)+"/console", &body); err != nil {
		return "", fmt.Errorf("resolve console endpoint: %w", err)
	}
	if strings.TrimSpace(body.URL) == "" {
		return "", fmt.Errorf("resolve console endpoint: backend returned no url")
	}
	endpoint, err := c.hubURL(body.URL)
	if err != nil {
		return "", fmt.Errorf("resolve console endpoint: %w", err)
	}
	return endpoint, nil
}

// ListServers returns every server known to the backend.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := c.getJSON(ctx, "api/servers", &servers); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	if servers == nil {
		servers = []Server{}
	}
	return servers, nil
}

// hubURL resolves ref against the base URL and maps http(s) to ws(s).
func (c *Client) hubURL(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse hub url: %w", err)
	}
	u = c.base.ResolveReference(u)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported hub url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse request path: %w", err)
	}
	endpoint := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.AuthHeader() {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", endpoint.Path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug().
		Str("path", endpoint.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint.Path, err)
	}
	return nil
}

// errorMessage extracts {"message"} or {"error"} from an error body, falling
// back to the trimmed text.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
