// Package network fetches pages and scripts over HTTP or from the local
// filesystem.
package network

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

// Config holds HTTP client settings.
type Config struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxRedirects caps redirects followed per request. Zero takes the
	// default; a negative value follows none.
	MaxRedirects int    `mapstructure:"max_redirects" yaml:"max_redirects"`
	UserAgent    string `mapstructure:"user_agent" yaml:"user_agent"`
	// MaxBodyBytes bounds a response body. Zero means unbounded.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// DefaultConfig returns the client settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
		UserAgent:    "vibedom/1.0",
		MaxBodyBytes: 16 << 20,
	}
}

// Client is an HTTP client with a cookie jar.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode  int
	Status      string
	Header      http.Header
	Body        []byte
	ContentType string
	// URL is the final URL after redirects.
	URL *url.URL
}

// NewClient creates a client from cfg. A zero Timeout, MaxRedirects or
// UserAgent takes its default.
func NewClient(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	switch {
	case cfg.MaxRedirects == 0:
		cfg.MaxRedirects = def.MaxRedirects
	case cfg.MaxRedirects < 0:
		cfg.MaxRedirects = 0
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}

	c := &Client{cfg: cfg}
	c.httpClient = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return errors.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}
	return c, nil
}

// Get performs a GET request and reads the whole body.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if c.cfg.MaxBodyBytes > 0 {
		r = io.LimitReader(body, c.cfg.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	if c.cfg.MaxBodyBytes > 0 && int64(len(data)) > c.cfg.MaxBodyBytes {
		return nil, errors.Errorf("response body exceeds %d bytes", c.cfg.MaxBodyBytes)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Header:      resp.Header,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL,
	}, nil
}

// decodeBody undoes the response's Content-Encoding. Closing the result
// does not close resp.Body.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		return gz, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "create deflate reader")
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return nil, errors.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// CloseIdleConnections closes connections kept alive by earlier requests.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
