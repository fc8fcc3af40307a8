package network

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Resource is a loaded page or script.
type Resource struct {
	// URL is the final location, after redirects. Local files get a file:// URL.
	URL         string
	Content     []byte
	ContentType string
	Charset     string
}

// Loader resolves locations against the filesystem or the network.
type Loader struct {
	client *Client
	logger *zap.Logger
}

// NewLoader creates a loader using client for http and https locations.
func NewLoader(client *Client, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{client: client, logger: logger.Named("network")}
}

// Load reads location, which is an http(s) URL, a file:// URL or a
// filesystem path. A response outside the 2xx range is an error.
func (l *Loader) Load(ctx context.Context, location string) (*Resource, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return l.loadFile(location)
	}
	switch u.Scheme {
	case "file":
		return l.loadFile(u.Path)
	case "http", "https":
		return l.loadHTTP(ctx, u.String())
	}
	return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
}

func (l *Loader) loadFile(path string) (*Resource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve path")
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	l.logger.Debug("loaded file", zap.String("path", abs), zap.Int("bytes", len(content)))
	return &Resource{
		URL:         u.String(),
		Content:     content,
		ContentType: mime.TypeByExtension(filepath.Ext(abs)),
	}, nil
}

func (l *Loader) loadHTTP(ctx context.Context, rawURL string) (*Resource, error) {
	if l.client == nil {
		return nil, errors.New("no http client configured")
	}
	resp, err := l.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	mediaType, charset := ParseContentType(resp.ContentType)
	l.logger.Debug("loaded url",
		zap.String("url", resp.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)))
	return &Resource{
		URL:         resp.URL.String(),
		Content:     resp.Body,
		ContentType: mediaType,
		Charset:     charset,
	}, nil
}

// ResolveURL resolves ref against base. An absolute ref is returned as is.
func ResolveURL(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrap(err, "invalid reference URL")
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "invalid base URL")
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// ParseContentType splits a Content-Type header into its media type and charset.
func ParseContentType(contentType string) (mediaType, charset string) {
	if contentType == "" {
		return "application/octet-stream", ""
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mediaType)), ""
	}
	return mediaType, params["charset"]
}
