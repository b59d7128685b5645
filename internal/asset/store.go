package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("asset not found")
	ErrUnsupportedURL = errors.New("unsupported artwork url")
	ErrTooLarge       = errors.New("artwork too large")
	ErrHostNotAllowed = errors.New("artwork host not allowed")
)

// Store resolves decal source URLs into decoded images. It understands the
// server's own /assets/ paths, base64 data URLs and remote http(s) URLs.
type Store struct {
	dir         string
	client      *http.Client
	maxBytes    int64
	remoteHosts []string
}

type StoreOption func(*Store)

// WithHTTPClient replaces the client used for remote artwork.
func WithHTTPClient(c *http.Client) StoreOption {
	return func(s *Store) { s.client = c }
}

func WithMaxBytes(n int64) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithRemoteHosts allows http(s) artwork from the named hosts. An entry
// "*.example.com" matches any subdomain of example.com. Without it remote
// artwork is refused.
func WithRemoteHosts(hosts ...string) StoreOption {
	return func(s *Store) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				s.remoteHosts = append(s.remoteHosts, h)
			}
		}
	}
}

func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:      dir,
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxUploadSize,
	}
	for _, o := range opts {
		o(s)
	}

	// Redirects must stay on allowed hosts too.
	client := *s.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		if !s.hostAllowed(req.URL) {
			return fmt.Errorf("%w: %s", ErrHostNotAllowed, req.URL.Hostname())
		}
		return nil
	}
	s.client = &client
	return s
}

func (s *Store) hostAllowed(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range s.remoteHosts {
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

// Load fetches and decodes the artwork at url.
func (s *Store) Load(ctx context.Context, url string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(url, "/assets/"):
		return s.loadFile(strings.TrimPrefix(url, "/assets/"))
	case strings.HasPrefix(url, "data:"):
		return s.loadDataURL(url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return s.loadRemote(ctx, url)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
}

func (s *Store) loadFile(name string) (image.Image, error) {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, name)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	return decode(io.LimitReader(f, s.maxBytes))
}

func (s *Store) loadDataURL(url string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data url must be base64", ErrUnsupportedURL)
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > s.maxBytes {
		return nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return decode(bytes.NewReader(data))
}

func (s *Store) loadRemote(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	if !s.hostAllowed(u) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artwork: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read artwork: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	return decode(bytes.NewReader(data))
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode artwork: %w", err)
	}
	return img, nil
}
