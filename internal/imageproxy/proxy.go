package imageproxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/curato/internal/media"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

const maxRedirects = 5

type Image struct {
	Data        []byte
	ContentType string
	ETag        string
}

type ProxyConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	CacheSize int
	CacheTTL  time.Duration
}

// Proxy fetches images from hotlink protected origins on behalf of browsers.
// Only hosts accepted by the resolver are fetched.
type Proxy struct {
	resolver  *Resolver
	client    *http.Client
	userAgent string
	maxBytes  int64
	cache     *expirable.LRU[string, *Image]
}

func NewProxy(resolver *Resolver, cfg ProxyConfig) *Proxy {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = media.DefaultUserAgent
	}
	p := &Proxy{
		resolver:  resolver,
		userAgent: userAgent,
		maxBytes:  maxBytes,
		cache:     expirable.NewLRU[string, *Image](size, nil, ttl),
	}
	p.client = &http.Client{Timeout: timeout, CheckRedirect: p.checkRedirect}
	return p
}

// checkRedirect keeps every hop of a redirect chain on the proxied hosts.
func (p *Proxy) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", appErr.ErrUpstreamFetch, maxRedirects)
	}
	if !p.resolver.MatchHost(req.URL.Hostname()) {
		return fmt.Errorf("%w: redirect to host %s is not proxied", appErr.ErrInvalid, req.URL.Hostname())
	}
	return nil
}

func (p *Proxy) Fetch(ctx context.Context, raw string) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", appErr.ErrMissingParameter)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %s", appErr.ErrInvalidURL, raw)
	}
	if !p.resolver.MatchHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: host %s is not proxied", appErr.ErrInvalid, u.Hostname())
	}
	if img, ok := p.cache.Get(raw); ok {
		return img, nil
	}
	img, err := p.download(ctx, u)
	if err != nil {
		logutil.GetLogger(ctx).Warn("image proxy fetch failed", zap.String("url", raw), zap.Error(err))
		return nil, err
	}
	p.cache.Add(raw, img)
	return img, nil
}

func (p *Proxy) download(ctx context.Context, u *url.URL) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Referer", refererFor(u))
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", appErr.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: upstream returned %d", appErr.ErrUpstreamFetch, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !media.IsSupportedImageType(contentType) {
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedMediaType, contentType)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", appErr.ErrUpstreamFetch, err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", appErr.ErrUpstreamFetch, p.maxBytes)
	}
	sum := sha256.Sum256(data)
	return &Image{
		Data:        data,
		ContentType: contentType,
		ETag:        hex.EncodeToString(sum[:16]),
	}, nil
}

func refererFor(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "xhscdn.com" || strings.HasSuffix(host, ".xhscdn.com"),
		host == "xiaohongshu.com" || strings.HasSuffix(host, ".xiaohongshu.com"),
		host == "xhslink.com" || strings.HasSuffix(host, ".xhslink.com"):
		return "https://www.xiaohongshu.com/"
	}
	return u.Scheme + "://" + u.Host + "/"
}
