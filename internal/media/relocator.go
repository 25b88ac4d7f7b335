package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/curato/internal/filestore"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

const (
	defaultPathPrefix = "imported"
	tokenAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenLength       = 7
)

// DefaultUserAgent is sent when no user agent is configured. Some image
// hosts refuse clients that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Options struct {
	PathPrefix       string
	ToleratesFailure bool
	// OnProgress is called with the 1-based index after every element of a batch.
	OnProgress func(current, total int)
}

type Config struct {
	UserAgent    string
	FetchTimeout time.Duration
	MaxBytes     int64
	MaxRetries   int
	HostInterval time.Duration
}

// Relocator copies externally hosted images into the file store.
type Relocator struct {
	store      filestore.Store
	client     *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    *hostLimiter
	now        func() time.Time
	token      func() string
}

func NewRelocator(store filestore.Store, cfg Config) *Relocator {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Relocator{
		store:      store,
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		maxRetries: cfg.MaxRetries,
		limiter:    newHostLimiter(cfg.HostInterval),
		now:        time.Now,
		token:      randomToken,
	}
}

// RelocateOne downloads sourceURL and stores it, returning the stored object's URL.
// With ToleratesFailure set, any failure yields sourceURL unchanged.
func (r *Relocator) RelocateOne(ctx context.Context, sourceURL string, opts Options) (string, error) {
	stored, err := r.relocate(ctx, sourceURL, opts.PathPrefix)
	if err != nil {
		if opts.ToleratesFailure {
			logutil.GetLogger(ctx).Warn("image relocation failed, keep original url",
				zap.String("url", sourceURL),
				zap.Error(err),
			)
			return sourceURL, nil
		}
		return "", err
	}
	logutil.GetLogger(ctx).Debug("image relocated",
		zap.String("url", sourceURL),
		zap.String("stored", stored),
	)
	return stored, nil
}

// RelocateMany relocates urls one after another. The result keeps the input
// length and order. Without ToleratesFailure the first error aborts the batch.
func (r *Relocator) RelocateMany(ctx context.Context, urls []string, opts Options) ([]string, error) {
	results := make([]string, 0, len(urls))
	total := len(urls)
	for i, src := range urls {
		stored, err := r.RelocateOne(ctx, src, opts)
		if err != nil {
			if !opts.ToleratesFailure {
				notifyProgress(opts.OnProgress, i+1, total)
				return nil, fmt.Errorf("relocate image %d/%d: %w", i+1, total, err)
			}
			logutil.GetLogger(ctx).Warn("image relocation failed in batch",
				zap.Int("index", i+1),
				zap.Int("total", total),
				zap.Error(err),
			)
			stored = src
		}
		results = append(results, stored)
		notifyProgress(opts.OnProgress, i+1, total)
	}
	return results, nil
}

func (r *Relocator) relocate(ctx context.Context, sourceURL string, prefix string) (string, error) {
	u, err := parseSourceURL(sourceURL)
	if err != nil {
		return "", err
	}
	data, contentType, err := r.fetchWithRetry(ctx, u)
	if err != nil {
		return "", err
	}
	key := r.buildKey(prefix, contentType)
	if err := r.store.Save(ctx, key, bytes.NewReader(data), int64(len(data)), filestore.PutOptions{
		ContentType: contentType,
		Public:      true,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return r.store.URL(key), nil
}

func (r *Relocator) fetchWithRetry(ctx context.Context, u *url.URL) ([]byte, string, error) {
	var data []byte
	var contentType string
	operation := func() error {
		var err error
		data, contentType, err = r.fetch(ctx, u)
		return err
	}
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if r.maxRetries > 0 {
		policy = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.maxRetries))
	}
	notify := func(err error, wait time.Duration) {
		logutil.GetLogger(ctx).Debug("retry image fetch",
			zap.String("url", u.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (r *Relocator) fetch(ctx context.Context, u *url.URL) ([]byte, string, error) {
	if err := r.limiter.Wait(ctx, u.Host); err != nil {
		return nil, "", backoff.Permanent(fmt.Errorf("%w: %v", appErr.ErrUpstreamFetch, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", backoff.Permanent(fmt.Errorf("%w: %v", appErr.ErrInvalidURL, err))
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", backoff.Permanent(fmt.Errorf("%w: %v", appErr.ErrUpstreamFetch, err))
		}
		return nil, "", fmt.Errorf("%w: %v", appErr.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: %s returned %d %s", appErr.ErrUpstreamFetch, u.String(), resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, "", err
		}
		return nil, "", backoff.Permanent(err)
	}
	contentType := normalizeContentType(resp.Header.Get("Content-Type"))
	if !IsSupportedImageType(contentType) {
		return nil, "", backoff.Permanent(fmt.Errorf("%w: %s", appErr.ErrUnsupportedMediaType, contentType))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", appErr.ErrUpstreamFetch, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, "", backoff.Permanent(fmt.Errorf("%w: image exceeds %d bytes", appErr.ErrUpstreamFetch, r.maxBytes))
	}
	return data, contentType, nil
}

func (r *Relocator) buildKey(prefix, contentType string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultPathPrefix
	}
	return fmt.Sprintf("%s/%d_%s.%s", prefix, r.now().UnixMilli(), r.token(), ExtensionFor(contentType))
}

func parseSourceURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", appErr.ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %s is not absolute", appErr.ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %s", appErr.ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

func notifyProgress(fn func(current, total int), current, total int) {
	if fn != nil {
		fn(current, total)
	}
}

func randomToken() string {
	buf := make([]byte, tokenLength)
	limit := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			buf[i] = tokenAlphabet[time.Now().UnixNano()%int64(len(tokenAlphabet))]
			continue
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf)
}
