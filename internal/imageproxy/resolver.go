package imageproxy

import (
	"net/url"
	"strings"
)

// DefaultDomains are origins that reject image requests carrying a foreign referer.
var DefaultDomains = []string{
	"xhscdn.com",
	"xiaohongshu.com",
	"xhslink.com",
	"alibaba.com",
	"taobao.com",
	"tmall.com",
	"alicdn.com",
}

const DefaultEndpoint = "/api/v1/image-proxy"

type Resolver struct {
	endpoint string
	domains  []string
}

func NewResolver(endpoint string, domains []string) *Resolver {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if len(domains) == 0 {
		domains = DefaultDomains
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Resolver{endpoint: endpoint, domains: normalized}
}

// ResolveDisplayURL returns the url a browser should load for raw. Hotlink
// protected origins are routed through the proxy endpoint, anything else
// (including unparsable input) comes back unchanged. ok is false for empty input.
func (r *Resolver) ResolveDisplayURL(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	if !r.NeedsProxy(raw) {
		return raw, true
	}
	return r.endpoint + "?url=" + url.QueryEscape(raw), true
}

func (r *Resolver) NeedsProxy(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return r.MatchHost(u.Hostname())
}

// MatchHost reports whether host equals a listed domain or is a subdomain of one.
func (r *Resolver) MatchHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, d := range r.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// ResolveAll maps ResolveDisplayURL over urls, dropping empty entries.
func (r *Resolver) ResolveAll(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if resolved, ok := r.ResolveDisplayURL(u); ok {
			out = append(out, resolved)
		}
	}
	return out
}
