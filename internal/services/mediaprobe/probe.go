// Package mediaprobe validates externally supplied media URLs before they
// are attached to a capsule. Validation is two-staged: a static URL check,
// then an HTTP probe through an SSRF-hardened client so authors cannot point
// capsule media at internal network targets.
package mediaprobe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"

	"keepsake/internal/services"
)

const component = "mediaprobe"

var allowedSchemes = []string{"http", "https"}

// blockedNetworks are rejected during the static check. The safe client also
// verifies resolved addresses at dial time, which covers DNS rebinding.
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

var blockedHostnames = []string{"localhost"}

// Info describes a probed media URL.
type Info struct {
	ContentType   string
	ContentLength int64
}

// Prober checks media URLs.
type Prober struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient overrides the probing client. Tests use this to reach
// loopback servers the hardened client refuses by design.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTimeout sets the probe timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// New builds a prober backed by an SSRF-hardened HTTP client: private,
// loopback, link-local, and metadata addresses are refused at dial time.
func New(opts ...Option) *Prober {
	p := &Prober{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		cfg := safeurl.GetConfigBuilder().
			SetTimeout(p.timeout).
			SetAllowedSchemes(allowedSchemes...).
			SetAllowedPorts(80, 443).
			Build()
		p.httpClient = safeurl.Client(cfg).Client
	}
	return p
}

// ValidateURL performs the static check: scheme, host presence, and literal
// IP screening. It never resolves DNS; resolved addresses are enforced by
// the probing client's dialer.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return services.Wrap(services.ErrValidation, component, "validate", "empty URL", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "validate", "invalid URL", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("disallowed scheme %q", scheme), nil)
	}

	host := parsed.Hostname()
	if host == "" {
		return services.Wrap(services.ErrValidation, component, "validate", "empty host", nil)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return services.Wrap(services.ErrValidation, component, "validate",
				fmt.Sprintf("blocked IP address %s", ip), nil)
		}
		return nil
	}
	if isBlockedHostname(host) {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("blocked host %s", host), nil)
	}
	return nil
}

// Probe validates the URL statically, then issues a request to confirm the
// asset is fetchable. Servers that reject HEAD are retried with GET.
func (p *Prober) Probe(ctx context.Context, rawURL string) (Info, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Info{}, err
	}

	info, err := p.request(ctx, http.MethodHead, rawURL)
	if err == nil {
		return info, nil
	}
	return p.request(ctx, http.MethodGet, rawURL)
}

func (p *Prober) request(ctx context.Context, method, rawURL string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return Info{}, services.Wrap(services.ErrValidation, component, "probe", "build request", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Info{}, services.Wrap(services.ErrTransient, component, "probe", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Info{}, services.Wrap(services.ErrValidation, component, "probe",
			fmt.Sprintf("status %d for %s", resp.StatusCode, method), nil)
	}
	return Info{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return true
		}
	}
	return false
}
