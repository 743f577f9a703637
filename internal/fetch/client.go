package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// MaxBodySize caps how much of a remote RFP is read.
const MaxBodySize = 10 << 20

type Client interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// ErrBlockedAddress is returned when a URL resolves to a non-public address.
var ErrBlockedAddress = errors.New("rfp fetch: destination address not allowed")

// carrier-grade NAT range, not covered by netip's IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

type HTTPClient struct {
	httpClient   *http.Client
	allowPrivate bool
}

// NewClient returns a client that only connects to public addresses. The
// check runs on every dial, so redirects and DNS answers are covered too.
func NewClient(timeout time.Duration) *HTTPClient {
	c := &HTTPClient{}

	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: c.control,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would hide the real destination from the dial check
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	return c
}

func (c *HTTPClient) control(network, address string, _ syscall.RawConn) error {
	if c.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if blocked(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

func blocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// ValidURL reports whether s is an absolute http(s) URL.
func ValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FetchText downloads rawURL and returns its body as text.
func (c *HTTPClient) FetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf(
			"rfp fetch error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), ""), nil
}
