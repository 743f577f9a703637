package fetch

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLocalClient can reach httptest servers on loopback.
func newLocalClient() *HTTPClient {
	c := NewClient(time.Second)
	c.allowPrivate = true
	return c
}

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Solicitation W912-24-R-0001"))
	}))
	defer srv.Close()

	text, err := newLocalClient().FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Solicitation W912-24-R-0001", text)
}

func TestFetchText_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := newLocalClient().FetchText(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "status=410")
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://sam.gov/opp/123"))
	assert.True(t, ValidURL("http://example.com"))
	assert.False(t, ValidURL("ftp://example.com/rfp.pdf"))
	assert.False(t, ValidURL("not a url"))
	assert.False(t, ValidURL("https://"))
}

func TestFetchText_RefusesInternalAddresses(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("instance metadata"))
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).FetchText(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits)
}

func TestFetchText_RefusesRedirectToInternalAddress(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret"))
	}))
	defer internal.Close()

	c := NewClient(time.Second)
	// the first hop is allowed, every later dial is checked
	var dials int
	transport := c.httpClient.Transport.(*http.Transport)
	inner := transport.DialContext
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials++
		if dials == 1 {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		}
		return inner(ctx, network, addr)
	}
	transport.DisableKeepAlives = true

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL, http.StatusFound)
	}))
	defer public.Close()

	_, err := c.FetchText(context.Background(), public.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestBlocked(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.10", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, blocked(netip.MustParseAddr(tt.addr)))
		})
	}
}
