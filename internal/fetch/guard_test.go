package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// localOptions lets tests reach httptest servers on loopback.
func localOptions() *Options {
	opts := DefaultOptions()
	opts.AllowPrivateNetworks = true
	return opts
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"0.0.0.0", false},
		{"::", false},
		{"100.64.0.1", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublicIP(net.ParseIP(tt.ip)))
		})
	}
	assert.False(t, IsPublicIP(nil))
}

func TestURL_RefusesLoopback(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		_, _ = w.Write([]byte(`<html><head><title>internal-admin</title></head></html>`))
	}))
	defer server.Close()

	_, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockedAddress), err.Error())
	assert.False(t, hit)
}

func TestSiteReader_RefusesLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>internal-admin-secret</title></head></html>`))
	}))
	defer server.Close()

	meta, err := NewSiteReader(nil, nil, nil).Meta(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Nil(t, meta)
}

func TestCheckPublicURL(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, CheckPublicURL(ctx, "https://93.184.216.34/"))

	for _, raw := range []string{
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
		"http://10.0.0.5/",
	} {
		err := CheckPublicURL(ctx, raw)
		assert.ErrorIs(t, err, ErrBlockedAddress, raw)
	}

	var fetchErr *Error
	assert.ErrorAs(t, CheckPublicURL(ctx, "file:///etc/passwd"), &fetchErr)
	assert.ErrorAs(t, CheckPublicURL(ctx, "http://"), &fetchErr)
}
