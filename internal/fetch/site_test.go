package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteReader_Meta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Acme</title><meta name="description" content="Rockets"></head></html>`))
	}))
	defer server.Close()

	r := NewSiteReader(localOptions(), nil, nil)
	meta, err := r.Meta(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme", meta.Title)
	assert.Equal(t, "Rockets", meta.Description)
}

func TestSiteReader_NoBrowserKeepsEmptyMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	meta, err := NewSiteReader(localOptions(), nil, nil).Meta(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.Description)
}

func TestSiteReader_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSiteReader(localOptions(), nil, nil).Meta(context.Background(), server.URL)
	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
}

func TestNewBrowser_Defaults(t *testing.T) {
	b := NewBrowser(0, nil)
	assert.Equal(t, DefaultRenderTimeout, b.timeout)
	assert.NotNil(t, b.logger)
}
