package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, localOptions())
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html", result.ContentType)
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "http://", nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, localOptions())
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"acme.com":              "https://acme.com",
		" https://acme.com/x ":  "https://acme.com/x",
		"HTTP://acme.com":       "HTTP://acme.com",
		"":                      "",
		"www.acme.com/about-us": "https://www.acme.com/about-us",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestExtractMeta(t *testing.T) {
	html := `
	<html>
		<head>
			<title>
				Acme Health | Secure Records
			</title>
			<meta name="description" content="Cloud records for   clinics.">
			<meta name="keywords" content="healthcare, compliance, ,security">
		</head>
		<body>
			<nav>Menu</nav>
			<h1>Patient data, simplified</h1>
			<main><h2>Built for compliance</h2><p>HIPAA ready.</p></main>
		</body>
	</html>`

	meta, err := ExtractMeta(html)
	require.NoError(t, err)
	assert.Equal(t, "Acme Health | Secure Records", meta.Title)
	assert.Equal(t, "Cloud records for clinics.", meta.Description)
	assert.Equal(t, []string{"healthcare", "compliance", "security"}, meta.Keywords)
	assert.Equal(t, []string{"Patient data, simplified", "Built for compliance"}, meta.Headings)
	assert.Contains(t, meta.Text, "HIPAA ready.")
	assert.NotContains(t, meta.Text, "Menu")
}

func TestExtractMeta_OpenGraphFallback(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Beta Corp">
		<meta property="og:description" content="Payments infrastructure">
	</head><body></body></html>`

	meta, err := ExtractMeta(html)
	require.NoError(t, err)
	assert.Equal(t, "Beta Corp", meta.Title)
	assert.Equal(t, "Payments infrastructure", meta.Description)
	assert.Empty(t, meta.Keywords)
}

func TestExtractMainText_WithMainElement(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Main Content</h1>
				<p>This is the important text.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Main Content")
	assert.Contains(t, text, "important text")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
}

func TestExtractMainText_FallbackToBody(t *testing.T) {
	html := `
	<html>
		<body>
			<div class="sidebar">Sidebar junk</div>
			<div>Some content here.</div>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Some content here")
	assert.NotContains(t, text, "Sidebar junk")
}

func TestExtractMainText_NoiseSelectors(t *testing.T) {
	html := `<html><body><main><p>Keep</p><div class="promo">Drop</div></main></body></html>`

	text, err := ExtractMainText(html, DefaultTextSelectors(), ".promo")
	require.NoError(t, err)
	assert.Equal(t, "Keep", text)
}
