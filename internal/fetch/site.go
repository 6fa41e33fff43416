package fetch

import (
	"context"

	"go.uber.org/zap"
)

// SiteReader reads what a company's homepage says about itself.
type SiteReader struct {
	opts    *Options
	browser *Browser
	logger  *zap.Logger
}

// NewSiteReader creates a SiteReader. browser may be nil, in which case
// script-rendered sites yield only what their static HTML carries.
func NewSiteReader(opts *Options, browser *Browser, logger *zap.Logger) *SiteReader {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteReader{opts: opts, browser: browser, logger: logger.Named("site")}
}

// Meta fetches url and extracts its metadata. When the static page has
// neither title nor description, the page is rendered in the browser.
func (r *SiteReader) Meta(ctx context.Context, url string) (*PageMeta, error) {
	res, err := URL(ctx, url, r.opts)
	if err != nil {
		return nil, err
	}

	meta, err := ExtractMeta(res.HTML)
	if err != nil {
		return nil, err
	}
	if meta.Title != "" || meta.Description != "" || r.browser == nil {
		return meta, nil
	}

	if !r.opts.AllowPrivateNetworks {
		if err := CheckPublicURL(ctx, res.URL); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("Static page has no metadata, rendering", zap.String("url", res.URL))
	html, err := r.browser.RenderPage(ctx, res.URL)
	if err != nil {
		r.logger.Warn("Browser rendering failed", zap.String("url", res.URL), zap.Error(err))
		return meta, nil
	}
	return ExtractMeta(html)
}
