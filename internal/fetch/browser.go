package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// A4 paper size in inches.
const (
	A4Width  = 8.27
	A4Height = 11.69
)

// DefaultRenderTimeout bounds one headless Chrome session.
const DefaultRenderTimeout = 30 * time.Second

// Browser drives a headless Chrome. Chrome or Chromium must be installed.
type Browser struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewBrowser creates a Browser. A zero timeout uses DefaultRenderTimeout.
func NewBrowser(timeout time.Duration, logger *zap.Logger) *Browser {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{timeout: timeout, logger: logger.Named("browser")}
}

// run starts a fresh headless browser, runs actions and shuts it down.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	return chromedp.Run(browserCtx, actions...)
}

// RenderPage loads url, waits for scripts to settle and returns the rendered
// HTML. Used for sites whose static HTML carries no title or description.
func (b *Browser) RenderPage(ctx context.Context, url string) (string, error) {
	b.logger.Debug("Rendering page", zap.String("url", url))

	var html string
	err := b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	b.logger.Debug("Rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// PrintPDF renders an HTML document to an A4 PDF with backgrounds.
func (b *Browser) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	var pdf []byte
	err := b.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(A4Width).
				WithPaperHeight(A4Height).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}

	b.logger.Debug("Printed PDF", zap.Int("bytes", len(pdf)))
	return pdf, nil
}
