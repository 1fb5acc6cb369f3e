package statement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	appsettlement "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
)

// A4 in inches with 10mm margins
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.39
)

// ChromeRenderer prints statements to PDF through the DevTools protocol
type ChromeRenderer struct {
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer connects to cfg.ChromeURL, or launches a local headless
// Chrome per render when it is empty.
func NewChromeRenderer(cfg config.StatementConfig, logger *zap.Logger) *ChromeRenderer {
	r := &ChromeRenderer{timeout: cfg.Timeout, logger: logger}
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}

	if cfg.ChromeURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.ChromeURL)
		return r
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// Render implements appsettlement.StatementRenderer
func (r *ChromeRenderer) Render(ctx context.Context, st *appsettlement.Statement) ([]byte, error) {
	html, err := HTML(st)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tab, closeTab := chromedp.NewContext(r.allocCtx)
	defer closeTab()
	// bind the tab to the request deadline
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var pdf []byte
	err = chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("statement rendering timed out after %v: %w", r.timeout, err)
		}
		r.logger.Error("Statement rendering failed", zap.Error(err))
		return nil, fmt.Errorf("statement rendering failed: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("statement rendering produced an empty document")
	}

	r.logger.Debug("Statement rendered",
		zap.Int("lines", len(st.Lines)),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Close releases the browser allocator
func (r *ChromeRenderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}
