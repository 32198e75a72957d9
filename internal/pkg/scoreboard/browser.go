package scoreboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// Browser keeps a headless Chrome tab on the scores page. It is the
// driver's snapshot source and implements tracker.Session so the tab can
// be released across long sleeps.
type Browser struct {
	url         string
	showBrowser bool
	timeout     time.Duration
	userAgent   string
	now         func() time.Time

	chromeDir   string
	ctx         context.Context
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
}

var (
	_ tracker.SnapshotSource = (*Browser)(nil)
	_ tracker.Session        = (*Browser)(nil)
)

func NewBrowser(cfg config.ScoreboardConfig) *Browser {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Browser{
		url:         cfg.URL,
		showBrowser: cfg.ShowBrowser,
		timeout:     cfg.PageTimeout,
		userAgent:   ua,
		now:         time.Now,
	}
}

// Open starts Chrome and loads the scores page.
func (b *Browser) Open(ctx context.Context) error {
	if b.ctx != nil {
		return nil
	}
	chromeDir, err := os.MkdirTemp("", "mlb_scraper_chrome_")
	if err != nil {
		return fmt.Errorf("create chrome temp dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !b.showBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserDataDir(chromeDir),
		chromedp.UserAgent(b.userAgent),
	)
	// The browser outlives any single request context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		slog.Debug("chromedp", "message", fmt.Sprintf(format, v...))
	}))
	b.chromeDir, b.ctx, b.allocCancel, b.tabCancel = chromeDir, tabCtx, allocCancel, tabCancel

	// An empty Run allocates the browser on the long-lived context.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = b.Close()
		return fmt.Errorf("start chrome: %w", err)
	}
	if err := b.run(ctx, chromedp.Navigate(b.url), chromedp.WaitReady("#scores-schedule-root", chromedp.ByQuery)); err != nil {
		_ = b.Close()
		return fmt.Errorf("load %s: %w", b.url, err)
	}
	slog.Info("Scoreboard page opened", "url", b.url)
	return nil
}

// Snapshots reads the current page and parses its game cards.
func (b *Browser) Snapshots(ctx context.Context) ([]tracker.Snapshot, error) {
	if b.ctx == nil {
		if err := b.Open(ctx); err != nil {
			return nil, err
		}
	}
	var page string
	if err := b.run(ctx, chromedp.OuterHTML("main", &page, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read scores page: %w", err)
	}
	cards, err := Parse(strings.NewReader(page), b.now())
	if err != nil {
		return nil, err
	}
	out := make([]tracker.Snapshot, len(cards))
	for i, c := range cards {
		out[i] = c
	}
	return out, nil
}

// Close shuts Chrome down. Safe to call when not open.
func (b *Browser) Close() error {
	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	var err error
	if b.chromeDir != "" {
		err = os.RemoveAll(b.chromeDir)
	}
	b.ctx, b.tabCancel, b.allocCancel, b.chromeDir = nil, nil, nil, ""
	return err
}

// run executes actions on the tab, bounded by the page timeout and by ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
