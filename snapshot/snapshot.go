// Package snapshot captures the rendered dashboard page with headless Chrome.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"car-dashboard/utils"
)

// Capturer takes full-page screenshots of a URL.
type Capturer struct {
	chromeBin string
	logger    *utils.Logger
	retry     *utils.RetryConfig

	// Settle is how long to wait after load for chart images to arrive.
	Settle time.Duration
	// Quality is the screenshot quality; 100 or more encodes PNG.
	Quality int
	Timeout time.Duration
}

// New creates a Capturer. chromeBin may be empty to search the usual
// install locations.
func New(chromeBin string, maxRetries int, logger *utils.Logger) *Capturer {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &Capturer{
		chromeBin: chromeBin,
		logger:    logger,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		Settle:  3 * time.Second,
		Quality: 100,
		Timeout: 60 * time.Second,
	}
}

// Capture loads url and writes a full-page screenshot to path.
func (c *Capturer) Capture(ctx context.Context, url, path string) error {
	c.logger.Info("[snapshot] Using browser binary: %s", c.chromeBin)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	var buf []byte
	err := c.retry.Do(ctx, "snapshot "+url, func() error {
		tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.Timeout)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.EmulateViewport(1400, 900),
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(c.Settle),
			chromedp.FullScreenshot(&buf, c.Quality),
		)
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create output dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	c.logger.Info("[snapshot] Saved %s (%d bytes)", path, len(buf))
	return nil
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(c.chromeBin))
	}
	return opts
}

// findChromeBinary returns CHROME_BIN, a browser on PATH, or a well-known
// install path, in that order. Empty means let chromedp decide.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
