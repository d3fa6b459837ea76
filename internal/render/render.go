// Package render implements the external "navigate and print" render
// operation spec.md treats as an abstract collaborator: render(url) →
// file. It is invoked by the render worker against a Handle it holds
// exclusively for the duration of one render.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Options configures one render invocation (spec.md §4.5/§6).
type Options struct {
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	NavTimeout     time.Duration
	Stealth        bool
	OutputPath     string
}

// Render opens a new page on browser, navigates to url, prints it to
// OutputPath as a PDF, and closes the page. The browser itself is not
// touched beyond opening/closing one page — ownership of the handle
// stays with the caller.
func Render(browser *rod.Browser, url string, opts Options, logger *slog.Logger) error {
	var page *rod.Page
	var err error

	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return &types.RenderError{URL: url, Err: fmt.Errorf("open page: %w", err)}
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("page close error", "error", cerr)
		}
	}()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.ViewportWidth,
		Height: opts.ViewportHeight,
	}); err != nil {
		logger.Warn("set viewport failed", "error", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: opts.UserAgent,
		}); err != nil {
			logger.Warn("set user agent failed", "error", err)
		}
	}

	timeout := opts.NavTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	waitPage := page.Timeout(timeout)
	if err := waitPage.Navigate(url); err != nil {
		return &types.RenderError{URL: url, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := waitPage.WaitStable(300 * time.Millisecond); err != nil {
		logger.Warn("dom stable wait timed out, continuing", "url", url, "error", err)
	}

	pdfReader, err := page.Timeout(timeout).PDF(&proto.PagePrintToPDF{
		Landscape:         false,
		PrintBackground:   false,
		PreferCSSPageSize: true,
		PaperWidth:        8.27, // A4
		PaperHeight:       11.69,
		MarginTop:         0.5, // inches
		MarginBottom:      0.5,
		MarginLeft:        0.5,
		MarginRight:       0.5,
	})
	if err != nil {
		return &types.RenderError{URL: url, Err: fmt.Errorf("print to pdf: %w", err)}
	}

	out, err := os.Create(opts.OutputPath)
	if err != nil {
		return &types.RenderError{URL: url, Err: fmt.Errorf("create output file: %w", err)}
	}
	defer out.Close()

	if _, err := io.Copy(out, pdfReader); err != nil {
		return &types.RenderError{URL: url, Err: fmt.Errorf("write pdf: %w", err)}
	}

	return nil
}
