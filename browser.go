package invoicepdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-invoicepdf/internal/fileutil"
	"github.com/alnah/go-invoicepdf/internal/process"
)

// Viewport used for rendered documents, in CSS pixels.
const (
	viewportWidth  = 1280
	viewportHeight = 1024
)

// surfaceOpener loads an HTML document and exposes it as a Surface.
// The returned release function closes the document.
type surfaceOpener interface {
	Open(ctx context.Context, htmlContent string) (Surface, func() error, error)
	Close() error
}

var _ surfaceOpener = (*rodOpener)(nil)

// rodOpener renders documents in headless Chrome via go-rod.
// Rod downloads Chromium on first run if no browser is found.
type rodOpener struct {
	timeout time.Duration
	logger  *slog.Logger
	sandbox bool
	guard   requestGuard

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRodOpener(timeout time.Duration, logger *slog.Logger, sandbox bool) *rodOpener {
	return &rodOpener{timeout: timeout, logger: logger, sandbox: sandbox, guard: newRequestGuard()}
}

// ensureBrowser lazily launches and connects to the browser.
func (o *rodOpener) ensureBrowser() (*rod.Browser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.browser != nil {
		return o.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	o.launcher = l
	o.browser = browser
	o.logger.Debug("browser: launched", "pid", l.PID())
	return browser, nil
}

// Open loads htmlContent in a new page. Trusted documents are written to a
// temp file so relative file URLs resolve; sandboxed documents are set in
// place on about:blank.
func (o *rodOpener) Open(ctx context.Context, htmlContent string) (Surface, func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	browser, err := o.ensureBrowser()
	if err != nil {
		return nil, nil, err
	}

	var page *rod.Page
	var release func() error
	if o.sandbox {
		page, release, err = o.newSandboxedPage(browser)
	} else {
		page, release, err = o.newFilePage(browser, htmlContent)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		_ = release()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	// Wait for page to load with timeout from context or default
	timeout := o.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			_ = release()
			return nil, nil, context.DeadlineExceeded
		}
	}

	if o.sandbox {
		if err := page.Timeout(timeout).SetDocumentContent(htmlContent); err != nil {
			_ = release()
			return nil, nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		_ = release()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	return newRodSurface(page), release, nil
}

// newFilePage writes htmlContent to a temp file and navigates to it.
func (o *rodOpener) newFilePage(browser *rod.Browser, htmlContent string) (*rod.Page, func() error, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	return page, func() error {
		defer cleanup()
		return page.Close()
	}, nil
}

// newSandboxedPage opens about:blank with scripts disabled and every
// request checked against the guard.
func (o *rodOpener) newSandboxedPage(browser *rod.Browser) (*rod.Page, func() error, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
		_ = page.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	router := page.HijackRequests()
	err = router.Add("*", "", func(h *rod.Hijack) {
		u := h.Request.URL()
		if !o.guard.allow(context.Background(), u) {
			o.logger.Warn("browser: request blocked", "url", u.Redacted())
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		_ = page.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	go router.Run()

	return page, func() error {
		_ = router.Stop()
		return page.Close()
	}, nil
}

// Close shuts the browser down and kills its process group.
func (o *rodOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	if o.browser != nil {
		errs = append(errs, o.browser.Close())
		o.browser = nil
	}
	if o.launcher != nil {
		process.KillProcessGroup(o.launcher.PID())
		o.launcher.Kill()
		o.launcher.Cleanup()
		o.launcher = nil
	}
	return errors.Join(errs...)
}
