// Package browser manages headless Chrome sessions for the suite. One
// Session corresponds to one browser project (name + viewport) and supplies
// the operation closures the retry layer wraps: navigation, DOM queries,
// interactions, screenshots and script evaluation.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/config"
)

// clipboard permissions are granted up front so the primary copy strategy
// does not hit a permission prompt.
var (
	clipboardReadPermission  = cdpbrowser.PermissionDescriptor{Name: "clipboard-read"}
	clipboardWritePermission = cdpbrowser.PermissionDescriptor{Name: "clipboard-write"}
)

// Session is a single browser instance bound to one project configuration.
type Session struct {
	id      string
	project config.BrowserProject
	ctx     context.Context
	cancels []context.CancelFunc
	logger  *zap.Logger
	target  config.TargetConfig
}

// NewSession launches a browser for the given project and grants the
// clipboard permissions. The caller must Close the session.
func NewSession(parent context.Context, cfg *config.Config, project config.BrowserProject, logger *zap.Logger) (*Session, error) {
	width, height, err := ParseViewport(project.Viewport)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	log := logger.With(
		zap.String("session_id", sessionID),
		zap.String("project", project.Name),
		zap.String("viewport", project.Viewport),
	)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(width, height),
	)
	if cfg.Browser.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.ChromePath))
	}
	for _, arg := range cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)

	var ctxOpts []chromedp.ContextOption
	if cfg.Browser.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Sugar().Debugf))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		id:      sessionID,
		project: project,
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		logger:  log,
		target:  cfg.Target,
	}

	err = chromedp.Run(browserCtx, chromedp.Tasks{
		cdpbrowser.SetPermission(&clipboardReadPermission, cdpbrowser.PermissionSettingGranted).WithOrigin(""),
		cdpbrowser.SetPermission(&clipboardWritePermission, cdpbrowser.PermissionSettingGranted).WithOrigin(""),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser for project %s: %w", project.Name, err)
	}

	// Any javascript dialog would otherwise hang the run; accept them all.
	chromedp.ListenTarget(browserCtx, func(ev any) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(true)); err != nil {
					log.Warn("failed to dismiss javascript dialog", zap.Error(err))
				}
			}()
		}
	})

	log.Info("browser session started")
	return s, nil
}

// Close tears the browser down. Safe to call after a failed start.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Context returns the chromedp context for this session.
func (s *Session) Context() context.Context { return s.ctx }

// Project returns the browser project name.
func (s *Session) Project() string { return s.project.Name }

// Viewport returns the viewport label, e.g. "1920x1080".
func (s *Session) Viewport() string { return s.project.Viewport }

// run executes chromedp actions on a context derived from the session's
// browser context. chromedp only accepts contexts it created, so the caller's
// ctx cannot carry the tasks itself; its deadline and cancellation are still
// honored by tearing the derived context down when ctx ends.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the document plus the configured
// post-load settle time.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.target.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.target.NavigationTimeout)
		defer cancel()
	}
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.target.PostLoadWait > 0 {
		tasks = append(tasks, chromedp.Sleep(s.target.PostLoadWait))
	}
	if err := s.run(ctx, tasks); err != nil {
		return fmt.Errorf("navigation failed for %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the first element matched by selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// SetValue replaces the value of an input or textarea.
func (s *Session) SetValue(ctx context.Context, selector, value string) error {
	return s.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

// Text returns the visible text of the first matched element.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery))
	return out, err
}

// AttributeValue reads an attribute from the first matched element.
func (s *Session) AttributeValue(ctx context.Context, selector, name string) (string, bool, error) {
	var value string
	var ok bool
	err := s.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

// Screenshot captures a full-page screenshot as PNG bytes. Writing the file
// is the caller's responsibility.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// Evaluate runs expression in the page, awaiting promises, and decodes the
// result into result. It implements the Evaluator interface the clipboard
// chain depends on.
func (s *Session) Evaluate(ctx context.Context, expression string, result any) error {
	return s.run(ctx, chromedp.Evaluate(expression, result,
		func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// ParseViewport splits a "WIDTHxHEIGHT" label into its dimensions.
func ParseViewport(v string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(v), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid viewport %q, want WIDTHxHEIGHT", v)
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport width in %q: %w", v, err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport height in %q: %w", v, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("viewport dimensions in %q must be positive", v)
	}
	return width, height, nil
}
