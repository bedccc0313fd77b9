// Package suite defines the test cases for the events calendar widget
// generator page. Cases are plain data handed to the runner; each body
// drives the page object and returns an error to fail. Assertion errors are
// worded so the failure classifier buckets them as AssertionFailed.
package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/widgetprobe/internal/artifacts"
	"github.com/xkilldash9x/widgetprobe/internal/runner"
	"github.com/xkilldash9x/widgetprobe/internal/widget"
)

// Cases returns the full registry. The runner applies the category filter.
func Cases() []runner.Case {
	return []runner.Case{
		{
			ID:       "SMK-01",
			Title:    "widget page opens",
			Category: artifacts.CategorySmoke,
			Fn:       widgetPageOpens,
		},
		{
			ID:       "SMK-02",
			Title:    "generator form accepts input",
			Category: artifacts.CategorySmoke,
			Fn:       generatorFormAcceptsInput,
		},
		{
			ID:       "FUN-10",
			Title:    "generate produces a valid embed snippet",
			Category: artifacts.CategoryFunctional,
			Fn:       generateProducesEmbedSnippet,
		},
		{
			ID:       "FUN-12",
			Title:    "copy button puts the embed snippet on the clipboard",
			Category: artifacts.CategoryFunctional,
			Fn:       copyButtonFillsClipboard,
		},
		{
			ID:       "VIS-01",
			Title:    "dark theme reaches the preview",
			Category: artifacts.CategoryVisual,
			Fn:       darkThemeReachesPreview,
		},
		{
			ID:       "ACC-01",
			Title:    "form controls are labelled",
			Category: artifacts.CategoryAccessibility,
			Fn:       formControlsAreLabelled,
		},
	}
}

func widgetPageOpens(ctx context.Context, pg *widget.Page) error {
	// Open already waited for the form; the smoke bar is the preview too.
	return pg.PreviewVisible(ctx)
}

func generatorFormAcceptsInput(ctx context.Context, pg *widget.Page) error {
	if err := pg.SetTitle(ctx, "Городской фестиваль"); err != nil {
		return err
	}
	return pg.SetDateRange(ctx, "2026-06-01", "2026-06-30")
}

func generateProducesEmbedSnippet(ctx context.Context, pg *widget.Page) error {
	if err := pg.SetTitle(ctx, "Summer events"); err != nil {
		return err
	}
	if err := pg.SetDateRange(ctx, "2026-06-01", "2026-06-30"); err != nil {
		return err
	}
	if err := pg.Generate(ctx); err != nil {
		return err
	}
	code, err := pg.EmbedCode(ctx)
	if err != nil {
		return err
	}
	if err := widget.ValidateEmbedCode(code); err != nil {
		return fmt.Errorf("assertion failed: %w", err)
	}
	return nil
}

func copyButtonFillsClipboard(ctx context.Context, pg *widget.Page) error {
	if err := pg.SetTitle(ctx, "Summer events"); err != nil {
		return err
	}
	if err := pg.Generate(ctx); err != nil {
		return err
	}
	code, err := pg.EmbedCode(ctx)
	if err != nil {
		return err
	}
	ok, err := pg.CopyEmbedCode(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("clipboard copy failed: every strategy was rejected")
	}
	got, err := pg.ClipboardText(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(got) != strings.TrimSpace(code) {
		return fmt.Errorf("assertion failed: clipboard holds %q, expected the embed snippet", truncate(got, 80))
	}
	return nil
}

func darkThemeReachesPreview(ctx context.Context, pg *widget.Page) error {
	if err := pg.PickTheme(ctx, "dark"); err != nil {
		return err
	}
	if err := pg.PreviewVisible(ctx); err != nil {
		return err
	}
	cls, err := pg.PreviewThemeClass(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(cls, "theme-dark") {
		return fmt.Errorf("assertion failed: preview class %q does not include theme-dark", cls)
	}
	return nil
}

func formControlsAreLabelled(ctx context.Context, pg *widget.Page) error {
	missing, err := pg.UnlabelledControls(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("assertion failed: controls without labels: %s", strings.Join(missing, ", "))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
