// Package runner executes registered suite cases against every configured
// browser project, retries flaky steps, and turns terminal failures into
// classified report entries with captured screenshots.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/widgetprobe/internal/artifacts"
	"github.com/xkilldash9x/widgetprobe/internal/config"
	"github.com/xkilldash9x/widgetprobe/internal/failure"
	"github.com/xkilldash9x/widgetprobe/internal/report"
	"github.com/xkilldash9x/widgetprobe/internal/retry"
	"github.com/xkilldash9x/widgetprobe/internal/widget"
)

// Case is one registered test scenario. Fn drives an already opened page and
// returns an error to fail the case.
type Case struct {
	// ID is the short identifier, e.g. "SMK-01".
	ID string
	// Title is the human readable name used in reports and artifact paths.
	Title string
	// Category routes the case into its reporting bucket.
	Category artifacts.Category
	// Fn is the case body.
	Fn func(ctx context.Context, pg *widget.Page) error
}

// Session is what the runner needs from a live browser: the page driver plus
// screenshot capture and teardown.
type Session interface {
	widget.Driver
	Screenshot(ctx context.Context) ([]byte, error)
	Close()
}

// SessionFactory launches a session for one browser project. Production wires
// browser.NewSession; tests substitute a fake.
type SessionFactory func(ctx context.Context, cfg *config.Config, project config.BrowserProject, logger *zap.Logger) (Session, error)

// Runner owns the case registry and executes a run.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	factory SessionFactory
	namer   artifacts.Namer
	limiter *rate.Limiter
	cases   []Case
}

// New builds a runner. The navigation limiter is shared by every worker so
// the whole run respects the configured rate against the target.
func New(cfg *config.Config, logger *zap.Logger, factory SessionFactory) *Runner {
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		factory: factory,
		limiter: rate.NewLimiter(rate.Limit(cfg.Suite.NavigationsPerSecond), 1),
	}
}

// Register adds cases to the registry. Call before Run.
func (r *Runner) Register(cases ...Case) {
	r.cases = append(r.cases, cases...)
}

// Run executes every selected case on every browser project with bounded
// parallelism and returns the run summary. Case failures do not abort the
// run; only infrastructure errors (artifact directory creation) do.
func (r *Runner) Run(ctx context.Context) (*report.Summary, error) {
	runID := uuid.New().String()
	summary := report.NewSummary(runID, r.cfg.Target.BaseURL)
	artifactRoot := filepath.Join(r.cfg.Suite.ArtifactsDir, runID)
	if err := os.MkdirAll(artifactRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root %s: %w", artifactRoot, err)
	}

	log := r.logger.With(zap.String("run_id", runID))
	log.Info("starting run",
		zap.String("target", r.cfg.Target.BaseURL),
		zap.Int("cases", len(r.cases)),
		zap.Int("projects", len(r.cfg.Browser.Projects)),
	)

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Suite.Concurrency)

	for _, project := range r.cfg.Browser.Projects {
		for _, c := range r.cases {
			if !r.selected(c) {
				summary.Add(report.CaseResult{
					ID: c.ID, Title: c.Title, Category: string(c.Category),
					Browser: project.Name, Viewport: project.Viewport,
					Status: report.StatusSkipped,
				})
				continue
			}
			g.Go(func() error {
				summary.Add(r.executeCase(ctx, project, c, log, artifactRoot))
				return nil
			})
		}
	}

	// Workers never return errors; Wait only orders the shutdown.
	_ = g.Wait()
	summary.Finish()

	log.Info("run finished",
		zap.Int("passed", summary.Passed()),
		zap.Int("failed", summary.Failed()),
	)
	return summary, nil
}

// selected reports whether the case's category passed the configured filter.
func (r *Runner) selected(c Case) bool {
	if len(r.cfg.Suite.Categories) == 0 {
		return true
	}
	for _, want := range r.cfg.Suite.Categories {
		if want == string(c.Category) {
			return true
		}
	}
	return false
}

// executeCase runs one case on one project inside its own browser session.
// Workers share nothing mutable beyond the summary and the rate limiter.
func (r *Runner) executeCase(ctx context.Context, project config.BrowserProject, c Case, log *zap.Logger, artifactRoot string) report.CaseResult {
	caseLog := log.With(
		zap.String("case", c.ID),
		zap.String("project", project.Name),
	)
	result := report.CaseResult{
		ID: c.ID, Title: c.Title, Category: string(c.Category),
		Browser: project.Name, Viewport: project.Viewport,
	}

	caseCtx := ctx
	if r.cfg.Suite.CaseTimeout > 0 {
		var cancel context.CancelFunc
		caseCtx, cancel = context.WithTimeout(ctx, r.cfg.Suite.CaseTimeout)
		defer cancel()
	}

	start := time.Now()
	sess, err := r.factory(caseCtx, r.cfg, project, caseLog)
	if err != nil {
		result.Status = report.StatusFailed
		result.Duration = time.Since(start)
		result.Failure = failure.Describe(err, r.failureContext(project, c))
		caseLog.Error("failed to launch browser session", zap.Error(err))
		return result
	}
	defer sess.Close()

	pg := widget.New(sess, caseLog, r.cfg.Target.BaseURL)

	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := pg.Open(ctx); err != nil {
			return err
		}
		return c.Fn(ctx, pg)
	}

	opts := []retry.Option{
		retry.WithMaxAttempts(r.cfg.Retry.MaxAttempts),
		retry.WithDelay(r.cfg.Retry.Delay),
		// Assertion failures are deterministic bugs; retrying them only
		// wastes the run budget.
		retry.WithShouldRetry(func(err error) bool {
			return failure.Classify(err) != failure.KindAssertionFailed
		}),
		retry.WithOnRetry(func(attempt int, err error) {
			caseLog.Warn("retrying flaky case",
				zap.Int("attempt", attempt), zap.Error(err))
		}),
	}
	if r.cfg.Retry.ExponentialBackoff {
		opts = append(opts, retry.WithExponentialBackoff())
	}

	err = retry.Do(caseCtx, op, opts...)
	result.Duration = time.Since(start)
	result.Attempts = attempts

	if err == nil {
		result.Status = report.StatusPassed
		caseLog.Info("case passed", zap.Int("attempts", attempts))
		return result
	}

	result.Status = report.StatusFailed
	result.Failure = failure.Describe(err, r.failureContext(project, c))
	caseLog.Error("case failed",
		zap.String("kind", string(result.Failure.Kind)),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)

	if rel := r.captureScreenshot(sess, project, c, artifactRoot, caseLog); rel != "" {
		result.Artifacts = append(result.Artifacts, rel)
	}
	return result
}

func (r *Runner) failureContext(project config.BrowserProject, c Case) map[string]string {
	return map[string]string{
		"case":     c.ID,
		"category": string(c.Category),
		"browser":  project.Name,
		"viewport": project.Viewport,
	}
}

// captureScreenshot grabs diagnostic evidence after a terminal failure. The
// namer computes the relative path; the runner owns the mkdir and write. A
// fresh short-lived context is used because the case context is usually
// already expired by the time we get here.
func (r *Runner) captureScreenshot(sess Session, project config.BrowserProject, c Case, artifactRoot string, log *zap.Logger) string {
	shotCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	png, err := sess.Screenshot(shotCtx)
	if err != nil {
		log.Warn("failed to capture failure screenshot", zap.Error(err))
		return ""
	}

	meta := artifacts.TestMeta{
		Title:          fmt.Sprintf("%s %s", c.ID, c.Title),
		SourceTag:      string(c.Category),
		BrowserProject: project.Name,
		Viewport:       project.Viewport,
	}
	rel := r.namer.NameFor(meta, artifacts.TypeScreenshot, "")
	abs := filepath.Join(artifactRoot, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		log.Warn("failed to create artifact directory", zap.Error(err))
		return ""
	}
	if err := os.WriteFile(abs, png, 0o644); err != nil {
		log.Warn("failed to write screenshot", zap.String("path", abs), zap.Error(err))
		return ""
	}
	log.Info("failure screenshot captured", zap.String("path", abs))
	return rel
}
