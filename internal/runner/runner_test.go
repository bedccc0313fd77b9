package runner_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/artifacts"
	"github.com/xkilldash9x/widgetprobe/internal/config"
	"github.com/xkilldash9x/widgetprobe/internal/failure"
	"github.com/xkilldash9x/widgetprobe/internal/report"
	"github.com/xkilldash9x/widgetprobe/internal/runner"
	"github.com/xkilldash9x/widgetprobe/internal/widget"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubSession satisfies runner.Session with a page where every selector is
// visible and screenshots always succeed.
type stubSession struct {
	closed bool
}

func (s *stubSession) Navigate(context.Context, string) error          { return nil }
func (s *stubSession) WaitVisible(context.Context, string) error       { return nil }
func (s *stubSession) Click(context.Context, string) error             { return nil }
func (s *stubSession) SetValue(context.Context, string, string) error  { return nil }
func (s *stubSession) Text(context.Context, string) (string, error)    { return "", nil }
func (s *stubSession) AttributeValue(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}
func (s *stubSession) Evaluate(_ context.Context, _ string, result any) error {
	if r, ok := result.(*bool); ok {
		*r = true
	}
	return nil
}
func (s *stubSession) Screenshot(context.Context) ([]byte, error) {
	return []byte("png-bytes"), nil
}
func (s *stubSession) Close() { s.closed = true }

func stubFactory(sessions *[]*stubSession) runner.SessionFactory {
	return func(context.Context, *config.Config, config.BrowserProject, *zap.Logger) (runner.Session, error) {
		s := &stubSession{}
		if sessions != nil {
			*sessions = append(*sessions, s)
		}
		return s, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Suite.ArtifactsDir = t.TempDir()
	cfg.Suite.NavigationsPerSecond = 1000
	cfg.Retry.Delay = time.Millisecond
	cfg.Retry.MaxAttempts = 3
	return cfg
}

func findCase(t *testing.T, s *report.Summary, id string) report.CaseResult {
	t.Helper()
	for _, c := range s.Cases {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("case %s missing from summary", id)
	return report.CaseResult{}
}

func TestRun_PassingCase(t *testing.T) {
	cfg := testConfig(t)
	var sessions []*stubSession
	r := runner.New(cfg, zap.NewNop(), stubFactory(&sessions))
	r.Register(runner.Case{
		ID: "SMK-01", Title: "widget page opens", Category: artifacts.CategorySmoke,
		Fn: func(ctx context.Context, pg *widget.Page) error { return nil },
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed())
	assert.Zero(t, summary.Failed())

	res := findCase(t, summary, "SMK-01")
	assert.Equal(t, report.StatusPassed, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Nil(t, res.Failure)

	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].closed)
}

func TestRun_FlakyCaseRecovers(t *testing.T) {
	cfg := testConfig(t)
	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))

	calls := 0
	r.Register(runner.Case{
		ID: "FUN-07", Title: "theme switch", Category: artifacts.CategoryFunctional,
		Fn: func(ctx context.Context, pg *widget.Page) error {
			calls++
			if calls < 3 {
				return errors.New("timed out waiting for selector '.preview'")
			}
			return nil
		},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	res := findCase(t, summary, "FUN-07")
	assert.Equal(t, report.StatusPassed, res.Status)
	assert.Equal(t, 3, res.Attempts)
}

func TestRun_TerminalFailureClassifiedAndCaptured(t *testing.T) {
	cfg := testConfig(t)
	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))
	r.Register(runner.Case{
		ID: "FUN-12", Title: "embed code generation", Category: artifacts.CategoryFunctional,
		Fn: func(ctx context.Context, pg *widget.Page) error {
			return errors.New("Timeout 30000ms exceeded")
		},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	res := findCase(t, summary, "FUN-12")
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Equal(t, cfg.Retry.MaxAttempts, res.Attempts)

	require.NotNil(t, res.Failure)
	assert.Equal(t, failure.KindTimeout, res.Failure.Kind)
	assert.Equal(t, "FUN-12", res.Failure.Context["case"])

	// The screenshot landed on disk under the run's artifact root.
	require.Len(t, res.Artifacts, 1)
	assert.Contains(t, res.Artifacts[0], "functional/chromium-desktop/FUN-12_embed-code-generation")
	matches, err := filepath.Glob(filepath.Join(cfg.Suite.ArtifactsDir, "*", res.Artifacts[0]))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestRun_AssertionFailureIsNotRetried(t *testing.T) {
	cfg := testConfig(t)
	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))
	r.Register(runner.Case{
		ID: "VIS-03", Title: "theme contrast", Category: artifacts.CategoryVisual,
		Fn: func(ctx context.Context, pg *widget.Page) error {
			return errors.New("assertion failed: expected theme-dark class")
		},
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	res := findCase(t, summary, "VIS-03")
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, failure.KindAssertionFailed, res.Failure.Kind)
}

func TestRun_CategoryFilterSkips(t *testing.T) {
	cfg := testConfig(t)
	cfg.Suite.Categories = []string{"smoke"}
	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))
	r.Register(
		runner.Case{
			ID: "SMK-01", Title: "opens", Category: artifacts.CategorySmoke,
			Fn: func(ctx context.Context, pg *widget.Page) error { return nil },
		},
		runner.Case{
			ID: "ACC-07", Title: "landmarks", Category: artifacts.CategoryAccessibility,
			Fn: func(ctx context.Context, pg *widget.Page) error { return nil },
		},
	)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.StatusPassed, findCase(t, summary, "SMK-01").Status)
	assert.Equal(t, report.StatusSkipped, findCase(t, summary, "ACC-07").Status)
}

func TestRun_SessionLaunchFailure(t *testing.T) {
	cfg := testConfig(t)
	factory := func(context.Context, *config.Config, config.BrowserProject, *zap.Logger) (runner.Session, error) {
		return nil, errors.New("chrome binary not found")
	}
	r := runner.New(cfg, zap.NewNop(), factory)
	r.Register(runner.Case{
		ID: "SMK-01", Title: "opens", Category: artifacts.CategorySmoke,
		Fn: func(ctx context.Context, pg *widget.Page) error { return nil },
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	res := findCase(t, summary, "SMK-01")
	assert.Equal(t, report.StatusFailed, res.Status)
	require.NotNil(t, res.Failure)
	assert.Contains(t, res.Failure.Message, "chrome binary not found")
}

func TestRun_NeverExceedsConcurrencyLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Suite.Concurrency = 2

	var mu sync.Mutex
	active, peak := 0, 0

	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))
	for i := 1; i <= 6; i++ {
		r.Register(runner.Case{
			ID:       fmt.Sprintf("SMK-%02d", i),
			Title:    "opens",
			Category: artifacts.CategorySmoke,
			Fn: func(ctx context.Context, pg *widget.Page) error {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()

				// Hold the slot long enough for the other workers to pile up
				// behind the limit.
				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			},
		})
	}

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Passed())

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.Positive(t, peak)
}

func TestRun_EveryProjectGetsEveryCase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.Projects = []config.BrowserProject{
		{Name: "chromium-desktop", Viewport: "1920x1080"},
		{Name: "chromium-mobile", Viewport: "390x844"},
	}
	r := runner.New(cfg, zap.NewNop(), stubFactory(nil))
	r.Register(runner.Case{
		ID: "SMK-01", Title: "opens", Category: artifacts.CategorySmoke,
		Fn: func(ctx context.Context, pg *widget.Page) error { return nil },
	})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Cases, 2)
	browsers := []string{summary.Cases[0].Browser, summary.Cases[1].Browser}
	assert.ElementsMatch(t, []string{"chromium-desktop", "chromium-mobile"}, browsers)
}
