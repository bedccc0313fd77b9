package browser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/config"
)

// newUnlaunchableSession builds a Session whose allocator points at a missing
// Chrome binary. Running any task against it exercises the full context
// plumbing up to the exec step without needing a browser on the test host.
func newUnlaunchableSession(t *testing.T) *Session {
	t.Helper()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(filepath.Join(t.TempDir(), "no-such-chrome")))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		id:      "test-session",
		project: config.BrowserProject{Name: "chromium-desktop", Viewport: "1920x1080"},
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		logger:  zap.NewNop(),
	}
	t.Cleanup(s.Close)
	return s
}

// Session methods receive plain runner contexts, never chromedp ones. The
// internal run helper must re-root every task on the session's browser
// context so chromedp accepts it.
func TestSessionRun_ReRootsCallerContext(t *testing.T) {
	s := newUnlaunchableSession(t)

	err := s.WaitVisible(context.Background(), "#widget-title")
	require.Error(t, err)
	assert.NotErrorIs(t, err, chromedp.ErrInvalidContext)
}

func TestSessionRun_HonorsCallerCancellation(t *testing.T) {
	s := newUnlaunchableSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Click(ctx, "#generate-btn")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionNavigate_WrapsFailure(t *testing.T) {
	s := newUnlaunchableSession(t)

	err := s.Navigate(context.Background(), "http://localhost:8080/widget")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "navigation failed for http://localhost:8080/widget")
	assert.NotErrorIs(t, err, chromedp.ErrInvalidContext)
}
