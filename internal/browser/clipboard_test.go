package browser_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/widgetprobe/internal/browser"
)

// fakeEvaluator scripts the outcome of each strategy in order.
type fakeEvaluator struct {
	scripts  []string
	outcomes []func(result any) error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, expression string, result any) error {
	idx := len(f.scripts)
	f.scripts = append(f.scripts, expression)
	if idx >= len(f.outcomes) {
		return errors.New("unexpected extra strategy invocation")
	}
	return f.outcomes[idx](result)
}

func succeed(result any) error {
	*(result.(*bool)) = true
	return nil
}

func reportFalse(result any) error {
	*(result.(*bool)) = false
	return nil
}

func fail(err error) func(result any) error {
	return func(any) error { return err }
}

func TestCopyToClipboard_PrimaryStrategyWins(t *testing.T) {
	env := &fakeEvaluator{outcomes: []func(any) error{succeed}}
	ok := browser.CopyToClipboard(context.Background(), env, zap.NewNop(), "embed code")
	assert.True(t, ok)
	// Strategy 2 never ran: no textarea script was evaluated.
	require.Len(t, env.scripts, 1)
	assert.Contains(t, env.scripts[0], "navigator.clipboard.writeText")
	assert.NotContains(t, env.scripts[0], "createElement")
}

func TestCopyToClipboard_FallsBackOnRejection(t *testing.T) {
	env := &fakeEvaluator{outcomes: []func(any) error{
		fail(errors.New("NotAllowedError: Write permission denied")),
		succeed,
	}}
	ok := browser.CopyToClipboard(context.Background(), env, zap.NewNop(), "embed code")
	assert.True(t, ok)
	require.Len(t, env.scripts, 2)
	assert.Contains(t, env.scripts[1], "execCommand")
	assert.Contains(t, env.scripts[1], "ta.remove()")
}

func TestCopyToClipboard_FallsBackOnReportedFalse(t *testing.T) {
	env := &fakeEvaluator{outcomes: []func(any) error{reportFalse, succeed}}
	ok := browser.CopyToClipboard(context.Background(), env, zap.NewNop(), "embed code")
	assert.True(t, ok)
	assert.Len(t, env.scripts, 2)
}

func TestCopyToClipboard_BothStrategiesFail(t *testing.T) {
	env := &fakeEvaluator{outcomes: []func(any) error{
		fail(errors.New("clipboard API unavailable")),
		reportFalse,
	}}
	ok := browser.CopyToClipboard(context.Background(), env, zap.NewNop(), "embed code")
	assert.False(t, ok)
	assert.Len(t, env.scripts, 2)
}

func TestCopyToClipboard_PayloadIsQuoted(t *testing.T) {
	env := &fakeEvaluator{outcomes: []func(any) error{succeed}}
	payload := `<script src="https://cdn.example.com/widget.js"></script>` + "\nline two"
	ok := browser.CopyToClipboard(context.Background(), env, zap.NewNop(), payload)
	assert.True(t, ok)
	// The payload is embedded as a JSON string literal: quoted, newline escaped.
	assert.Contains(t, env.scripts[0], `\n`)
	assert.False(t, strings.Contains(env.scripts[0], "\nline two"))
}

func TestCopyToClipboard_FallbackRemovesElementOnFailure(t *testing.T) {
	// The removal must sit in a finally block so a throwing execCommand still
	// cleans up the transient textarea.
	env := &fakeEvaluator{outcomes: []func(any) error{reportFalse, reportFalse}}
	_ = browser.CopyToClipboard(context.Background(), env, zap.NewNop(), "x")
	require.Len(t, env.scripts, 2)
	script := env.scripts[1]
	assert.Contains(t, script, "finally")
	assert.Contains(t, script, "ta.remove()")
}

func TestParseViewport(t *testing.T) {
	w, h, err := browser.ParseViewport("1920x1080")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	for _, bad := range []string{"", "1920", "x1080", "1920x", "ax b", "0x600", "-1x600"} {
		_, _, err := browser.ParseViewport(bad)
		assert.Error(t, err, "viewport %q", bad)
	}
}
