package browser

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Evaluator runs a script in the page and decodes its result. Session
// implements it against a live browser; tests substitute a fake.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, result any) error
}

var _ Evaluator = (*Session)(nil)

// copyStrategy is one way of putting text on the clipboard. Strategies are
// tried in order; the first success wins.
type copyStrategy struct {
	name   string
	script func(quotedText string) string
}

var copyStrategies = []copyStrategy{
	{
		// The async clipboard API. A permission denial or an unsupported API
		// rejects the promise, which surfaces as an evaluation error.
		name: "clipboard-api",
		script: func(q string) string {
			return fmt.Sprintf(`navigator.clipboard.writeText(%s).then(() => true)`, q)
		},
	},
	{
		// Legacy path: transient off-screen textarea plus execCommand. The
		// element is added and removed within one synchronous script, so the
		// document is never left mutated, even on failure.
		name: "exec-command",
		script: func(q string) string {
			return fmt.Sprintf(`(() => {
	const ta = document.createElement('textarea');
	ta.value = %s;
	ta.style.position = 'fixed';
	ta.style.top = '-1000px';
	document.body.appendChild(ta);
	ta.focus();
	ta.select();
	let ok = false;
	try {
		ok = document.execCommand('copy');
	} finally {
		ta.remove();
	}
	return ok;
})()`, q)
		},
	},
}

// CopyToClipboard puts text on the environment's clipboard, falling back
// through the strategy chain. It returns false only when every strategy
// failed and never lets an internal error escape; failures are logged.
func CopyToClipboard(ctx context.Context, env Evaluator, logger *zap.Logger, text string) bool {
	quoted, err := jsoniter.MarshalToString(text)
	if err != nil {
		logger.Error("failed to encode clipboard payload", zap.Error(err))
		return false
	}

	for _, strategy := range copyStrategies {
		var ok bool
		if err := env.Evaluate(ctx, strategy.script(quoted), &ok); err != nil {
			logger.Debug("copy strategy failed",
				zap.String("strategy", strategy.name), zap.Error(err))
			continue
		}
		if ok {
			logger.Debug("copy strategy succeeded", zap.String("strategy", strategy.name))
			return true
		}
		logger.Debug("copy strategy reported failure", zap.String("strategy", strategy.name))
	}
	return false
}
