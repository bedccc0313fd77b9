// Package failure maps raised errors to coarse categories used to route test
// failures into reporting buckets. Classification is text based: browser
// engines surface most failures as flat messages, so a small ordered keyword
// table is both sufficient and stable across engine versions.
package failure

import (
	"strings"
	"time"
)

// Kind is the coarse category of a test failure.
type Kind string

const (
	KindElementNotFound Kind = "ElementNotFound"
	KindTimeout         Kind = "Timeout"
	KindNetworkError    Kind = "NetworkError"
	KindAssertionFailed Kind = "AssertionFailed"
	KindClipboardError  Kind = "ClipboardError"
	KindUnknown         Kind = "Unknown"
)

// rule is one classification entry. Rules are evaluated in order and the
// first match wins, so Timeout must stay first: timeout messages routinely
// also mention the selector or request that timed out.
type rule struct {
	kind     Kind
	keywords []string
}

var rules = []rule{
	{KindTimeout, []string{
		"timeout", "timed out", "deadline exceeded", "exceeded while waiting",
	}},
	{KindElementNotFound, []string{
		"element not found", "no such element", "could not find node",
		"matched no nodes", "node not visible", "waiting for selector",
	}},
	{KindNetworkError, []string{
		"net::", "connection refused", "connection reset", "dns", "socket hang up",
		"navigation failed", "could not resolve",
	}},
	{KindAssertionFailed, []string{
		"assertion", "expected", "not equal", "mismatch",
	}},
	{KindClipboardError, []string{
		"clipboard", "notallowederror", "execcommand",
	}},
}

// Classify returns the category for err. It is total: a nil error and any
// unrecognized message both map to KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(msg, kw) {
				return r.kind
			}
		}
	}
	return KindUnknown
}

// ClassifiedError is the immutable record of a single failure, suitable for
// attaching to a report entry. It is created once and never mutated.
type ClassifiedError struct {
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}

// Describe classifies err and stamps it with the current wall-clock time in
// ISO-8601 form. The context map is copied so later mutation by the caller
// cannot leak into the record. Returns nil for a nil error.
func Describe(err error, context map[string]string) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ctxCopy map[string]string
	if len(context) > 0 {
		ctxCopy = make(map[string]string, len(context))
		for k, v := range context {
			ctxCopy[k] = v
		}
	}
	return &ClassifiedError{
		Kind:      Classify(err),
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Context:   ctxCopy,
	}
}
