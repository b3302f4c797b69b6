package errors

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Reporter receives contract violations and loader failures as they happen.
// It is the error sink collaborator: components still return the error to
// their caller, and additionally hand it to a Reporter so that applications
// can surface problems that callers ignore.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts an ordinary function to the Reporter interface.
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) { f(err) }

// Discard is a Reporter that drops every error.
var Discard Reporter = ReporterFunc(func(error) {})

// LogReporter writes reported errors to a charmbracelet logger at error level.
type LogReporter struct {
	Logger *log.Logger
}

// Report logs err with its code as a structured field.
func (r LogReporter) Report(err error) {
	if err == nil {
		return
	}
	l := r.Logger
	if l == nil {
		l = log.Default()
	}
	if code := GetCode(err); code != "" {
		l.Error(UserMessage(err), "code", code)
		return
	}
	l.Error(err.Error())
}

// Collector is a Reporter that keeps every reported error. It is safe for
// concurrent use and is mainly useful in tests.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// Report appends err.
func (c *Collector) Report(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Errors returns a copy of the collected errors in report order.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

var (
	defaultReporter Reporter = LogReporter{}
	reporterMu      sync.RWMutex
)

// SetDefault configures the process-wide fallback Reporter used by
// components that were not given one explicitly.
// Pass nil to restore the LogReporter default.
func SetDefault(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	if r == nil {
		defaultReporter = LogReporter{}
	} else {
		defaultReporter = r
	}
}

// Default returns the process-wide fallback Reporter.
func Default() Reporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return defaultReporter
}

// Report sends err to r, falling back to Default when r is nil.
// Nil errors are ignored.
func Report(r Reporter, err error) {
	if err == nil {
		return
	}
	if r == nil {
		r = Default()
	}
	r.Report(err)
}
