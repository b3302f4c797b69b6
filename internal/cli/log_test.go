package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/errors"
)

var timestampRE = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		debug   bool
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, false, true},
		{"debug at info level", log.InfoLevel, true, false},
		{"debug at debug level", log.DebugLevel, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := newLogger(&buf, tt.level)
			if tt.debug {
				l.Debug("manifest loaded", "modules", 5)
			} else {
				l.Info("manifest loaded", "modules", 5)
			}

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Fatalf("wrote output = %v, want %v", got, tt.wantLog)
			}
			if tt.wantLog && !timestampRE.MatchString(buf.String()) {
				t.Errorf("output %q lacks HH:MM:SS.cc timestamp", buf.String())
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Loaded 4 modules")

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, "Loaded 4 modules (") || !strings.HasSuffix(out, ")") {
		t.Errorf("done() output = %q, want message with duration", out)
	}
}

func TestLoggerFromContextDefault(t *testing.T) {
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Errorf("loggerFromContext() = %p, want log.Default()", got)
	}
}

func TestRootPreRunInstallsLogger(t *testing.T) {
	prev := errors.Default()
	t.Cleanup(func() { errors.SetDefault(prev) })

	var buf bytes.Buffer
	c := New(&buf, log.InfoLevel)
	root := c.RootCommand()

	var ctxLogger *log.Logger
	root.AddCommand(&cobra.Command{
		Use: "check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctxLogger = loggerFromContext(cmd.Context())
			errors.Default().Report(errors.New(errors.ErrCodeModuleNotFound, "module %q not in catalog", "ghost"))
			return nil
		},
	})
	root.SetArgs([]string{"check"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ctxLogger != c.Logger {
		t.Error("command context does not carry the CLI logger")
	}
	out := buf.String()
	for _, want := range []string{`module "ghost" not in catalog`, "code=MODULE_NOT_FOUND"} {
		if !strings.Contains(out, want) {
			t.Errorf("reported error output missing %q:\n%s", want, out)
		}
	}
}

func TestLogReporterPlainError(t *testing.T) {
	var buf bytes.Buffer
	r := errors.LogReporter{Logger: newLogger(&buf, log.InfoLevel)}
	r.Report(context.DeadlineExceeded)
	r.Report(nil)

	out := buf.String()
	if !strings.Contains(out, "context deadline exceeded") {
		t.Errorf("output = %q, want the error text", out)
	}
	if strings.Contains(out, "code=") {
		t.Errorf("output = %q, want no code field for uncoded errors", out)
	}
	if n := strings.Count(out, "\n"); n != 1 {
		t.Errorf("logged %d lines, want 1", n)
	}
}
