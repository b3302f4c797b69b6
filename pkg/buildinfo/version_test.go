package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	devel := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	missing := func() (*debug.BuildInfo, bool) { return nil, false }

	defaults := Info{Version: "dev", Commit: "none", Date: "unknown"}
	ldflags := Info{Version: "v1.0.0", Commit: "fff", Date: "2026-10-01"}

	tests := []struct {
		name string
		in   Info
		read func() (*debug.BuildInfo, bool)
		want Info
	}{
		{"go install", defaults, stamped, Info{"v0.3.1", "abc123", "2026-01-02T03:04:05Z"}},
		{"ldflags win", ldflags, stamped, ldflags},
		{"devel build", defaults, devel, defaults},
		{"no build info", defaults, missing, defaults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromBuildInfo(tt.in, tt.read); got != tt.want {
				t.Errorf("fromBuildInfo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version ") {
		t.Errorf("Template() = %q", got)
	}
	if got := String(); !strings.Contains(got, "commit: ") {
		t.Errorf("String() = %q", got)
	}
}
