package internal

import (
	"runtime"
	"strings"
	"testing"
)

func setBuildInfo(t *testing.T, v, s, c string) {
	t.Helper()
	origV, origS, origC := version, stage, gitCommit
	version, stage, gitCommit = v, s, c
	t.Cleanup(func() {
		version, stage, gitCommit = origV, origS, origC
	})
}

func TestVersionStringLocal(t *testing.T) {
	setBuildInfo(t, "", "", "")
	if got := VersionString(); got != "(local)" {
		t.Fatalf("expected local marker, got %q", got)
	}

	setBuildInfo(t, "1.2.3", "", "abc1234")
	if got := VersionString(); got != "(local)" {
		t.Fatalf("expected local marker with missing stage, got %q", got)
	}
}

func TestVersionStringRelease(t *testing.T) {
	setBuildInfo(t, "v1.2.3", "main", "abc1234")
	want := "1.2.3 abc1234 [" + runtime.GOARCH + "]"
	if got := VersionString(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVersionStringStageSuffix(t *testing.T) {
	setBuildInfo(t, "2.0.0", "Staging", "def5678")
	got := VersionString()
	if !strings.HasPrefix(got, "2.0.0+staging ") {
		t.Fatalf("expected stage suffix, got %q", got)
	}
}

func TestParseBoolFlag(t *testing.T) {
	cases := map[string]bool{
		"true":    true,
		"1":       true,
		"false":   false,
		"":        false,
		"garbage": false,
	}
	for raw, want := range cases {
		if got := parseBoolFlag(raw); got != want {
			t.Errorf("parseBoolFlag(%q) = %v, want %v", raw, got, want)
		}
	}
}
