package version

import "testing"

func saveAndRestore(t *testing.T) {
	t.Helper()
	v, c, b := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })
}

func TestGetUsesLinkerValues(t *testing.T) {
	saveAndRestore(t)
	Version, GitCommit, BuildTime = "1.2.0", "abc1234", "2026-01-02T03:04:05Z"

	info := Get()
	if info.Version != "1.2.0" || info.GitCommit != "abc1234" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("linker values should win, got %+v", info)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "dev"}, "dev"},
		{"with commit", Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0 (abc1234)"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}, "1.0.0 (abc1234-dirty)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsRelease(t *testing.T) {
	if (Info{Version: "dev"}).IsRelease() {
		t.Error("dev build is not a release")
	}
	if (Info{Version: "1.0.0", Dirty: true}).IsRelease() {
		t.Error("dirty build is not a release")
	}
	if !(Info{Version: "1.0.0"}).IsRelease() {
		t.Error("clean tagged build is a release")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("expected 7 chars, got %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("short revisions are kept, got %q", got)
	}
}
