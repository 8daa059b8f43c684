package version

import "testing"

func TestInfo(t *testing.T) {
	oldCommit, oldTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldTime })

	GitCommit, BuildTime = "abc1234", "2026-01-02T15:04:05Z"
	if got, want := Info(), "Hisho v0.0.0-dev (abc1234) built at 2026-01-02T15:04:05Z"; got != want {
		t.Errorf("Info: got %q, want %q", got, want)
	}

	GitCommit, BuildTime = "", ""
	if Commit() == "" {
		t.Error("Commit returned an empty string")
	}
	if got := Info(); got != "Hisho v0.0.0-dev ("+Commit()+")" {
		t.Errorf("Info without build time: got %q", got)
	}
}
