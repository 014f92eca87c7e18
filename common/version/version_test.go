package version_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/precommander/common/version"
)

func TestInfo(t *testing.T) {
	got := version.Info("precommander")
	for _, want := range []string{"precommander", version.Version, version.GitCommit, version.BuildTime} {
		if !strings.Contains(got, want) {
			t.Errorf("Info() = %q, missing %q", got, want)
		}
	}
}
