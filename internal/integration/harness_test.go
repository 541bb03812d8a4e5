package integration

import (
	"strings"
	"testing"
)

// TestHarnessSkipsWhenDisabled runs NewHarness in a subtest with
// integration tests switched off and checks that it skipped.
func TestHarnessSkipsWhenDisabled(t *testing.T) {
	t.Setenv(EnvEnable, "")

	var reached bool
	t.Run("harness", func(t *testing.T) {
		NewHarness(t)
		reached = true
	})

	if reached {
		t.Error("NewHarness should skip when integration tests are disabled")
	}
}

func TestTestRecipe(t *testing.T) {
	if !strings.HasPrefix(TestRecipe, "FROM ") {
		t.Errorf("TestRecipe = %q, want a FROM line first", TestRecipe)
	}
	if !strings.Contains(TestRecipe, "sleep") {
		t.Error("TestRecipe should keep its main process running")
	}
}
