package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// TestModeEnv turns off request logging and process-level side effects
// (listeners, signal handling) when set to a true value.
const TestModeEnv = "MANAKSHIA_TEST_MODE"

var testMode = sync.OnceValue(func() bool { return envFlag(TestModeEnv) })

// InTestMode reports whether the process runs under package tests. The
// environment is read once.
func InTestMode() bool {
	return testMode()
}

// envFlag accepts the strconv.ParseBool spellings plus "yes" and "on".
func envFlag(name string) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true
	}
	return false
}
