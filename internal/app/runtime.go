package app

import (
	"os"
	"strconv"
	"sync"
	"testing"
)

const testModeEnv = "CAMPUS_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return testModeFrom(os.Getenv(testModeEnv), testing.Testing())
})

// InTestMode reports whether the binaries should skip startup side effects:
// CAMPUS_TEST_MODE is truthy or the process is a test binary.
func InTestMode() bool {
	return testMode()
}

func testModeFrom(env string, testBinary bool) bool {
	on, err := strconv.ParseBool(env)
	return testBinary || (err == nil && on)
}
