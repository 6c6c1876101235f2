// Package testing prepares the environment for packages that load the full
// service configuration. Import it for side effects from _test files.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("KHADAMAT_TEST_MODE", "1")
		if os.Getenv("MARKETPLACE_API_URL") == "" {
			_ = os.Setenv("MARKETPLACE_API_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("KV_BACKEND") == "" {
			_ = os.Setenv("KV_BACKEND", "memory")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
