package proptest

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// Check runs a property over trials random inputs. On failure it logs the
// seed; rerun with PROPTEST_SEED set to reproduce.
func Check(t *testing.T, name string, trials int, prop func(g *Generator) bool) {
	t.Helper()

	if trials <= 0 {
		trials = 100
	}
	seed := effectiveSeed()
	g := New(seed)

	for i := 0; i < trials; i++ {
		if !prop(g) {
			t.Errorf("property %q failed on trial %d (PROPTEST_SEED=%d to reproduce)", name, i+1, seed)
			return
		}
	}
}

func effectiveSeed() int64 {
	if env := os.Getenv("PROPTEST_SEED"); env != "" {
		if seed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}
