package serp

import (
	"sync"
	"testing"
	"time"
)

func TestThrottleConcurrentCallersArePaced(t *testing.T) {
	provider := NewDuckDuckGoProvider()
	provider.rateLimit = 30 * time.Millisecond

	const callers = 3
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider.throttle()
		}()
	}
	wg.Wait()

	// The first caller passes immediately; each later caller waits out a
	// full window, so N callers need at least (N-1) windows.
	if elapsed := time.Since(start); elapsed < (callers-1)*30*time.Millisecond {
		t.Errorf("three concurrent calls finished in %v, want at least %v", elapsed, 2*30*time.Millisecond)
	}
}

func TestThrottleSingleCallerSkipsInitialWait(t *testing.T) {
	provider := NewDuckDuckGoProvider()
	provider.rateLimit = 500 * time.Millisecond

	start := time.Now()
	provider.throttle()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call waited %v, want no delay", elapsed)
	}
}
