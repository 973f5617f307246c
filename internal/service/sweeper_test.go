package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSweeper_EvictsIdleSessions(t *testing.T) {
	r := testRegistry()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return now })

	_, err := r.GetOrCreate("internal", privateTenant(100), "u1", int64Ptr(1))
	assert.NoError(t, err)
	assert.Equal(t, 1, r.Count())

	// Everything is now past the idle cutoff.
	now = now.Add(31 * time.Minute)

	sweeper := NewSweeperService(r, 30*time.Minute, zap.NewNop())
	sweeper.SetInterval(10 * time.Millisecond)
	sweeper.Start()
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		return r.Count() == 0
	}, time.Second, 10*time.Millisecond, "idle session should be swept")
}

func TestSweeper_StopTerminates(t *testing.T) {
	sweeper := NewSweeperService(testRegistry(), 30*time.Minute, zap.NewNop())
	sweeper.SetInterval(10 * time.Millisecond)
	sweeper.Start()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
