package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/log"
)

func TestSuccessResetsFailures(t *testing.T) {
	m := NewMonitor(log.NewTestingLog(t))
	m.Failure()
	m.Failure()
	m.Failure()
	require.Equal(t, 3, m.ConsecutiveFailures())
	require.True(t, m.ShouldReconnect())

	m.Success()
	require.Equal(t, 0, m.ConsecutiveFailures())
	require.False(t, m.ShouldReconnect())
	require.True(t, m.Check("device").Healthy)
}

func TestTimeoutOnlyAfterFirstSuccess(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitorWithClock(log.NewTestingLog(t), func() time.Time { return now })

	// No successful read yet: timeout never fires, no matter how long we wait
	now = now.Add(time.Hour)
	require.True(t, m.Check("network").Healthy)

	m.Success()
	require.True(t, m.Check("network").Healthy)

	// Just inside the threshold
	now = now.Add(5 * time.Second)
	require.True(t, m.Check("network").Healthy)

	// Past the threshold
	now = now.Add(time.Millisecond)
	status := m.Check("network")
	require.False(t, status.Healthy)
	require.Equal(t, "network", status.SourceType)
	require.Greater(t, status.TimeSinceLastRead, 5.0)

	// A new successful read recovers
	m.Success()
	require.True(t, m.Check("network").Healthy)
}

func TestTimeoutAloneDoesNotReconnect(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitorWithClock(log.NewTestingLog(t), func() time.Time { return now })

	m.Success()
	now = now.Add(10 * time.Second)
	require.False(t, m.Check("file").Healthy)
	// Unhealthy, but zero failures: the read loop decides on its own failures
	require.False(t, m.ShouldReconnect())

	m.Failure()
	require.True(t, m.ShouldReconnect())
}

func TestExceededMaxAttempts(t *testing.T) {
	m := NewMonitor(log.NewTestingLog(t))
	for i := 0; i < MaxReconnectAttempts-1; i++ {
		m.Failure()
		require.False(t, m.ExceededMaxAttempts())
	}
	m.Failure()
	require.True(t, m.ExceededMaxAttempts())

	m.Success()
	require.False(t, m.ExceededMaxAttempts())
}

func TestResetClearsHistory(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitorWithClock(log.NewTestingLog(t), func() time.Time { return now })

	m.Success()
	for i := 0; i < MaxReconnectAttempts; i++ {
		m.Failure()
	}
	require.True(t, m.ExceededMaxAttempts())

	m.Reset()
	require.False(t, m.ExceededMaxAttempts())
	require.False(t, m.ShouldReconnect())
	require.Equal(t, 0, m.ConsecutiveFailures())

	// The pre-reset read history is gone, so the new source gets the same
	// warmup grace as a fresh monitor
	now = now.Add(time.Hour)
	require.True(t, m.Check("network").Healthy)
}
