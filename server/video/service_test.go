package video

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/health"
	"github.com/tallycam/tallycam/server/streamer"
	"github.com/tallycam/tallycam/server/track"
)

// newIdleService builds a service on an unopenable source, without starting
// the capture loop. The degraded capture is fine for exercising the control
// paths; the loop's reconnect machinery owns recovery at runtime.
func newIdleService(t *testing.T, source, fallback string) *Service {
	logger := log.NewTestingLog(t)
	tracker := track.NewTracker(logger, 0)
	s, err := NewService(logger, &detect.NullDetector{}, tracker, streamer.NewHub(logger), nil, Options{
		Source:         source,
		FallbackSource: fallback,
	})
	require.NoError(t, err)
	return s
}

func TestSwitchToFallback(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "a.mp4")
	fallback := filepath.Join(dir, "b.mp4")
	s := newIdleService(t, primary, fallback)
	defer s.Stop()

	for i := 0; i < health.MaxReconnectAttempts; i++ {
		s.monitor.Failure()
	}
	require.True(t, s.monitor.ExceededMaxAttempts())

	backoff := backoffSeed
	s.reconnect(context.Background(), &backoff)

	require.Equal(t, fallback, s.CounterUpdate().VideoSource)
	// The switch resets the failure streak, so we don't immediately latch
	// into giving up on the fallback too
	require.False(t, s.monitor.ExceededMaxAttempts())
	// A second switch is a no-op
	require.False(t, s.switchToFallback())
}

func TestNoFallbackConfigured(t *testing.T) {
	s := newIdleService(t, filepath.Join(t.TempDir(), "a.mp4"), "")
	defer s.Stop()

	for i := 0; i < health.MaxReconnectAttempts; i++ {
		s.monitor.Failure()
	}
	require.False(t, s.switchToFallback())
}

func TestUpdateSettingsSwapsSource(t *testing.T) {
	dir := t.TempDir()
	s := newIdleService(t, filepath.Join(dir, "a.mp4"), "")
	defer s.Stop()

	// The new source may not be openable; the settings take effect regardless
	// and the capture loop keeps retrying
	next := filepath.Join(dir, "b.mp4")
	s.UpdateSettings(next, 15, 320, 240, detect.Params{})

	u := s.CounterUpdate()
	require.Equal(t, next, u.VideoSource)
	require.Equal(t, 15, u.FrameRate)
	require.Equal(t, "320x240", u.Resolution)
}

func TestStopIsBounded(t *testing.T) {
	s := newIdleService(t, filepath.Join(t.TempDir(), "missing.mp4"), "")
	s.Start()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	s.Stop()
	require.Less(t, time.Since(start), stopTimeout)
}
