package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/track"
	"gocv.io/x/gocv"
)

type panickyDetector struct{}

func (d *panickyDetector) Detect(img gocv.Mat, params *detect.Params) ([]detect.Detection, error) {
	panic("model exploded")
}

func (d *panickyDetector) Close() {}

// fakeClock advances a fixed step per call, so the cadence gate never skips
// unless we want it to.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func box(cx, cy int) geom.Rect {
	return geom.Rect{X: cx - 10, Y: cy - 10, Width: 20, Height: 20}
}

func newTestFrame(t *testing.T) *gocv.Mat {
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestPipelineCountsWalkThroughDoor(t *testing.T) {
	logger := log.NewTestingLog(t)
	tracker := track.NewTracker(logger, 50)
	require.NoError(t, tracker.SetDoorZone(100, 100, 300, 400))

	detector := detect.NewScriptedDetector(
		[]geom.Rect{box(150, 250)},
		[]geom.Rect{box(190, 250)},
		[]geom.Rect{box(230, 250)},
		[]geom.Rect{box(270, 250)},
	)
	p := NewPipeline(logger, detector, tracker, *detect.DefaultParams(), 30)
	p.now = fakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), 100*time.Millisecond)

	frame := newTestFrame(t)
	crossings := 0
	for i := 0; i < 4; i++ {
		res := p.Process(frame)
		require.NoError(t, res.Err)
		require.False(t, res.Skipped)
		require.Len(t, res.Detections, 1)
		crossings += res.Movement.LeftToRight
	}
	require.Equal(t, 1, crossings)

	entries, _ := tracker.EntryExit()
	require.Equal(t, int64(1), entries)
	require.Greater(t, p.FPS(), 0.0)
}

func TestPipelineCadenceGate(t *testing.T) {
	logger := log.NewTestingLog(t)
	tracker := track.NewTracker(logger, 50)
	detector := detect.NewScriptedDetector([]geom.Rect{box(100, 100)})
	p := NewPipeline(logger, detector, tracker, *detect.DefaultParams(), 30)
	// 1ms per call: well inside the 33ms frame interval
	p.now = fakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), time.Millisecond)

	frame := newTestFrame(t)
	first := p.Process(frame)
	require.False(t, first.Skipped)

	second := p.Process(frame)
	require.True(t, second.Skipped)
	require.NoError(t, second.Err)
}

func TestPipelineRejectsEmptyFrame(t *testing.T) {
	logger := log.NewTestingLog(t)
	tracker := track.NewTracker(logger, 50)
	detector := detect.NewScriptedDetector([]geom.Rect{box(100, 100)})
	p := NewPipeline(logger, detector, tracker, *detect.DefaultParams(), 30)
	// 1ms per call, so the second Process lands inside the cadence gate
	p.now = fakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), time.Millisecond)

	empty := gocv.NewMat()
	defer empty.Close()

	res := p.Process(&empty)
	require.ErrorIs(t, res.Err, ErrEmptyFrame)
	require.False(t, res.Skipped)

	// The skip path draws on the frame too; it must reject as well
	frame := newTestFrame(t)
	require.NoError(t, p.Process(frame).Err)
	res = p.Process(&empty)
	require.ErrorIs(t, res.Err, ErrEmptyFrame)
}

func TestPipelineContainsDetectorPanic(t *testing.T) {
	logger := log.NewTestingLog(t)
	tracker := track.NewTracker(logger, 50)
	p := NewPipeline(logger, &panickyDetector{}, tracker, *detect.DefaultParams(), 30)
	p.now = fakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), 100*time.Millisecond)

	frame := newTestFrame(t)
	res := p.Process(frame)
	require.Error(t, res.Err)

	// The pipeline keeps working afterwards
	res = p.Process(frame)
	require.Error(t, res.Err)
}
