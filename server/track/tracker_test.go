package track

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/log"
)

// box returns a 20x20 detection box centered on (cx, cy)
func box(cx, cy int) geom.Rect {
	return geom.Rect{X: cx - 10, Y: cy - 10, Width: 20, Height: 20}
}

const testFrameWidth = 200

func TestThresholdIsStrict(t *testing.T) {
	// No door zone: crossings of the frame center line (x=100) are counted,
	// but only for continued tracks. A displacement of exactly the threshold
	// must start a new track instead of continuing the old one.
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(60, 100)}, testFrameWidth)
	tr.Update([]geom.Rect{box(110, 100)}, testFrameWidth) // dist 50: new track
	require.Equal(t, Counters{}, tr.Counters())

	tr = NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(61, 100)}, testFrameWidth)
	tr.Update([]geom.Rect{box(110, 100)}, testFrameWidth) // dist 49: continued
	require.Equal(t, Counters{LeftToRight: 1}, tr.Counters())
}

func TestCenterLineFallbackWithoutDoor(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	m := tr.Update([]geom.Rect{box(80, 50)}, testFrameWidth)
	require.False(t, m.Any())

	m = tr.Update([]geom.Rect{box(120, 50)}, testFrameWidth)
	require.Equal(t, 1, m.LeftToRight)

	m = tr.Update([]geom.Rect{box(90, 50)}, testFrameWidth)
	require.Equal(t, 1, m.RightToLeft)

	require.Equal(t, Counters{LeftToRight: 1, RightToLeft: 1}, tr.Counters())
}

func TestMonotonicIDs(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(50, 50), box(150, 150)}, testFrameWidth)
	require.Equal(t, 2, tr.LiveTracks())
	require.Equal(t, int64(2), tr.nextID)

	// Both tracks continue: no new ids
	tr.Update([]geom.Rect{box(55, 50), box(145, 150)}, testFrameWidth)
	require.Equal(t, 2, tr.LiveTracks())
	require.Equal(t, int64(2), tr.nextID)

	// A detection far from everything gets a fresh id
	tr.Update([]geom.Rect{box(55, 50), box(145, 150), box(55, 150)}, testFrameWidth)
	require.Equal(t, 3, tr.LiveTracks())
	require.Equal(t, int64(3), tr.nextID)
}

func TestIDsNotReusedAfterReset(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(50, 50), box(150, 150)}, testFrameWidth)
	require.Equal(t, int64(2), tr.nextID)

	tr.Reset()
	require.Equal(t, 0, tr.LiveTracks())

	tr.Update([]geom.Rect{box(50, 50)}, testFrameWidth)
	require.Equal(t, int64(3), tr.nextID)
}

func TestTrackDeathIsImmediate(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(50, 50)}, testFrameWidth)
	require.Equal(t, 1, tr.LiveTracks())

	// One empty frame kills the track
	tr.Update(nil, testFrameWidth)
	require.Equal(t, 0, tr.LiveTracks())

	// The person reappearing in the same spot is a new track
	tr.Update([]geom.Rect{box(50, 50)}, testFrameWidth)
	require.Equal(t, int64(2), tr.nextID)
}

// Two detections may continue the same track; the later one's center wins.
func TestSharedMatch(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.Update([]geom.Rect{box(100, 100)}, testFrameWidth)
	tr.Update([]geom.Rect{box(90, 100), box(110, 100)}, testFrameWidth)
	require.Equal(t, 1, tr.LiveTracks())
	require.Equal(t, int64(1), tr.nextID)
	require.Equal(t, geom.Point{X: 110, Y: 100}, tr.prevCenters[0])
}

// Walk a person through the door zone in small steps: the crossing is
// counted exactly once.
func TestWalkThroughDoor(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	require.NoError(t, tr.SetDoorZone(100, 100, 300, 400))
	require.NoError(t, tr.SetInsideDirection(InsideRight))

	total := Movement{}
	for _, x := range []int{150, 190, 230, 270} {
		m := tr.Update([]geom.Rect{box(x, 250)}, 640)
		total.LeftToRight += m.LeftToRight
		total.RightToLeft += m.RightToLeft
	}
	require.Equal(t, 1, total.LeftToRight)
	require.Equal(t, 0, total.RightToLeft)

	entries, exits := tr.EntryExit()
	require.Equal(t, int64(1), entries)
	require.Equal(t, int64(0), exits)
	require.Equal(t, int64(1), tr.PeopleInRoom())

	// And back out again
	for _, x := range []int{270, 230, 190, 150} {
		tr.Update([]geom.Rect{box(x, 250)}, 640)
	}
	entries, exits = tr.EntryExit()
	require.Equal(t, int64(1), entries)
	require.Equal(t, int64(1), exits)
	require.Equal(t, int64(0), tr.PeopleInRoom())
}

func TestEntryExitMapping(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.counters = Counters{LeftToRight: 5, RightToLeft: 3, TopToBottom: 7, BottomToTop: 2}

	cases := []struct {
		inside  InsideDirection
		entries int64
		exits   int64
	}{
		{InsideRight, 5, 3},
		{InsideLeft, 3, 5},
		{InsideDown, 7, 2},
		{InsideUp, 2, 7},
	}
	for _, c := range cases {
		require.NoError(t, tr.SetInsideDirection(c.inside))
		entries, exits := tr.EntryExit()
		require.Equal(t, c.entries, entries, "inside=%v", c.inside)
		require.Equal(t, c.exits, exits, "inside=%v", c.inside)
	}

	require.ErrorIs(t, tr.SetInsideDirection("sideways"), ErrInvalidDirection)
}

func TestPeopleInRoomClamp(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	tr.counters = Counters{LeftToRight: 1, RightToLeft: 4}
	require.NoError(t, tr.SetInsideDirection(InsideRight))
	require.Equal(t, int64(0), tr.PeopleInRoom())
}

func TestDoorRedefinitionResetsCounters(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), 50)
	require.NoError(t, tr.SetDoorZone(100, 100, 300, 400))
	tr.counters = Counters{LeftToRight: 5}
	tr.Update([]geom.Rect{box(150, 250)}, 640)
	require.Equal(t, 1, tr.LiveTracks())

	require.NoError(t, tr.SetDoorZone(50, 50, 200, 350))
	require.Equal(t, Counters{}, tr.Counters())
	require.Equal(t, 0, tr.LiveTracks())
}
