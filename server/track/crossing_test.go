package track

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/log"
)

func newDoorTracker(t *testing.T, x1, y1, x2, y2 int) *Tracker {
	tr := NewTracker(log.NewTestingLog(t), DefaultThreshold)
	require.NoError(t, tr.SetDoorZone(x1, y1, x2, y2))
	return tr
}

func classify(tr *Tracker, prevX, prevY, curX, curY int) (bool, Direction) {
	return tr.classifyCrossing(geom.Point{X: prevX, Y: prevY}, geom.Point{X: curX, Y: curY})
}

// Door (100,100)-(300,400): 200 wide, 300 tall, so a tall door with left/right
// zones [100,160] and [240,300], and center lines at x=200, y=250.
func TestCrossingTallDoorZones(t *testing.T) {
	tr := newDoorTracker(t, 100, 100, 300, 400)

	// Left zone to right zone, within door height
	crossed, dir := classify(tr, 150, 250, 250, 250)
	require.True(t, crossed)
	require.Equal(t, LeftToRight, dir)

	// And the reverse
	crossed, dir = classify(tr, 250, 250, 150, 250)
	require.True(t, crossed)
	require.Equal(t, RightToLeft, dir)

	// Jumping beyond the zones still counts
	crossed, dir = classify(tr, 90, 250, 310, 250)
	require.True(t, crossed)
	require.Equal(t, LeftToRight, dir)

	// One endpoint inside the door's vertical extent is enough
	crossed, dir = classify(tr, 150, 90, 250, 150)
	require.True(t, crossed)
	require.Equal(t, LeftToRight, dir)

	// Both endpoints outside the door's vertical extent: no crossing
	crossed, _ = classify(tr, 150, 50, 250, 50)
	require.False(t, crossed)
}

func TestCrossingTallDoorCenterLineFallback(t *testing.T) {
	tr := newDoorTracker(t, 100, 100, 300, 400)

	// Small movement across x=200, too far from either zone: the zone test
	// misses, the center-line fallback catches it
	crossed, dir := classify(tr, 190, 250, 210, 250)
	require.True(t, crossed)
	require.Equal(t, LeftToRight, dir)

	crossed, dir = classify(tr, 210, 250, 190, 250)
	require.True(t, crossed)
	require.Equal(t, RightToLeft, dir)

	// Vertical movement across y=250, inside the door: vertical fallback
	crossed, dir = classify(tr, 200, 240, 200, 260)
	require.True(t, crossed)
	require.Equal(t, TopToBottom, dir)

	crossed, dir = classify(tr, 200, 260, 200, 240)
	require.True(t, crossed)
	require.Equal(t, BottomToTop, dir)

	// Fallback requires BOTH endpoints within the door rectangle
	crossed, _ = classify(tr, 190, 50, 210, 50)
	require.False(t, crossed)

	// No movement across any line
	crossed, _ = classify(tr, 150, 250, 155, 250)
	require.False(t, crossed)
}

// A movement that crosses both center lines resolves to the horizontal test,
// which runs first. One movement, one count.
func TestCrossingShortCircuit(t *testing.T) {
	tr := newDoorTracker(t, 100, 100, 300, 400)

	crossed, dir := classify(tr, 190, 240, 210, 260)
	require.True(t, crossed)
	require.Equal(t, LeftToRight, dir)
}

// Door (100,100)-(400,250): 300 wide, 150 tall, so a wide door with top/bottom
// zones [100,145] and [205,250].
func TestCrossingWideDoorZones(t *testing.T) {
	tr := newDoorTracker(t, 100, 100, 400, 250)

	crossed, dir := classify(tr, 200, 140, 200, 210)
	require.True(t, crossed)
	require.Equal(t, TopToBottom, dir)

	crossed, dir = classify(tr, 200, 210, 200, 140)
	require.True(t, crossed)
	require.Equal(t, BottomToTop, dir)

	// Outside the door's horizontal extent at both endpoints: gated out
	crossed, _ = classify(tr, 50, 140, 50, 210)
	require.False(t, crossed)
}

// A square door counts as wide (vertical crossings).
func TestCrossingSquareDoorIsWide(t *testing.T) {
	tr := newDoorTracker(t, 100, 100, 300, 300)

	crossed, dir := classify(tr, 200, 130, 200, 270)
	require.True(t, crossed)
	require.Equal(t, TopToBottom, dir)
}

func TestDoorZoneValidation(t *testing.T) {
	tr := NewTracker(log.NewTestingLog(t), DefaultThreshold)
	require.ErrorIs(t, tr.SetDoorZone(300, 100, 100, 400), ErrInvalidZone)
	require.ErrorIs(t, tr.SetDoorZone(100, 400, 300, 100), ErrInvalidZone)
	require.ErrorIs(t, tr.SetDoorZone(100, 100, 100, 400), ErrInvalidZone)
	_, defined := tr.DoorZone()
	require.False(t, defined)

	require.NoError(t, tr.SetDoorZone(100, 100, 300, 400))
	door, defined := tr.DoorZone()
	require.True(t, defined)
	require.Equal(t, geom.RectFromEdges(100, 100, 300, 400), door)

	// A rejected update retains the previous zone
	require.ErrorIs(t, tr.SetDoorZone(5, 5, 5, 5), ErrInvalidZone)
	door, defined = tr.DoorZone()
	require.True(t, defined)
	require.Equal(t, geom.RectFromEdges(100, 100, 300, 400), door)
}
