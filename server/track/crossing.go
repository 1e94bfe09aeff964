package track

import "github.com/tallycam/tallycam/pkg/geom"

// classifyCrossing decides whether the movement from prev to cur crossed the
// door zone, and in which direction.
//
// The door's orientation is inferred from its aspect ratio. A tall door is
// crossed horizontally, a wide (or square) door vertically. The primary test
// uses two detection zones, each 30% of the door's span, at opposite edges:
// a crossing is a jump from one zone to the other (or beyond) while at least
// one endpoint is within the door's perpendicular extent. If the zone test
// doesn't fire, we fall back to center-line tests constrained to the door
// rectangle: the horizontal crossing test runs first, then the vertical one,
// and the first match wins. A single movement therefore never counts twice.
func (t *Tracker) classifyCrossing(prev, cur geom.Point) (bool, Direction) {
	x1 := float64(t.door.X)
	y1 := float64(t.door.Y)
	x2 := float64(t.door.X2())
	y2 := float64(t.door.Y2())
	doorWidth := x2 - x1
	doorHeight := y2 - y1

	prevX := float64(prev.X)
	prevY := float64(prev.Y)
	curX := float64(cur.X)
	curY := float64(cur.Y)

	if doorHeight > doorWidth {
		// Tall door: left/right zones
		zoneWidth := doorWidth * 0.3
		leftZoneRight := x1 + zoneWidth
		rightZoneLeft := x2 - zoneWidth

		if (y1 <= prevY && prevY <= y2) || (y1 <= curY && curY <= y2) {
			if prevX <= leftZoneRight && curX >= rightZoneLeft {
				return true, LeftToRight
			} else if prevX >= rightZoneLeft && curX <= leftZoneRight {
				return true, RightToLeft
			}
		}
	} else {
		// Wide door: top/bottom zones
		zoneHeight := doorHeight * 0.3
		topZoneBottom := y1 + zoneHeight
		bottomZoneTop := y2 - zoneHeight

		if (x1 <= prevX && prevX <= x2) || (x1 <= curX && curX <= x2) {
			if prevY <= topZoneBottom && curY >= bottomZoneTop {
				return true, TopToBottom
			} else if prevY >= bottomZoneTop && curY <= topZoneBottom {
				return true, BottomToTop
			}
		}
	}

	// Center-line fallback for movements the zone test misses (eg both
	// endpoints near the middle of the door)
	doorCenterX := (x1 + x2) / 2
	doorCenterY := (y1 + y2) / 2

	if (y1 <= prevY && prevY <= y2) && (y1 <= curY && curY <= y2) {
		if prevX < doorCenterX && curX >= doorCenterX {
			return true, LeftToRight
		} else if prevX >= doorCenterX && curX < doorCenterX {
			return true, RightToLeft
		}
	}

	if (x1 <= prevX && prevX <= x2) && (x1 <= curX && curX <= x2) {
		if prevY < doorCenterY && curY >= doorCenterY {
			return true, TopToBottom
		} else if prevY >= doorCenterY && curY < doorCenterY {
			return true, BottomToTop
		}
	}

	return false, ""
}
