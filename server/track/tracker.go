package track

import (
	"slices"
	"sync"

	"github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/log"
)

// DefaultThreshold is the maximum centroid displacement (in pixels) between
// consecutive frames for a detection to continue an existing track.
const DefaultThreshold = 50

// Tracker matches detections across frames by nearest centroid, and counts
// directional crossings through the door zone.
//
// Matching is greedy, per detection, in detection order. A previous center is
// matched when it is the closest candidate strictly inside the threshold.
// Matched tracks are not claimed: two detections in one frame may match the
// same track, in which case the later one's center wins. Tracks that match no
// detection die immediately; there is no grace period.
//
// Safe for concurrent use.
type Tracker struct {
	log log.Log

	lock        sync.Mutex
	threshold   float32
	prevCenters map[int64]geom.Point
	nextID      int64
	counters    Counters
	door        geom.Rect
	doorDefined bool
	inside      InsideDirection
}

func NewTracker(log log.Log, threshold float32) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		log:         log,
		threshold:   threshold,
		prevCenters: map[int64]geom.Point{},
		inside:      InsideRight,
	}
}

// SetThreshold changes the matching threshold for subsequent updates.
func (t *Tracker) SetThreshold(threshold float32) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if threshold > 0 {
		t.threshold = threshold
	}
}

// SetDoorZone defines the door rectangle (x1,y1)-(x2,y2). Degenerate zones
// are rejected with ErrInvalidZone and the previous zone is retained.
// Redefining the zone resets all counters and live tracks.
func (t *Tracker) SetDoorZone(x1, y1, x2, y2 int) error {
	if x1 >= x2 || y1 >= y2 {
		return ErrInvalidZone
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.door = geom.RectFromEdges(x1, y1, x2, y2)
	t.doorDefined = true
	t.counters = Counters{}
	t.prevCenters = map[int64]geom.Point{}
	t.log.Infof("Door zone set to (%v,%v)-(%v,%v)", x1, y1, x2, y2)
	return nil
}

// DoorZone returns the door rectangle, and whether one is defined.
func (t *Tracker) DoorZone() (geom.Rect, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.door, t.doorDefined
}

// SetInsideDirection declares which side of the door is inside the room.
func (t *Tracker) SetInsideDirection(dir InsideDirection) error {
	if !dir.Valid() {
		return ErrInvalidDirection
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.inside = dir
	t.log.Infof("Inside direction set to %v", dir)
	return nil
}

func (t *Tracker) InsideDirection() InsideDirection {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.inside
}

// Update ingests the detections of one frame and returns the crossings
// observed in that frame. frameWidth is used for the center-line fallback
// when no door zone is defined.
func (t *Tracker) Update(boxes []geom.Rect, frameWidth int) Movement {
	t.lock.Lock()
	defer t.lock.Unlock()

	// Snapshot previous centers in ascending id order, so that equidistant
	// candidates resolve to the oldest track, deterministically.
	ids := make([]int64, 0, len(t.prevCenters))
	for id := range t.prevCenters {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// Spatial index over previous centers. The query window is the threshold
	// box around each detection, which contains the threshold ball, so the
	// exact distance scan below sees every viable candidate.
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(ids))
	for _, id := range ids {
		p := t.prevCenters[id]
		fb.Add(int32(p.X), int32(p.Y), int32(p.X), int32(p.Y))
	}
	fb.Finish()
	window := int32(math32.Ceil(t.threshold))

	current := make(map[int64]geom.Point, len(boxes))
	movement := Movement{}

	for _, box := range boxes {
		center := box.Center()

		bestDist := float32(math32.MaxFloat32)
		matched := int64(-1)
		candidates := fb.Search(int32(center.X)-window, int32(center.Y)-window, int32(center.X)+window, int32(center.Y)+window)
		slices.Sort(candidates)
		for _, j := range candidates {
			id := ids[j]
			dist := center.Distance(t.prevCenters[id])
			if dist < bestDist && dist < t.threshold {
				bestDist = dist
				matched = id
			}
		}

		if matched == -1 {
			matched = t.nextID
			t.nextID++
		}

		prev, continued := t.prevCenters[matched]
		current[matched] = center
		if !continued {
			continue
		}

		if t.doorDefined {
			crossed, dir := t.classifyCrossing(prev, center)
			if crossed {
				t.recordCrossing(&movement, dir, matched)
			}
		} else {
			// No door zone: count crossings of the vertical frame center line
			centerLine := frameWidth / 2
			if prev.X < centerLine && center.X >= centerLine {
				t.recordCrossing(&movement, LeftToRight, matched)
			} else if prev.X >= centerLine && center.X < centerLine {
				t.recordCrossing(&movement, RightToLeft, matched)
			}
		}
	}

	t.prevCenters = current
	return movement
}

func (t *Tracker) recordCrossing(movement *Movement, dir Direction, trackID int64) {
	switch dir {
	case LeftToRight:
		movement.LeftToRight++
		t.counters.LeftToRight++
	case RightToLeft:
		movement.RightToLeft++
		t.counters.RightToLeft++
	case TopToBottom:
		movement.TopToBottom++
		t.counters.TopToBottom++
	case BottomToTop:
		movement.BottomToTop++
		t.counters.BottomToTop++
	}
	t.log.Debugf("Person %v moved %v through door", trackID, dir)
}

// Counters returns the cumulative directional counts.
func (t *Tracker) Counters() Counters {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.counters
}

// EntryExit maps the directional counts onto entries and exits, according to
// the inside direction.
func (t *Tracker) EntryExit() (entries, exits int64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.entryExit()
}

func (t *Tracker) entryExit() (entries, exits int64) {
	switch t.inside {
	case InsideRight:
		return t.counters.LeftToRight, t.counters.RightToLeft
	case InsideLeft:
		return t.counters.RightToLeft, t.counters.LeftToRight
	case InsideDown:
		return t.counters.TopToBottom, t.counters.BottomToTop
	case InsideUp:
		return t.counters.BottomToTop, t.counters.TopToBottom
	}
	return t.counters.LeftToRight, t.counters.RightToLeft
}

// PeopleInRoom returns entries minus exits, clamped at zero.
func (t *Tracker) PeopleInRoom() int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	entries, exits := t.entryExit()
	return max(0, entries-exits)
}

// Reset zeroes all counters and discards live tracks, atomically.
// Track ids are not reused; the id sequence continues after a reset.
func (t *Tracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.counters = Counters{}
	t.prevCenters = map[int64]geom.Point{}
	t.log.Infof("Movement counters have been reset")
}

// LiveTracks returns the number of currently tracked people.
func (t *Tracker) LiveTracks() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.prevCenters)
}
