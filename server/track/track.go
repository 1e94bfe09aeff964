// Package track implements centroid tracking of detected people, and counts
// directional crossings through a configurable door zone.
package track

import "errors"

var (
	// ErrInvalidZone is returned for degenerate door zones (x1 >= x2 or y1 >= y2)
	ErrInvalidZone = errors.New("invalid door zone")
	// ErrInvalidDirection is returned for an unrecognized inside direction
	ErrInvalidDirection = errors.New("invalid inside direction")
)

// Direction is a crossing direction through the door zone (or center line).
type Direction string

const (
	LeftToRight Direction = "left_to_right"
	RightToLeft Direction = "right_to_left"
	TopToBottom Direction = "top_to_bottom"
	BottomToTop Direction = "bottom_to_top"
)

// InsideDirection declares which side of the door is "inside the room".
// It determines how directional counts map onto entries and exits.
type InsideDirection string

const (
	InsideLeft  InsideDirection = "left"
	InsideRight InsideDirection = "right"
	InsideUp    InsideDirection = "up"
	InsideDown  InsideDirection = "down"
)

func (d InsideDirection) Valid() bool {
	switch d {
	case InsideLeft, InsideRight, InsideUp, InsideDown:
		return true
	}
	return false
}

// Movement holds the crossings observed in a single frame.
type Movement struct {
	LeftToRight int `json:"left_to_right"`
	RightToLeft int `json:"right_to_left"`
	TopToBottom int `json:"top_to_bottom"`
	BottomToTop int `json:"bottom_to_top"`
}

func (m Movement) Any() bool {
	return m.LeftToRight != 0 || m.RightToLeft != 0 || m.TopToBottom != 0 || m.BottomToTop != 0
}

// Counters are the cumulative directional crossing counts.
type Counters struct {
	LeftToRight int64 `json:"left_to_right"`
	RightToLeft int64 `json:"right_to_left"`
	TopToBottom int64 `json:"top_to_bottom"`
	BottomToTop int64 `json:"bottom_to_top"`
}
