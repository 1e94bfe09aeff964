// Package streamer pushes annotated frames and counter updates to
// subscribers, over channels in process and websockets at the edge.
package streamer

import (
	"sync"
	"time"

	"github.com/tallycam/tallycam/pkg/log"
)

// DoorCoordinates mirror the configured door zone in counter updates.
type DoorCoordinates struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// CounterUpdate is the push payload sent whenever counts (or the stream
// configuration) change.
type CounterUpdate struct {
	PeopleInRoom    int64            `json:"people_in_room"`
	Entries         int64            `json:"entries"`
	Exits           int64            `json:"exits"`
	FPS             float64          `json:"fps"`
	Resolution      string           `json:"resolution"`
	FrameRate       int              `json:"frame_rate"`
	VideoSource     string           `json:"video_source"`
	DoorCoordinates *DoorCoordinates `json:"door_coordinates,omitempty"`
	InsideDirection string           `json:"inside_direction,omitempty"`
}

// Event is one message to a subscriber. Exactly one field is set.
type Event struct {
	FrameJPEG []byte
	Counter   *CounterUpdate
}

// Number of events we buffer per subscriber before dropping.
const SubscriberBufferSize = 50

// Subscriber receives events on C. A subscriber that falls behind has
// events dropped, never blocking the publisher.
type Subscriber struct {
	C chan Event

	hub         *Hub
	nDropped    int64
	nSent       int64
	lastDropMsg time.Time
}

// Close detaches the subscriber from the hub.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans events out to subscribers. Publishing with zero subscribers is
// not an error; the events simply go nowhere.
type Hub struct {
	log log.Log

	lock sync.Mutex
	subs map[*Subscriber]bool
}

func NewHub(log log.Log) *Hub {
	return &Hub{
		log:  log,
		subs: map[*Subscriber]bool{},
	}
}

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		C:   make(chan Event, SubscriberBufferSize),
		hub: h,
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	h.subs[s] = true
	return s
}

func (h *Hub) unsubscribe(s *Subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.subs, s)
}

func (h *Hub) SubscriberCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.subs)
}

// PublishFrame sends an annotated JPEG to all subscribers.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.publish(Event{FrameJPEG: jpeg})
}

// PublishCounter sends a counter update to all subscribers.
func (h *Hub) PublishCounter(u CounterUpdate) {
	h.publish(Event{Counter: &u})
}

func (h *Hub) publish(ev Event) {
	h.lock.Lock()
	defer h.lock.Unlock()
	now := time.Now()
	for s := range h.subs {
		select {
		case s.C <- ev:
			s.nSent++
		default:
			s.nDropped++
			if now.Sub(s.lastDropMsg) > 5*time.Second {
				h.log.Infof("Dropped %v/%v events to slow subscriber", s.nDropped, s.nDropped+s.nSent)
				s.lastDropMsg = now
			}
		}
	}
}
