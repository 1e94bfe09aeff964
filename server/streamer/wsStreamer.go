package streamer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/tallycam/tallycam/pkg/log"
)

// Sent by client over websocket
// SYNC-WEBSOCKET-JSON-MSG
type webSocketJSON struct {
	Command string `json:"command"`
}

// Every message we send on the websocket is a TEXT frame of this shape.
// Frames carry base64 JPEG so that browser clients can assign them straight
// into an <img> src.
// SYNC-WEBSOCKET-STRING-MESSAGE
type webSocketSendStringMessage struct {
	Type    string         `json:"type"` // "video_frame" or "counter_update"
	Frame   string         `json:"frame,omitempty"`
	Counter *CounterUpdate `json:"counter,omitempty"`
}

var nextWebSocketStreamerID int64

// WebSocketStreamer relays hub events to one websocket client.
// The client can pause and resume the feed (eg when its browser tab is
// deactivated) by sending {"command":"pause"} / {"command":"resume"}.
type WebSocketStreamer struct {
	log        log.Log
	streamerID int64 // aids logging
	paused     atomic.Bool
	closed     atomic.Bool
}

// RunWebSocketStreamer services conn until the client disconnects.
// initial, if non-nil, is sent before any hub events, so a freshly connected
// dashboard sees the current counts instead of zeros.
func RunWebSocketStreamer(logger log.Log, conn *websocket.Conn, hub *Hub, initial *CounterUpdate) {
	streamerID := atomic.AddInt64(&nextWebSocketStreamerID, 1)
	s := &WebSocketStreamer{
		log:        log.NewPrefixLogger(logger, fmt.Sprintf("WebSocket %v", streamerID)),
		streamerID: streamerID,
	}
	s.run(conn, hub, initial)
}

func (s *WebSocketStreamer) run(conn *websocket.Conn, hub *Hub, initial *CounterUpdate) {
	sub := hub.Subscribe()
	defer sub.Close()
	defer conn.Close()

	s.log.Infof("Connected")

	if initial != nil {
		if err := s.send(conn, Event{Counter: initial}); err != nil {
			s.log.Infof("Initial send failed, closing: %v", err)
			return
		}
	}

	fromWebSocket := make(chan webSocketJSON, 1)
	go s.webSocketReader(conn, fromWebSocket)

	for !s.closed.Load() {
		select {
		case ev := <-sub.C:
			if s.paused.Load() && ev.FrameJPEG != nil {
				continue
			}
			if err := s.send(conn, ev); err != nil {
				s.log.Infof("Send failed, closing: %v", err)
				s.closed.Store(true)
			}
		case msg, ok := <-fromWebSocket:
			if !ok {
				s.closed.Store(true)
				break
			}
			switch msg.Command {
			case "pause":
				s.paused.Store(true)
			case "resume":
				s.paused.Store(false)
			}
		}
	}
	s.log.Infof("Closed")
}

func (s *WebSocketStreamer) send(conn *websocket.Conn, ev Event) error {
	msg := webSocketSendStringMessage{}
	if ev.FrameJPEG != nil {
		msg.Type = "video_frame"
		msg.Frame = base64.StdEncoding.EncodeToString(ev.FrameJPEG)
	} else {
		msg.Type = "counter_update"
		msg.Counter = ev.Counter
	}
	buf, err := json.Marshal(&msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, buf)
}

// Read from the websocket and post to our own channel, so that we can run a
// single loop that handles reads from the websocket and events from the hub.
func (s *WebSocketStreamer) webSocketReader(conn *websocket.Conn, out chan webSocketJSON) {
	defer close(out)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg := webSocketJSON{}
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Infof("Ignoring unparseable message: %v", err)
			continue
		}
		out <- msg
	}
}
