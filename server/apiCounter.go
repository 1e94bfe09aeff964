package server

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/www"
)

// SYNC-COUNTER-JSON
type counterJSON struct {
	Entries      int64  `json:"entries"`
	Exits        int64  `json:"exits"`
	PeopleInRoom int64  `json:"people_in_room"`
	DoorDefined  bool   `json:"door_defined"`
	Timestamp    string `json:"timestamp"`
}

func (s *Server) httpGetCounter(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	entries, exits := s.tracker.EntryExit()
	_, doorDefined := s.tracker.DoorZone()
	www.CacheNever(w)
	www.SendJSON(w, &counterJSON{
		Entries:      entries,
		Exits:        exits,
		PeopleInRoom: s.tracker.PeopleInRoom(),
		DoorDefined:  doorDefined,
		Timestamp:    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) httpResetCounter(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.tracker.Reset()
	s.Log.Infof("Counters reset via API")
	s.video.PublishCounter()
	www.SendOK(w)
}

// Counting history. ?since=RFC3339&limit=N (default: last 24h, 50 rows)
func (s *Server) httpGetCountLogs(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	since := time.Now().Add(-24 * time.Hour)
	if v := www.QueryValue(r, "since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			www.PanicBadRequestf("Invalid 'since' time: %v", err)
		}
		since = t
	}
	limit := www.QueryInt(r, "limit")
	if limit <= 0 {
		limit = 50
	}
	logs, err := s.eventDB.CountLogs(since, limit)
	www.Check(err)
	www.SendJSON(w, logs)
}
