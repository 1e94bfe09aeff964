package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/www"
	"github.com/tallycam/tallycam/server/eventdb"
)

// Alert history. ?severity=&acknowledged=false&since=RFC3339&limit=N
func (s *Server) httpGetAlerts(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	filter := eventdb.AlertFilter{
		Type:     www.QueryValue(r, "type"),
		Severity: eventdb.Severity(www.QueryValue(r, "severity")),
		Limit:    www.QueryInt(r, "limit"),
	}
	if www.QueryValue(r, "acknowledged") == "false" {
		filter.UnacknowledgedOnly = true
	}
	if v := www.QueryValue(r, "since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			www.PanicBadRequestf("Invalid 'since' time: %v", err)
		}
		filter.Since = t
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		www.PanicBadRequestf("Invalid severity '%v'", filter.Severity)
	}
	alerts, err := s.eventDB.Alerts(filter)
	www.Check(err)
	www.SendJSON(w, alerts)
}

// SYNC-CREATE-ALERT-JSON
type createAlertJSON struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (s *Server) httpCreateAlert(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	j := createAlertJSON{}
	www.ReadJSON(w, r, &j, 1024*1024)
	if j.Type == "" || j.Message == "" {
		www.PanicBadRequestf("type and message are required")
	}
	id, err := s.eventDB.AddAlert(j.Type, j.Message, eventdb.Severity(j.Severity), time.Now())
	www.Check(err)
	www.SendJSONID(w, id)
}

func (s *Server) httpAcknowledgeAlert(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("alertID"))
	err := s.eventDB.AcknowledgeAlert(id)
	if errors.Is(err, eventdb.ErrAlertNotFound) {
		www.PanicNotFound()
	}
	www.Check(err)
	www.SendOK(w)
}

func (s *Server) httpGetAlertTypes(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	types, err := s.eventDB.AlertTypes()
	www.Check(err)
	www.SendJSON(w, types)
}

// Health sample history. ?hours=N&limit=N (default 24h, 100 rows)
func (s *Server) httpGetSystemHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	hours := www.QueryInt(r, "hours")
	if hours <= 0 {
		hours = 24
	}
	samples, err := s.eventDB.HealthSamples(time.Now().Add(-time.Duration(hours)*time.Hour), www.QueryInt(r, "limit"))
	www.Check(err)
	www.SendJSON(w, samples)
}

// Record a health sample. Resource metrics come from the caller (typically a
// node agent); processing FPS and connection state are filled in server-side.
func (s *Server) httpLogSystemHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sample := eventdb.HealthSample{}
	www.ReadJSON(w, r, &sample, 1024*1024)
	if sample.FPS == 0 {
		sample.FPS = s.video.FPS()
	}
	www.Check(s.eventDB.AddHealthSample(sample))
	www.SendJSON(w, &sample)
}
