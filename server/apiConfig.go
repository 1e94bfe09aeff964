package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/www"
	"github.com/tallycam/tallycam/server/capture"
	"github.com/tallycam/tallycam/server/configdb"
	"github.com/tallycam/tallycam/server/track"
)

// SYNC-DOOR-AREA-JSON
type doorAreaJSON struct {
	DoorDefined     bool   `json:"door_defined"`
	X1              int    `json:"x1"`
	Y1              int    `json:"y1"`
	X2              int    `json:"x2"`
	Y2              int    `json:"y2"`
	InsideDirection string `json:"inside_direction,omitempty"`
}

func (s *Server) httpGetDoorArea(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	j := doorAreaJSON{}
	if door, defined := s.tracker.DoorZone(); defined {
		j.DoorDefined = true
		j.X1, j.Y1, j.X2, j.Y2 = door.X, door.Y, door.X2(), door.Y2()
		j.InsideDirection = string(s.tracker.InsideDirection())
	}
	www.SendJSON(w, &j)
}

func (s *Server) httpSetDoorArea(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	j := doorAreaJSON{}
	www.ReadJSON(w, r, &j, 1024*1024)
	if j.InsideDirection == "" {
		j.InsideDirection = string(track.InsideRight)
	}

	www.CheckClient(s.tracker.SetDoorZone(j.X1, j.Y1, j.X2, j.Y2))
	www.CheckClient(s.tracker.SetInsideDirection(track.InsideDirection(j.InsideDirection)))

	settings, err := s.configDB.GetSettings()
	www.Check(err)
	settings.DoorDefined = true
	settings.DoorX1, settings.DoorY1 = j.X1, j.Y1
	settings.DoorX2, settings.DoorY2 = j.X2, j.Y2
	settings.InsideDirection = j.InsideDirection
	www.Check(s.configDB.SetSettings(settings))

	s.Log.Infof("Door zone set to (%v,%v)-(%v,%v), inside: %v", j.X1, j.Y1, j.X2, j.Y2, j.InsideDirection)
	s.video.PublishCounter()
	www.SendOK(w)
}

func (s *Server) httpGetSettings(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings, err := s.configDB.GetSettings()
	www.Check(err)
	www.SendJSON(w, &settings)
}

func (s *Server) httpSetSettings(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings, err := s.configDB.GetSettings()
	www.Check(err)
	prev := settings
	www.ReadJSON(w, r, &settings, 1024*1024)
	www.CheckClient(s.configDB.SetSettings(settings))

	s.tracker.SetThreshold(settings.TrackingThreshold)
	www.CheckClient(s.tracker.SetInsideDirection(track.InsideDirection(settings.InsideDirection)))
	// Redefining the door zone wipes the counters, so re-applying an
	// unchanged zone must not reach the tracker. Tweaking the frame rate
	// shouldn't zero the occupancy count.
	if door, defined := settings.DoorZone(); defined && doorChanged(prev, settings) {
		www.CheckClient(s.tracker.SetDoorZone(door.X, door.Y, door.X2(), door.Y2()))
	}

	err = s.video.UpdateSettings(settings.VideoSource, settings.FrameRate, settings.Width, settings.Height, detect.Params{
		ScoreThreshold: settings.ScoreThreshold,
		IouThreshold:   settings.IouThreshold,
	})
	if err != nil {
		// Settings are saved, but the new source isn't delivering. The capture
		// loop keeps retrying, so this is a warning for the client, not a failure.
		s.Log.Warnf("New video source not yet usable: %v", err)
	}
	www.SendOK(w)
}

func doorChanged(a, b configdb.Settings) bool {
	return a.DoorDefined != b.DoorDefined ||
		a.DoorX1 != b.DoorX1 || a.DoorY1 != b.DoorY1 ||
		a.DoorX2 != b.DoorX2 || a.DoorY2 != b.DoorY2
}

func (s *Server) httpGetSourceInfo(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	info := s.video.SourceInfo()
	www.SendJSON(w, &info)
}

// Probe an RTSP URL before committing it as the video source.
// ?url=rtsp://...
func (s *Server) httpProbeCamera(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	url := www.RequiredQueryValue(r, "url")
	info, err := capture.DescribeRTSP(url)
	if err != nil {
		www.PanicBadRequestf("Probe failed: %v", err)
	}
	www.SendJSON(w, info)
}
