package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/www"
	"github.com/tallycam/tallycam/server/streamer"
	"github.com/tallycam/tallycam/server/video"
)

func (s *Server) httpVideoSnapshot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	jpeg, err := s.video.JPEGFrame()
	if errors.Is(err, video.ErrNoFrame) {
		www.Panic(http.StatusServiceUnavailable, "No frame captured yet")
	}
	www.Check(err)
	www.CacheNever(w)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
	w.Write(jpeg)
}

func (s *Server) httpVideoFeed(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.video.ServeMJPEG(w, r, true)
}

func (s *Server) httpVideoRaw(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.video.ServeMJPEG(w, r, false)
}

func (s *Server) httpWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	initial := s.video.CounterUpdate()
	streamer.RunWebSocketStreamer(s.Log, conn, s.hub, &initial)
}
