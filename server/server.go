package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/configdb"
	"github.com/tallycam/tallycam/server/eventdb"
	"github.com/tallycam/tallycam/server/streamer"
	"github.com/tallycam/tallycam/server/track"
	"github.com/tallycam/tallycam/server/video"
)

// Options configure a Server at startup. Settings stored in the config DB
// take precedence over zero-valued fields here.
type Options struct {
	ConfigDBFilename string
	EventDBFilename  string
	Source           string // overrides the stored video source when non-empty
	FallbackSource   string
	DetectorURL      string // remote detection endpoint; empty runs the null detector
}

type Server struct {
	Log log.Log

	configDB *configdb.ConfigDB
	eventDB  *eventdb.EventDB
	tracker  *track.Tracker
	hub      *streamer.Hub
	video    *video.Service
	detector detect.Detector

	httpServer *http.Server
	httpRouter *httprouter.Router
	wsUpgrader websocket.Upgrader
	signalIn   chan os.Signal
}

func NewServer(logger log.Log, opts Options) (*Server, error) {
	configDB, err := configdb.NewConfigDB(logger, opts.ConfigDBFilename)
	if err != nil {
		return nil, err
	}
	eventDB, err := eventdb.Open(logger, opts.EventDBFilename)
	if err != nil {
		return nil, err
	}
	settings, err := configDB.GetSettings()
	if err != nil {
		return nil, err
	}
	if opts.Source != "" {
		settings.VideoSource = opts.Source
	}

	tracker := track.NewTracker(logger, settings.TrackingThreshold)
	if door, defined := settings.DoorZone(); defined {
		if err := tracker.SetDoorZone(door.X, door.Y, door.X2(), door.Y2()); err != nil {
			logger.Warnf("Ignoring stored door zone: %v", err)
		}
	}
	if err := tracker.SetInsideDirection(track.InsideDirection(settings.InsideDirection)); err != nil {
		logger.Warnf("Ignoring stored inside direction %v: %v", settings.InsideDirection, err)
	}

	var detector detect.Detector
	if opts.DetectorURL != "" {
		detector = detect.NewRemoteDetector(opts.DetectorURL)
	} else {
		logger.Warnf("No detector configured. Video will stream, but nobody gets counted.")
		detector = &detect.NullDetector{}
	}

	hub := streamer.NewHub(logger)
	videoService, err := video.NewService(logger, detector, tracker, hub, eventDB, video.Options{
		Source:         settings.VideoSource,
		FallbackSource: opts.FallbackSource,
		FrameRate:      settings.FrameRate,
		Width:          settings.Width,
		Height:         settings.Height,
		Params: detect.Params{
			ScoreThreshold: settings.ScoreThreshold,
			IouThreshold:   settings.IouThreshold,
		},
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		Log:      logger,
		configDB: configDB,
		eventDB:  eventDB,
		tracker:  tracker,
		hub:      hub,
		video:    videoService,
		detector: detector,
		wsUpgrader: websocket.Upgrader{
			// Counter dashboards run on other origins in dev. There are no
			// credentials on this socket, so a liberal check is OK.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupHttpRoutes()
	return s, nil
}

// Start launches the video capture loop.
func (s *Server) Start() {
	s.video.Start()
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	signal.Stop(s.signalIn)
	close(s.signalIn)

	s.video.Stop()
	s.detector.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP shutdown: %v", err)
		}
	}
	s.eventDB.Close()
	s.configDB.Close()
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
