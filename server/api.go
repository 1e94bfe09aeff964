package server

import (
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/www"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	www.Handle(s.Log, router, "GET", "/api/door-area", s.httpGetDoorArea)
	www.Handle(s.Log, router, "POST", "/api/door-area", s.httpSetDoorArea)
	www.Handle(s.Log, router, "GET", "/api/counter", s.httpGetCounter)
	www.Handle(s.Log, router, "POST", "/api/counter/reset", s.httpResetCounter)
	www.Handle(s.Log, router, "GET", "/api/settings", s.httpGetSettings)
	www.Handle(s.Log, router, "POST", "/api/settings", s.httpSetSettings)
	www.Handle(s.Log, router, "GET", "/api/logs", s.httpGetCountLogs)
	www.Handle(s.Log, router, "GET", "/api/alerts", s.httpGetAlerts)
	// Alert creation is open to any dashboard client, so cap the abuse
	www.HandleRateLimited(s.Log, router, "POST", "/api/alerts", 30, time.Minute, s.httpCreateAlert)
	www.Handle(s.Log, router, "POST", "/api/alerts/:alertID/acknowledge", s.httpAcknowledgeAlert)
	www.Handle(s.Log, router, "GET", "/api/alert-types", s.httpGetAlertTypes)
	www.Handle(s.Log, router, "GET", "/api/system-health", s.httpGetSystemHealth)
	www.Handle(s.Log, router, "POST", "/api/system-health", s.httpLogSystemHealth)
	www.Handle(s.Log, router, "GET", "/api/source-info", s.httpGetSourceInfo)
	www.Handle(s.Log, router, "GET", "/api/camera/probe", s.httpProbeCamera)

	www.Handle(s.Log, router, "GET", "/video/snapshot", s.httpVideoSnapshot)
	www.Handle(s.Log, router, "GET", "/video/feed", s.httpVideoFeed)
	www.Handle(s.Log, router, "GET", "/video/raw", s.httpVideoRaw)
	www.Handle(s.Log, router, "GET", "/ws", s.httpWebSocket)

	s.httpRouter = router
}
