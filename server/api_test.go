package server

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/log"
)

func newTestServer(t *testing.T) *Server {
	tmp := t.TempDir()
	s, err := NewServer(log.NewTestingLog(t), Options{
		ConfigDBFilename: filepath.Join(tmp, "config.sqlite"),
		EventDBFilename:  filepath.Join(tmp, "events.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.video.Stop()
		s.eventDB.Close()
		s.configDB.Close()
	})
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.httpRouter.ServeHTTP(w, req)
	return w
}

func TestSettingsUpdateKeepsCounters(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/door-area", `{"x1":100,"y1":50,"x2":200,"y2":400,"inside_direction":"right"}`)
	require.Equal(t, 200, w.Code)

	// Walk one person through the door: left zone to right zone
	s.tracker.Update([]geom.Rect{{X: 115, Y: 190, Width: 20, Height: 20}}, 640)
	s.tracker.Update([]geom.Rect{{X: 162, Y: 190, Width: 20, Height: 20}}, 640)
	entries, _ := s.tracker.EntryExit()
	require.Equal(t, int64(1), entries)

	// Changing an unrelated setting must not touch the counters
	w = doRequest(t, s, "POST", "/api/settings", `{"frameRate":15}`)
	require.Equal(t, 200, w.Code)
	entries, _ = s.tracker.EntryExit()
	require.Equal(t, int64(1), entries)

	// Moving the door is a redefinition, which does reset them
	w = doRequest(t, s, "POST", "/api/settings", `{"doorX1":110}`)
	require.Equal(t, 200, w.Code)
	entries, exits := s.tracker.EntryExit()
	require.Equal(t, int64(0), entries)
	require.Equal(t, int64(0), exits)
}
