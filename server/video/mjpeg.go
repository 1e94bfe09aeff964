package video

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tallycam/tallycam/server/capture"
)

// Network streams that keep failing get the test pattern, so an operator can
// tell a dead stream from a dead server. Everything else gets the error frame.
const testPatternAfterFailures = 3

// ServeMJPEG streams frames as multipart/x-mixed-replace, paced at the
// target frame rate. With annotated=false the raw cached frame is streamed.
// While the source is down, diagnostic frames are substituted so the stream
// never goes dark.
func (s *Service) ServeMJPEG(w http.ResponseWriter, r *http.Request, annotated bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		jpeg := s.streamFrame(annotated)
		if jpeg != nil {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
				return
			}
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}

		time.Sleep(time.Second / time.Duration(s.targetFrameRate()))
	}
}

// streamFrame picks the next frame for an MJPEG consumer: live video when
// healthy, a diagnostic frame when not.
func (s *Service) streamFrame(annotated bool) []byte {
	status := s.CheckHealth()
	if !status.Healthy {
		return s.diagnosticFrame(status.ConsecutiveFailures)
	}

	if annotated {
		if jpeg := s.AnnotatedJPEG(); jpeg != nil {
			return jpeg
		}
	} else {
		if jpeg, err := s.JPEGFrame(); err == nil {
			return jpeg
		}
	}
	// Healthy but nothing cached yet (still starting up)
	return s.diagnosticFrame(0)
}

func (s *Service) diagnosticFrame(failures int) []byte {
	s.lock.Lock()
	width, height := s.width, s.height
	s.lock.Unlock()

	var jpeg []byte
	var err error
	if s.currentCapture().Kind() == capture.SourceNetwork && failures > testPatternAfterFailures {
		jpeg, err = TestPatternFrame(width, height)
	} else {
		jpeg, err = ErrorFrame(width, height, failures)
	}
	if err != nil {
		s.log.Errorf("Failed to render diagnostic frame: %v", err)
		return nil
	}
	return jpeg
}
