// Package capture opens and manages video sources: local cameras, network
// streams, and video files, through a single OpenCV-backed interface.
package capture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tallycam/tallycam/pkg/log"
	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable means the source could not be opened
	ErrSourceUnavailable = errors.New("video source unavailable")
	// ErrReadFailed means the open source failed to deliver a frame
	ErrReadFailed = errors.New("frame read failed")
)

const (
	openTimeoutMsec = 10000
	readTimeoutMsec = 5000
)

// networkBackends is the priority order of OpenCV backends we try for
// rtsp/rtmp streams. FFmpeg handles the widest range of streams, GStreamer
// is the usual fallback on embedded builds, and Any lets OpenCV choose.
var networkBackends = []gocv.VideoCaptureAPI{
	gocv.VideoCaptureFFmpeg,
	gocv.VideoCaptureGstreamer,
	gocv.VideoCaptureAny,
}

// SourceDescriptor describes the currently open source.
type SourceDescriptor struct {
	Source      string     `json:"source"`
	Kind        SourceKind `json:"sourceType"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	TargetFPS   int        `json:"targetFps"`
	OriginalFPS float64    `json:"originalFps"`
	FrameCount  int        `json:"frameCount"` // files only
	Duration    float64    `json:"duration"`   // seconds, files only
}

// Manager owns one video capture session. Opening never returns a fatal
// error to the caller of NewManager: a source that cannot be opened yields a
// degraded session whose Read always fails, so the streaming loop's
// reconnect machinery handles it like any other outage.
//
// Safe for concurrent use.
type Manager struct {
	log       log.Log
	source    string
	frameRate int
	width     int
	height    int

	// kind lives outside the session lock. Opening a network source can block
	// for tens of seconds with the lock held, and frame consumers ask for the
	// kind on every frame; they must never wait behind an open or a read.
	kind atomic.Value // SourceKind

	lock sync.Mutex
	cap  *gocv.VideoCapture
}

// NewManager creates a manager and opens the source. The returned manager is
// usable even when err is non-nil; it is degraded until Reopen succeeds.
func NewManager(logger log.Log, source string, frameRate, width, height int) (*Manager, error) {
	m := &Manager{
		log:       log.NewPrefixLogger(logger, "capture:"),
		source:    source,
		frameRate: frameRate,
		width:     width,
		height:    height,
	}
	m.kind.Store(Classify(source))
	err := m.open()
	return m, err
}

func (m *Manager) open() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.openLocked()
}

func (m *Manager) openLocked() error {
	if m.cap != nil {
		m.cap.Close()
		m.cap = nil
	}

	kind := Classify(m.source)
	m.kind.Store(kind)
	var cap *gocv.VideoCapture
	var err error
	switch kind {
	case SourceNetwork:
		cap, err = m.openNetwork()
	case SourceFile:
		cap, err = m.openFile()
	default:
		cap, err = m.openDevice(m.source)
	}

	if err != nil && m.source != "0" {
		// Last resort: the default camera
		m.log.Infof("Attempting to open default camera instead")
		if fallback, ferr := m.openDevice("0"); ferr == nil {
			m.kind.Store(SourceDevice)
			cap, err = fallback, nil
		}
	}

	if err != nil {
		m.log.Errorf("Failed to open video source %v: %v", m.source, err)
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	m.cap = cap
	m.log.Infof("Video capture initialized successfully with source: %v", m.source)
	return nil
}

func (m *Manager) openDevice(source string) (*gocv.VideoCapture, error) {
	idx, err := strconv.Atoi(source)
	if err != nil {
		idx = 0
	}
	m.log.Infof("Initializing camera device: %v", idx)
	cap, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		return nil, err
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("device %v did not open", idx)
	}
	// Minimize buffering for less latency, and request our target geometry.
	// Cameras are free to ignore these.
	cap.Set(gocv.VideoCaptureBufferSize, 1)
	cap.Set(gocv.VideoCaptureFrameWidth, float64(m.width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(m.height))
	cap.Set(gocv.VideoCaptureFPS, float64(m.frameRate))
	return cap, nil
}

func (m *Manager) openNetwork() (*gocv.VideoCapture, error) {
	m.log.Infof("Initializing network stream: %v", m.source)

	if err := ProbeRTSP(m.source); err != nil {
		// The probe is advisory. Streams that reject DESCRIBE sometimes
		// still play, so log and carry on.
		m.log.Warnf("RTSP probe of %v failed: %v", m.source, err)
	}

	for _, backend := range networkBackends {
		m.log.Infof("Trying network stream with backend: %v", backend)
		cap, err := gocv.OpenVideoCaptureWithAPI(m.source, backend)
		if err != nil {
			m.log.Warnf("Backend %v failed: %v", backend, err)
			continue
		}
		if !cap.IsOpened() {
			m.log.Warnf("Failed to open network stream with backend: %v", backend)
			cap.Close()
			continue
		}
		cap.Set(gocv.VideoCaptureBufferSize, 1)
		// gocv does not name CAP_PROP_OPEN_TIMEOUT_MSEC (53) or
		// CAP_PROP_READ_TIMEOUT_MSEC (54), so use the raw property ids.
		cap.Set(gocv.VideoCaptureProperties(53), openTimeoutMsec)
		cap.Set(gocv.VideoCaptureProperties(54), readTimeoutMsec)

		// Verify the stream actually delivers frames before accepting it
		test := gocv.NewMat()
		ok := cap.Read(&test)
		empty := test.Empty()
		test.Close()
		if ok && !empty {
			m.log.Infof("Connected to network stream with backend: %v", backend)
			cap.Set(gocv.VideoCapturePosFrames, 0)
			return cap, nil
		}
		m.log.Warnf("Backend %v opened but couldn't read frames", backend)
		cap.Close()
	}

	// All preferred backends failed; one more try with defaults
	m.log.Infof("All backends failed, trying default settings")
	cap, err := gocv.OpenVideoCapture(m.source)
	if err != nil {
		return nil, err
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("stream did not open")
	}
	cap.Set(gocv.VideoCaptureBufferSize, 1)
	test := gocv.NewMat()
	ok := cap.Read(&test)
	empty := test.Empty()
	test.Close()
	if !ok || empty {
		cap.Close()
		return nil, fmt.Errorf("stream opened but can't read frames")
	}
	return cap, nil
}

func (m *Manager) openFile() (*gocv.VideoCapture, error) {
	m.log.Infof("Initializing video file: %v", m.source)
	cap, err := gocv.OpenVideoCapture(m.source)
	if err != nil {
		return nil, err
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("file %v did not open", m.source)
	}
	return cap, nil
}

// Read reads the next frame into img. On a degraded session, or when the
// source delivers nothing, returns ErrReadFailed.
func (m *Manager) Read(img *gocv.Mat) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cap == nil {
		return fmt.Errorf("%w: no open source", ErrReadFailed)
	}
	if !m.cap.Read(img) || img.Empty() {
		return ErrReadFailed
	}
	return nil
}

// Grab skips over n frames without decoding them. Used to catch up on live
// sources when the consumer falls behind. No-op on degraded sessions.
func (m *Manager) Grab(n int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cap != nil {
		m.cap.Grab(n)
	}
}

// Reopen tears down the current session and opens the source from scratch.
func (m *Manager) Reopen() error {
	m.log.Infof("Reopening video source: %v", m.source)
	return m.open()
}

// Kind returns the source classification of the current session.
// This can differ from Classify(source) after a fallback to the default
// camera. Never blocks, even while an open or read is in flight.
func (m *Manager) Kind() SourceKind {
	return m.kind.Load().(SourceKind)
}

// Info describes the open source. On a degraded session the configured
// geometry is reported.
func (m *Manager) Info() SourceDescriptor {
	m.lock.Lock()
	defer m.lock.Unlock()

	kind := m.Kind()
	d := SourceDescriptor{
		Source:    m.displayName(kind),
		Kind:      kind,
		Width:     m.width,
		Height:    m.height,
		TargetFPS: m.frameRate,
	}
	if m.cap == nil {
		return d
	}
	d.Width = int(m.cap.Get(gocv.VideoCaptureFrameWidth))
	d.Height = int(m.cap.Get(gocv.VideoCaptureFrameHeight))
	d.OriginalFPS = m.cap.Get(gocv.VideoCaptureFPS)
	if kind == SourceFile {
		d.FrameCount = int(m.cap.Get(gocv.VideoCaptureFrameCount))
		if d.OriginalFPS > 0 {
			d.Duration = float64(d.FrameCount) / d.OriginalFPS
		}
	}
	return d
}

func (m *Manager) displayName(kind SourceKind) string {
	if kind == SourceDevice {
		if idx, err := strconv.Atoi(m.source); err == nil {
			return fmt.Sprintf("Camera %v", idx)
		}
		return "Camera 0"
	}
	if kind == SourceFile {
		return filepath.Base(m.source)
	}
	return m.source
}

// IsDegraded is true when there is no open capture session.
func (m *Manager) IsDegraded() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cap == nil
}

// Close releases the capture session.
func (m *Manager) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cap != nil {
		m.cap.Close()
		m.cap = nil
		m.log.Infof("Video capture resources released")
	}
}
