package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/capture"
	"github.com/tallycam/tallycam/server/eventdb"
	"github.com/tallycam/tallycam/server/health"
	"github.com/tallycam/tallycam/server/streamer"
	"github.com/tallycam/tallycam/server/track"
	"gocv.io/x/gocv"
)

var (
	ErrNoFrame        = errors.New("no frame available yet")
	ErrEmptyFrame     = errors.New("empty frame")
	ErrEncodingFailed = errors.New("JPEG encoding failed")
)

const (
	// Reconnect backoff: seed, growth factor, ceiling
	backoffSeed   = 500 * time.Millisecond
	backoffFactor = 1.5
	backoffMax    = 5 * time.Second

	// Minimum gap between repeated read-failure log lines
	errorLogCooldown = 5 * time.Second

	// Counter snapshots go to the event DB this often
	countLogInterval = 30 * time.Second

	// On live sources, skip at most this many buffered frames per cycle when
	// processing falls behind the source's delivery rate
	catchUpMaxFrames = 5

	// How long Stop waits for the capture loop to exit
	stopTimeout = 5 * time.Second
)

// Options configure the streaming service.
type Options struct {
	Source         string
	FallbackSource string // switched to after repeated failures; empty disables
	FrameRate      int
	Width          int
	Height         int
	Params         detect.Params
}

// Service owns the background capture loop: read, recover, process, publish.
// It is the single writer of the current-frame cache; readers get clones.
type Service struct {
	log      log.Log
	pipeline *Pipeline
	tracker  *track.Tracker
	hub      *streamer.Hub
	events   *eventdb.EventDB
	monitor  *health.Monitor

	lock           sync.Mutex
	capture        *capture.Manager
	source         string
	fallbackSource string
	onFallback     bool
	frameRate      int
	width          int
	height         int
	currentFrame   gocv.Mat
	haveFrame      bool
	annotatedJPEG  []byte

	lastErrorLog time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(logger log.Log, detector detect.Detector, tracker *track.Tracker, hub *streamer.Hub, events *eventdb.EventDB, opts Options) (*Service, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 640, 480
	}

	svcLog := log.NewPrefixLogger(logger, "video:")
	mgr, err := capture.NewManager(logger, opts.Source, opts.FrameRate, opts.Width, opts.Height)
	if err != nil {
		// Degraded start is fine; the loop reconnects
		svcLog.Warnf("Starting degraded: %v", err)
	}

	s := &Service{
		log:            svcLog,
		pipeline:       NewPipeline(logger, detector, tracker, opts.Params, opts.FrameRate),
		tracker:        tracker,
		hub:            hub,
		events:         events,
		monitor:        health.NewMonitor(svcLog),
		capture:        mgr,
		source:         opts.Source,
		fallbackSource: opts.FallbackSource,
		frameRate:      opts.FrameRate,
		width:          opts.Width,
		height:         opts.Height,
		currentFrame:   gocv.NewMat(),
	}
	return s, nil
}

// Start launches the background capture loop.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.captureLoop(ctx)
}

// Stop shuts the loop down and releases capture resources. The join is
// bounded: a device read wedged inside OpenCV must not hang shutdown.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		select {
		case <-s.done:
		case <-time.After(stopTimeout):
			// The loop still owns the capture; leave it for process exit
			s.log.Errorf("Capture loop did not stop within %v, abandoning it", stopTimeout)
			return
		}
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.capture.Close()
	s.currentFrame.Close()
	s.haveFrame = false
}

func (s *Service) captureLoop(ctx context.Context) {
	defer close(s.done)

	frame := gocv.NewMat()
	defer frame.Close()

	backoff := backoffSeed
	lastCountLog := time.Now()

	for ctx.Err() == nil {
		if s.monitor.ShouldReconnect() {
			if !s.reconnect(ctx, &backoff) {
				continue
			}
		}

		if err := s.currentCapture().Read(&frame); err != nil {
			s.monitor.Failure()
			s.logThrottled("Frame read failed (%v consecutive): %v", s.monitor.ConsecutiveFailures(), err)
			sleepCtx(ctx, 100*time.Millisecond)
			continue
		}
		s.monitor.Success()
		backoff = backoffSeed

		readAt := time.Now()
		s.processFrame(&frame)

		if time.Since(lastCountLog) >= countLogInterval {
			s.snapshotCounts()
			lastCountLog = time.Now()
		}

		if s.currentCapture().Kind() == capture.SourceFile {
			// Files play in real time; live sources pace themselves
			sleepCtx(ctx, time.Second/time.Duration(s.targetFrameRate()))
		} else {
			s.catchUp(time.Since(readAt))
		}
	}
}

// reconnect reopens the source, switching to the fallback after too many
// failures. Returns true when the capture is usable again.
func (s *Service) reconnect(ctx context.Context, backoff *time.Duration) bool {
	if s.monitor.ExceededMaxAttempts() && s.switchToFallback() {
		// The new source starts with a clean failure slate
		s.monitor.Reset()
	}

	s.log.Infof("Reconnecting to video source (attempt %v)", s.monitor.ConsecutiveFailures())
	if err := s.currentCapture().Reopen(); err != nil {
		s.monitor.Failure()
		s.logThrottled("Reconnect failed: %v", err)
		sleepCtx(ctx, *backoff)
		*backoff = min(time.Duration(float64(*backoff)*backoffFactor), backoffMax)
		return false
	}
	*backoff = backoffSeed
	return true
}

// switchToFallback swaps the capture over to the fallback source. Returns
// true when a switch actually happened. The replacement manager is built
// outside the service lock; opening a network source can block for many
// seconds and frame consumers must not stall behind it.
func (s *Service) switchToFallback() bool {
	s.lock.Lock()
	if s.fallbackSource == "" || s.onFallback {
		s.lock.Unlock()
		return false
	}
	source, fallback := s.source, s.fallbackSource
	frameRate, width, height := s.frameRate, s.width, s.height
	s.onFallback = true
	s.lock.Unlock()

	s.log.Errorf("Giving up on source %v, switching to fallback %v", source, fallback)
	if s.events != nil {
		s.events.AddAlert("connection", fmt.Sprintf("Video source %v unreachable, switched to fallback", source), eventdb.SeverityError, time.Now())
	}
	mgr, err := capture.NewManager(s.log, fallback, frameRate, width, height)
	if err != nil {
		s.log.Errorf("Fallback source failed too: %v", err)
	}
	s.swapCapture(mgr)
	return true
}

// swapCapture installs mgr as the active capture and closes the old one.
func (s *Service) swapCapture(mgr *capture.Manager) {
	s.lock.Lock()
	old := s.capture
	s.capture = mgr
	s.lock.Unlock()
	old.Close()
}

func (s *Service) processFrame(frame *gocv.Mat) {
	// Normalize geometry before anything downstream sees the frame
	s.lock.Lock()
	width, height := s.width, s.height
	s.lock.Unlock()
	if frame.Cols() != width || frame.Rows() != height {
		gocv.Resize(*frame, frame, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	}

	// Cache the raw frame for pull consumers
	s.lock.Lock()
	s.currentFrame.Close()
	s.currentFrame = frame.Clone()
	s.haveFrame = true
	s.lock.Unlock()

	res := s.pipeline.Process(frame)
	if res.Err != nil {
		s.logThrottled("Pipeline error: %v", res.Err)
		return
	}

	jpeg, err := encodeMatJPEG(*frame)
	if err != nil {
		s.logThrottled("JPEG encode failed: %v", err)
		return
	}
	s.lock.Lock()
	s.annotatedJPEG = jpeg
	s.lock.Unlock()

	s.hub.PublishFrame(jpeg)
	if res.Movement.Any() {
		s.hub.PublishCounter(s.CounterUpdate())
	}
}

// catchUp discards buffered frames when processing took longer than the
// frame interval, so a live stream doesn't drift ever further behind.
func (s *Service) catchUp(elapsed time.Duration) {
	interval := time.Second / time.Duration(s.targetFrameRate())
	if elapsed <= interval {
		return
	}
	behind := int(elapsed/interval) - 1
	if behind > catchUpMaxFrames {
		behind = catchUpMaxFrames
	}
	if behind > 0 {
		s.currentCapture().Grab(behind)
	}
}

func (s *Service) snapshotCounts() {
	if s.events == nil {
		return
	}
	entries, exits := s.tracker.EntryExit()
	if err := s.events.AddCountLog(entries, exits, s.tracker.PeopleInRoom(), time.Now()); err != nil {
		s.log.Warnf("Failed to store count log: %v", err)
	}
}

// CounterUpdate assembles the current push payload.
func (s *Service) CounterUpdate() streamer.CounterUpdate {
	entries, exits := s.tracker.EntryExit()
	s.lock.Lock()
	source := s.source
	if s.onFallback {
		source = s.fallbackSource
	}
	u := streamer.CounterUpdate{
		PeopleInRoom: s.tracker.PeopleInRoom(),
		Entries:      entries,
		Exits:        exits,
		FPS:          s.pipeline.FPS(),
		Resolution:   fmt.Sprintf("%vx%v", s.width, s.height),
		FrameRate:    s.frameRate,
		VideoSource:  source,
	}
	s.lock.Unlock()

	if door, defined := s.tracker.DoorZone(); defined {
		u.DoorCoordinates = &streamer.DoorCoordinates{X1: door.X, Y1: door.Y, X2: door.X2(), Y2: door.Y2()}
		u.InsideDirection = string(s.tracker.InsideDirection())
	}
	return u
}

// PublishCounter pushes the current counter state to all subscribers.
// Called after settings or door changes, and by the periodic API paths.
func (s *Service) PublishCounter() {
	s.hub.PublishCounter(s.CounterUpdate())
}

// Frame returns a clone of the latest raw frame. The caller owns the clone.
func (s *Service) Frame() (gocv.Mat, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.haveFrame {
		return gocv.Mat{}, ErrNoFrame
	}
	return s.currentFrame.Clone(), nil
}

// JPEGFrame returns the latest raw frame encoded as JPEG.
func (s *Service) JPEGFrame() ([]byte, error) {
	frame, err := s.Frame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	return encodeMatJPEG(frame)
}

// AnnotatedJPEG returns the latest annotated frame, or nil if none yet.
func (s *Service) AnnotatedJPEG() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.annotatedJPEG
}

// CheckHealth evaluates and returns connection health.
func (s *Service) CheckHealth() health.Status {
	return s.monitor.Check(string(s.currentCapture().Kind()))
}

// SourceInfo describes the active video source.
func (s *Service) SourceInfo() capture.SourceDescriptor {
	return s.currentCapture().Info()
}

// FPS is the pipeline's rolling processing rate.
func (s *Service) FPS() float64 {
	return s.pipeline.FPS()
}

// UpdateSettings hot-swaps the video source and processing parameters.
func (s *Service) UpdateSettings(source string, frameRate, width, height int, params detect.Params) error {
	s.lock.Lock()
	changedSource := source != s.source || s.onFallback
	s.source = source
	s.frameRate = frameRate
	s.width = width
	s.height = height
	s.onFallback = false
	s.lock.Unlock()

	s.pipeline.UpdateParams(params)
	s.pipeline.SetFrameRate(frameRate)

	if changedSource {
		// Built outside the lock: the open can block, pull consumers can't
		mgr, err := capture.NewManager(s.log, source, frameRate, width, height)
		s.swapCapture(mgr)
		if err != nil {
			return err
		}
	}

	s.PublishCounter()
	return nil
}

func (s *Service) currentCapture() *capture.Manager {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.capture
}

func (s *Service) targetFrameRate() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.frameRate
}

func (s *Service) logThrottled(format string, args ...interface{}) {
	if time.Since(s.lastErrorLog) < errorLogCooldown {
		return
	}
	s.lastErrorLog = time.Now()
	s.log.Errorf(format, args...)
}

func encodeMatJPEG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	defer buf.Close()
	// The buffer is native memory; copy before it's freed
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
