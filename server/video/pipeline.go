package video

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/track"
	"gocv.io/x/gocv"
)

// Rolling window for the FPS average (power of 2 for the ring)
const fpsSampleCapacity = 32
const fpsSampleWindow = 30

var (
	colorDetection = color.RGBA{0, 255, 0, 0}     // green
	colorDoor      = color.RGBA{255, 0, 0, 0}     // red
	colorLines     = color.RGBA{0, 0, 255, 0}     // blue
	colorLabels    = color.RGBA{255, 255, 255, 0} // white
	colorStatus    = color.RGBA{255, 255, 0, 0}   // yellow
	colorBackdrop  = color.RGBA{0, 0, 0, 0}       // black
)

// Result is the outcome of processing one frame.
type Result struct {
	// Skipped is true when the cadence gate skipped detection for this frame
	Skipped bool
	// Err is a detector failure. The frame is returned unannotated.
	Err        error
	Detections []detect.Detection
	Movement   track.Movement
	DetectTime time.Duration
}

// Pipeline runs detection and tracking over frames, and annotates them in
// place. Process calls are serialized; the pipeline owns the tracker's
// update cadence.
type Pipeline struct {
	log      log.Log
	detector detect.Detector
	tracker  *track.Tracker

	lock          sync.Mutex
	params        detect.Params
	frameRate     int
	lastProcessed time.Time
	processTimes  ringbuffer.RingP[float64]
	fps           float64
	lastDetectMS  float64
	now           func() time.Time
}

func NewPipeline(logger log.Log, detector detect.Detector, tracker *track.Tracker, params detect.Params, frameRate int) *Pipeline {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &Pipeline{
		log:          log.NewPrefixLogger(logger, "pipeline:"),
		detector:     detector,
		tracker:      tracker,
		params:       params,
		frameRate:    frameRate,
		processTimes: ringbuffer.NewRingP[float64](fpsSampleCapacity),
		now:          time.Now,
	}
}

// Process runs one frame through detection, tracking, and annotation.
// frame is annotated in place. A panic anywhere in the pipeline is contained
// and the frame comes back as-is; the stream must keep flowing.
func (p *Pipeline) Process(frame *gocv.Mat) (res Result) {
	p.lock.Lock()
	defer p.lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("Recovered panic while processing frame: %v", r)
			res = Result{Err: fmt.Errorf("frame processing panic: %v", r)}
		}
	}()

	// An empty Mat would crash the annotation calls below
	if frame.Empty() {
		return Result{Err: ErrEmptyFrame}
	}

	// Cadence gate: don't run detection faster than the target frame rate
	start := p.now()
	if start.Sub(p.lastProcessed) < time.Second/time.Duration(p.frameRate) {
		p.drawTimestamp(frame)
		return Result{Skipped: true}
	}

	detectStart := p.now()
	detections, err := p.detector.Detect(*frame, &p.params)
	detectTime := p.now().Sub(detectStart)
	if err != nil {
		// The frame goes out unannotated. Reconnect logic is the caller's business.
		return Result{Err: err, DetectTime: detectTime}
	}
	p.lastProcessed = start

	movement := p.tracker.Update(detectionBoxes(detections), frame.Cols())

	p.updateFPS(p.now().Sub(start), detectTime)

	p.annotate(frame, detections)
	p.drawTimestamp(frame)

	return Result{
		Detections: detections,
		Movement:   movement,
		DetectTime: detectTime,
	}
}

func (p *Pipeline) updateFPS(processTime, detectTime time.Duration) {
	p.processTimes.Add(processTime.Seconds())
	n := min(p.processTimes.Len(), fpsSampleWindow)
	sum := 0.0
	for i := p.processTimes.Len() - n; i < p.processTimes.Len(); i++ {
		sum += p.processTimes.Peek(i)
	}
	if n > 0 && sum > 0 {
		p.fps = float64(n) / sum
	}
	p.lastDetectMS = float64(detectTime.Microseconds()) / 1000
}

// FPS is the rolling average processing rate.
func (p *Pipeline) FPS() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.fps
}

// UpdateParams swaps the detection parameters for subsequent frames.
func (p *Pipeline) UpdateParams(params detect.Params) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.params = params
}

// SetFrameRate changes the cadence gate's target rate.
func (p *Pipeline) SetFrameRate(frameRate int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if frameRate > 0 {
		p.frameRate = frameRate
	}
}
