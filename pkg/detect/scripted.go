package detect

import (
	"github.com/tallycam/tallycam/pkg/geom"
	"gocv.io/x/gocv"
)

// NullDetector always returns zero detections. Used when no detector is configured.
type NullDetector struct{}

func (d *NullDetector) Detect(img gocv.Mat, params *Params) ([]Detection, error) {
	return nil, nil
}

func (d *NullDetector) Close() {
}

// ScriptedDetector replays a canned sequence of frames, one Detect call per
// entry, repeating the last entry once the script runs out. Used by tests to
// drive the tracker and pipeline with known trajectories.
type ScriptedDetector struct {
	Frames [][]geom.Rect
	pos    int
}

func NewScriptedDetector(frames ...[]geom.Rect) *ScriptedDetector {
	return &ScriptedDetector{Frames: frames}
}

func (d *ScriptedDetector) Detect(img gocv.Mat, params *Params) ([]Detection, error) {
	if len(d.Frames) == 0 {
		return nil, nil
	}
	i := d.pos
	if i >= len(d.Frames) {
		i = len(d.Frames) - 1
	}
	d.pos++
	boxes := d.Frames[i]
	detections := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		detections = append(detections, Detection{Box: b, Confidence: 1})
	}
	return detections, nil
}

func (d *ScriptedDetector) Close() {
}
