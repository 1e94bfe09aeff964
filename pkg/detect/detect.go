// Package detect defines the person detector capability that the video
// pipeline consumes. The actual model runs out of process (eg an inference
// sidecar); this package has the interface, the parameters, and the clients.
package detect

import (
	"errors"

	"github.com/tallycam/tallycam/pkg/geom"
	"gocv.io/x/gocv"
)

var ErrDetectorUnavailable = errors.New("detector unavailable")

// Params control detection filtering.
type Params struct {
	// Minimum confidence for a detection to be accepted
	ScoreThreshold float32 `json:"scoreThreshold"`
	// Non-maxima suppression overlap threshold
	IouThreshold float32 `json:"iouThreshold"`
}

func DefaultParams() *Params {
	return &Params{
		ScoreThreshold: 0.8,
		IouThreshold:   0.3,
	}
}

// Detection is one detected person.
type Detection struct {
	Box        geom.Rect `json:"box"`
	Confidence float32   `json:"confidence"`
}

// Detector finds people in a frame.
// Implementations must be safe for use from a single goroutine at a time;
// the pipeline serializes calls.
type Detector interface {
	// Detect returns the boxes of all people found in img, filtered by params.
	Detect(img gocv.Mat, params *Params) ([]Detection, error)
	Close()
}
