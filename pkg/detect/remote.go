package detect

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/pkg/www"
	"gocv.io/x/gocv"
)

// RemoteDetector talks to an HTTP inference sidecar. We POST a JPEG and get
// back a JSON array of boxes with confidences.
type RemoteDetector struct {
	url    string
	client *http.Client
}

type remoteBox struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float32 `json:"confidence"`
}

func NewRemoteDetector(url string) *RemoteDetector {
	return &RemoteDetector{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *RemoteDetector) Detect(img gocv.Mat, params *Params) ([]Detection, error) {
	jpg, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("encoding frame for detector: %w", err)
	}
	defer jpg.Close()

	url := fmt.Sprintf("%v?scoreThreshold=%v&iouThreshold=%v", d.url, params.ScoreThreshold, params.IouThreshold)
	req, err := http.NewRequest("POST", url, bytes.NewReader(jpg.GetBytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	boxes := []remoteBox{}
	if err := www.FetchJSON(d.client, req, &boxes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	detections := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence < params.ScoreThreshold {
			continue
		}
		detections = append(detections, Detection{
			Box:        geom.RectFromEdges(b.X1, b.Y1, b.X2, b.Y2),
			Confidence: b.Confidence,
		})
	}
	return detections, nil
}

func (d *RemoteDetector) Close() {
	d.client.CloseIdleConnections()
}
