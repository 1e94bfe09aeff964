package video

import (
	"fmt"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
)

// Diagnostic frames shown in place of live video while the source is down.
// These are synthesized, so they go through gg + cimg rather than the
// OpenCV annotation path.

// ErrorFrame renders a "source unavailable" frame for the given reconnect attempt.
func ErrorFrame(width, height, attempt int) ([]byte, error) {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	cx := float64(width) / 2
	cy := float64(height) / 2

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored("Video Source Unavailable", cx, cy-30, 0.5, 0.5)
	dc.SetRGB255(255, 120, 0)
	dc.DrawStringAnchored(fmt.Sprintf("Reconnecting... (Attempt %v)", attempt), cx, cy+30, 0.5, 0.5)

	drawTimestamp(dc, height)
	return encodeJPEG(dc)
}

// TestPatternFrame renders the classic 8-bar color pattern. Shown for
// network sources that keep failing, so an operator can tell "pipeline
// alive, stream dead" apart from a wedged server.
func TestPatternFrame(width, height int) ([]byte, error) {
	dc := gg.NewContext(width, height)

	colors := [8][3]float64{
		{1, 1, 1}, // white
		{1, 1, 0}, // yellow
		{0, 1, 1}, // cyan
		{0, 1, 0}, // green
		{1, 0, 1}, // magenta
		{1, 0, 0}, // red
		{0, 0, 1}, // blue
		{0, 0, 0}, // black
	}
	barWidth := float64(width) / 8
	for i, c := range colors {
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(float64(i)*barWidth, 0, barWidth+1, float64(height))
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("Stream Test Pattern", float64(width)/2, 50, 0.5, 0.5)
	dc.DrawStringAnchored("If you see this, video processing is working", float64(width)/2, float64(height)-50, 0.5, 0.5)

	drawTimestamp(dc, height)
	return encodeJPEG(dc)
}

func drawTimestamp(dc *gg.Context, height int) {
	dc.SetRGB(1, 1, 1)
	dc.DrawString(time.Now().Format("2006-01-02 15:04:05"), 10, float64(height)-10)
}

func encodeJPEG(dc *gg.Context) ([]byte, error) {
	img, err := cimg.FromImage(dc.Image(), true)
	if err != nil {
		return nil, err
	}
	return cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 85, 0))
}
