package video

import (
	"fmt"
	"image"

	"github.com/tallycam/tallycam/pkg/detect"
	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/server/track"
	"gocv.io/x/gocv"
)

func detectionBoxes(detections []detect.Detection) []geom.Rect {
	boxes := make([]geom.Rect, 0, len(detections))
	for _, d := range detections {
		boxes = append(boxes, d.Box)
	}
	return boxes
}

// annotate draws detection boxes, the door zone with its center lines and
// inside/outside labels, and the status bar, onto frame.
func (p *Pipeline) annotate(frame *gocv.Mat, detections []detect.Detection) {
	for _, d := range detections {
		gocv.Rectangle(frame, image.Rect(d.Box.X, d.Box.Y, d.Box.X2(), d.Box.Y2()), colorDetection, 2)
	}

	if door, defined := p.tracker.DoorZone(); defined {
		p.annotateDoor(frame, door)
	} else {
		// No door: show the fallback counting line at the frame's center
		mid := frame.Cols() / 2
		gocv.Line(frame, image.Pt(mid, 0), image.Pt(mid, frame.Rows()), colorLines, 2)
	}

	p.drawStatusBar(frame)
}

func (p *Pipeline) annotateDoor(frame *gocv.Mat, door geom.Rect) {
	x1, y1 := door.X, door.Y
	x2, y2 := door.X2(), door.Y2()
	gocv.Rectangle(frame, image.Rect(x1, y1, x2, y2), colorDoor, 2)

	center := door.Center()
	gocv.Line(frame, image.Pt(center.X, y1), image.Pt(center.X, y2), colorLines, 2)
	gocv.Line(frame, image.Pt(x1, center.Y), image.Pt(x2, center.Y), colorLines, 2)

	inside := "Inside"
	outside := "Outside"
	put := func(text string, x, y int) {
		gocv.PutText(frame, text, image.Pt(x, y), gocv.FontHersheySimplex, 0.5, colorLabels, 2)
	}
	switch p.tracker.InsideDirection() {
	case track.InsideRight:
		put(outside, x1-80, center.Y)
		put(inside, x2+10, center.Y)
	case track.InsideLeft:
		put(inside, x1-80, center.Y)
		put(outside, x2+10, center.Y)
	case track.InsideDown:
		put(outside, center.X-30, y1-10)
		put(inside, center.X-30, y2+20)
	case track.InsideUp:
		put(inside, center.X-30, y1-10)
		put(outside, center.X-30, y2+20)
	}
}

// drawStatusBar draws a translucent bar at the bottom of the frame, with the
// processing rate and the detector's latency.
func (p *Pipeline) drawStatusBar(frame *gocv.Mat) {
	height := frame.Rows()
	overlay := frame.Clone()
	gocv.Rectangle(&overlay, image.Rect(5, height-30, 400, height-5), colorBackdrop, -1)
	gocv.AddWeighted(overlay, 0.6, *frame, 0.4, 0, frame)
	overlay.Close()

	text := fmt.Sprintf("FPS: %.1f | Detect: %.1fms", p.fps, p.lastDetectMS)
	gocv.PutText(frame, text, image.Pt(10, height-10), gocv.FontHersheySimplex, 0.45, colorStatus, 1)
}

func (p *Pipeline) drawTimestamp(frame *gocv.Mat) {
	ts := p.now().Format("2006-01-02 15:04:05")
	gocv.PutText(frame, ts, image.Pt(10, 25), gocv.FontHersheySimplex, 0.5, colorLabels, 2)
}
