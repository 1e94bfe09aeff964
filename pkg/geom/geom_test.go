package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	require.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, a.Intersection(b))
	require.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, a.Union(b))
	require.InDelta(t, 25.0/175.0, a.IOU(b), 1e-6)

	c := Rect{X: 100, Y: 100, Width: 0, Height: 0}
	require.Equal(t, 0, a.Intersection(c).Area())
}

func TestRectFromEdges(t *testing.T) {
	r := RectFromEdges(100, 100, 300, 400)
	require.Equal(t, Rect{X: 100, Y: 100, Width: 200, Height: 300}, r)
	require.Equal(t, 300, r.X2())
	require.Equal(t, 400, r.Y2())
	require.Equal(t, Point{X: 200, Y: 250}, r.Center())
}

func TestPointDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	require.InDelta(t, 5.0, a.Distance(b), 1e-6)
	require.InDelta(t, 5.0, b.Distance(a), 1e-6)
	require.Equal(t, float32(0), a.Distance(a))
}
