package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireJPEG(t *testing.T, b []byte) {
	require.Greater(t, len(b), 2)
	// JPEG SOI marker
	require.Equal(t, byte(0xFF), b[0])
	require.Equal(t, byte(0xD8), b[1])
}

func TestErrorFrame(t *testing.T) {
	b, err := ErrorFrame(640, 480, 3)
	require.NoError(t, err)
	requireJPEG(t, b)
}

func TestTestPatternFrame(t *testing.T) {
	b, err := TestPatternFrame(640, 480)
	require.NoError(t, err)
	requireJPEG(t, b)

	// Odd sizes must not panic or fail
	b, err = TestPatternFrame(321, 241)
	require.NoError(t, err)
	requireJPEG(t, b)
}
