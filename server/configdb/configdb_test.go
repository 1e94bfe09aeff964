package configdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/log"
	"github.com/tallycam/tallycam/server/track"
)

func createTestDB(t *testing.T) *ConfigDB {
	db, err := NewConfigDB(log.NewTestingLog(t), filepath.Join(t.TempDir(), "config.sqlite"))
	require.NoError(t, err)
	return db
}

func TestSettingsDefaults(t *testing.T) {
	db := createTestDB(t)
	s, err := db.GetSettings()
	require.NoError(t, err)
	require.Equal(t, "0", s.VideoSource)
	require.Equal(t, 30, s.FrameRate)
	require.Equal(t, 640, s.Width)
	require.Equal(t, 480, s.Height)
	require.Equal(t, float32(0.8), s.ScoreThreshold)
	require.Equal(t, float32(0.3), s.IouThreshold)
	require.Equal(t, float32(50), s.TrackingThreshold)
	require.Equal(t, string(track.InsideRight), s.InsideDirection)
	require.False(t, s.DoorDefined)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := createTestDB(t)
	s, err := db.GetSettings()
	require.NoError(t, err)

	s.VideoSource = "rtsp://cam.local/stream"
	s.FrameRate = 15
	s.DoorDefined = true
	s.DoorX1, s.DoorY1, s.DoorX2, s.DoorY2 = 100, 100, 300, 400
	s.InsideDirection = string(track.InsideLeft)
	require.NoError(t, db.SetSettings(s))

	loaded, err := db.GetSettings()
	require.NoError(t, err)
	require.Equal(t, s, loaded)

	zone, ok := loaded.DoorZone()
	require.True(t, ok)
	require.Equal(t, 300, zone.X2())
}

func TestSettingsValidation(t *testing.T) {
	db := createTestDB(t)
	s, err := db.GetSettings()
	require.NoError(t, err)

	bad := s
	bad.FrameRate = 0
	require.Error(t, db.SetSettings(bad))

	bad = s
	bad.InsideDirection = "sideways"
	require.ErrorIs(t, db.SetSettings(bad), track.ErrInvalidDirection)

	bad = s
	bad.DoorDefined = true
	bad.DoorX1, bad.DoorY1, bad.DoorX2, bad.DoorY2 = 300, 100, 100, 400
	require.ErrorIs(t, db.SetSettings(bad), track.ErrInvalidZone)

	// The stored settings are untouched by rejected updates
	loaded, err := db.GetSettings()
	require.NoError(t, err)
	require.Equal(t, s, loaded)
}
