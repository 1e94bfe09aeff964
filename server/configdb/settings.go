package configdb

import (
	"errors"
	"fmt"

	"github.com/tallycam/tallycam/pkg/geom"
	"github.com/tallycam/tallycam/server/track"
)

// Settings is the single persisted configuration record. There is exactly
// one row, with id 1.
type Settings struct {
	ID                int64   `gorm:"primaryKey" json:"-"`
	VideoSource       string  `json:"videoSource"`
	FrameRate         int     `json:"frameRate"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	ScoreThreshold    float32 `json:"scoreThreshold"`
	IouThreshold      float32 `json:"iouThreshold"`
	TrackingThreshold float32 `json:"trackingThreshold"`
	InsideDirection   string  `json:"insideDirection"`
	DoorDefined       bool    `json:"doorDefined"`
	DoorX1            int     `json:"doorX1"`
	DoorY1            int     `json:"doorY1"`
	DoorX2            int     `json:"doorX2"`
	DoorY2            int     `json:"doorY2"`
}

func (Settings) TableName() string {
	return "settings"
}

func DefaultSettings() Settings {
	return Settings{
		ID:                1,
		VideoSource:       "0",
		FrameRate:         30,
		Width:             640,
		Height:            480,
		ScoreThreshold:    0.8,
		IouThreshold:      0.3,
		TrackingThreshold: 50,
		InsideDirection:   string(track.InsideRight),
	}
}

func (s *Settings) Validate() error {
	if s.VideoSource == "" {
		return errors.New("videoSource must not be empty")
	}
	if s.FrameRate <= 0 || s.FrameRate > 240 {
		return fmt.Errorf("frameRate %v out of range", s.FrameRate)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("resolution %vx%v invalid", s.Width, s.Height)
	}
	if s.ScoreThreshold < 0 || s.ScoreThreshold > 1 {
		return fmt.Errorf("scoreThreshold %v out of range", s.ScoreThreshold)
	}
	if s.IouThreshold < 0 || s.IouThreshold > 1 {
		return fmt.Errorf("iouThreshold %v out of range", s.IouThreshold)
	}
	if s.TrackingThreshold <= 0 {
		return fmt.Errorf("trackingThreshold %v out of range", s.TrackingThreshold)
	}
	if !track.InsideDirection(s.InsideDirection).Valid() {
		return track.ErrInvalidDirection
	}
	if s.DoorDefined && (s.DoorX1 >= s.DoorX2 || s.DoorY1 >= s.DoorY2) {
		return track.ErrInvalidZone
	}
	return nil
}

// DoorZone returns the configured door rectangle, and whether one is set.
func (s *Settings) DoorZone() (geom.Rect, bool) {
	if !s.DoorDefined {
		return geom.Rect{}, false
	}
	return geom.RectFromEdges(s.DoorX1, s.DoorY1, s.DoorX2, s.DoorY2), true
}

// GetSettings loads the settings row, creating it with defaults if absent.
func (c *ConfigDB) GetSettings() (Settings, error) {
	s := Settings{}
	r := c.DB.Where("id = 1").Find(&s)
	if r.Error != nil {
		return Settings{}, r.Error
	}
	if r.RowsAffected == 0 {
		s = DefaultSettings()
		if err := c.DB.Create(&s).Error; err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// SetSettings validates and persists the settings row.
func (c *ConfigDB) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.ID = 1
	return c.DB.Save(&s).Error
}
