package capture

import (
	"fmt"
	"strings"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
)

// StreamInfo is what an RTSP DESCRIBE tells us about a stream.
type StreamInfo struct {
	Title      string   `json:"title"`
	MediaCount int      `json:"mediaCount"`
	HasH264    bool     `json:"hasH264"`
	Formats    []string `json:"formats"`
}

// ProbeRTSP issues a DESCRIBE against an rtsp:// URL and checks that the
// server answers. OpenCV gives us nothing but "can't open" on failure, so
// this is how we distinguish an unreachable server from an undecodable
// stream. rtmp:// sources are not probeable and pass trivially.
func ProbeRTSP(address string) error {
	_, err := DescribeRTSP(address)
	return err
}

// DescribeRTSP connects to an RTSP server and returns the stream description.
func DescribeRTSP(address string) (*StreamInfo, error) {
	if !strings.HasPrefix(strings.ToLower(address), "rtsp://") {
		return &StreamInfo{}, nil
	}

	u, err := base.ParseURL(address)
	if err != nil {
		return nil, fmt.Errorf("invalid RTSP URL: %w", err)
	}

	c := gortsplib.Client{}
	if err := c.Start(u.Scheme, u.Host); err != nil {
		return nil, fmt.Errorf("connecting to %v: %w", u.Host, err)
	}
	defer c.Close()

	desc, _, err := c.Describe(u)
	if err != nil {
		return nil, fmt.Errorf("DESCRIBE failed: %w", err)
	}

	info := &StreamInfo{
		Title:      desc.Title,
		MediaCount: len(desc.Medias),
	}
	for _, media := range desc.Medias {
		for _, forma := range media.Formats {
			info.Formats = append(info.Formats, forma.Codec())
		}
	}
	var h264 *format.H264
	if media := desc.FindFormat(&h264); media != nil {
		info.HasH264 = true
	}
	return info, nil
}
