package capture

import (
	"os"
	"strings"
)

// SourceKind is the class of a video source.
type SourceKind string

const (
	// SourceDevice is a local camera, addressed by device index
	SourceDevice SourceKind = "device"
	// SourceNetwork is an rtsp:// or rtmp:// stream
	SourceNetwork SourceKind = "network"
	// SourceFile is a video file on disk
	SourceFile SourceKind = "file"
)

// Classify determines the kind of a video source string.
// A string of digits is a device index. An rtsp:// or rtmp:// URL is a
// network stream. A path that exists on disk is a file. Anything else
// falls back to a device, matching the permissive behavior of camera
// auto-discovery.
func Classify(source string) SourceKind {
	if isAllDigits(source) {
		return SourceDevice
	}
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "rtmp://") {
		return SourceNetwork
	}
	if _, err := os.Stat(source); err == nil {
		return SourceFile
	}
	return SourceDevice
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
