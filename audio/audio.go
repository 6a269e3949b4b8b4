// Package audio abstracts microphone capture behind a small Context /
// CaptureDevice pair with a PulseAudio backend on linux, a miniaudio
// backend elsewhere and a WAV-fed fake for tests.
package audio

import "strings"

const WAVHeaderSize = 44

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

var permissionKeywords = []string{
	"access denied",
	"permission denied",
	"not authorized",
	"operation not permitted",
	"tcc",
}

// IsPermissionDenied reports whether a capture error looks like the user
// (or the OS privacy layer) refusing microphone access.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range permissionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"jabra", "galaxy buds", "pixel buds",
	"jbl ", "sennheiser momentum", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether a mic is a bluetooth
// headset, which usually means a low-quality telephony profile.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
