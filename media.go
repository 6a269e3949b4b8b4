package main

import (
	"mime"
	"path/filepath"
	"strings"
)

// mimeFromPath maps a file extension to the MIME type sent with the
// analysis request. Unknown audio extensions fall through to the
// platform MIME database; anything else comes back empty and is
// rejected before any network call.
func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if strings.HasPrefix(mt, "audio/") {
		return mt
	}
	return ""
}
