package main

import "testing"

func TestMimeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"clip.mp3", "audio/mpeg"},
		{"clip.MP3", "audio/mpeg"},
		{"/home/u/voice.wav", "audio/wav"},
		{"take2.flac", "audio/flac"},
		{"note.ogg", "audio/ogg"},
		{"memo.m4a", "audio/mp4"},
		{"memo.aac", "audio/aac"},
		{"notes.txt", ""},
		{"archive.zip", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		if got := mimeFromPath(tt.path); got != tt.want {
			t.Errorf("mimeFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
