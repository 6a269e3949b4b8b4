package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempPrefs(t *testing.T) *Prefs {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func TestLoadMissingFileDefaults(t *testing.T) {
	p := tempPrefs(t)
	if !p.AudioFeedback {
		t.Error("audio feedback should default to on")
	}
	if p.APIKey != "" {
		t.Errorf("unexpected default key %q", p.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := tempPrefs(t)
	p.AudioFeedback = false
	if err := p.SetAPIKey("AIzaTestKey123"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	again, err := Load(p.path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.APIKey != "AIzaTestKey123" {
		t.Errorf("key = %q", again.APIKey)
	}
	if again.AudioFeedback {
		t.Error("audio feedback flag not persisted")
	}
}

func TestInvalidKeyNotPersisted(t *testing.T) {
	p := tempPrefs(t)
	err := p.SetAPIKey("sk-not-a-gemini-key")
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
	if _, statErr := os.Stat(p.path); !os.IsNotExist(statErr) {
		t.Error("invalid key should not create a prefs file")
	}
}

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		key string
		ok  bool
	}{
		{"AIzaSyExample", true},
		{"  AIzaSyExample  ", true},
		{"", false},
		{"   ", false},
		{"sk-proj-abc", false},
		{"aiza-lowercase", false},
	}
	for _, tc := range cases {
		err := ValidateAPIKey(tc.key)
		if tc.ok && err != nil {
			t.Errorf("ValidateAPIKey(%q) = %v, want nil", tc.key, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ValidateAPIKey(%q) = nil, want error", tc.key)
		}
	}
}

func TestResolveAPIKeyEnvOverride(t *testing.T) {
	p := tempPrefs(t)
	p.APIKey = "AIzaSaved"

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	if got := p.ResolveAPIKey(); got != "AIzaSaved" {
		t.Errorf("ResolveAPIKey = %q, want saved key", got)
	}

	t.Setenv("GOOGLE_API_KEY", "AIzaGoogle")
	if got := p.ResolveAPIKey(); got != "AIzaGoogle" {
		t.Errorf("ResolveAPIKey = %q, want GOOGLE_API_KEY", got)
	}

	t.Setenv("GEMINI_API_KEY", "AIzaGemini")
	if got := p.ResolveAPIKey(); got != "AIzaGemini" {
		t.Errorf("ResolveAPIKey = %q, want GEMINI_API_KEY", got)
	}
}
