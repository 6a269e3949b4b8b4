// Package prefs persists the small set of user preferences as a YAML
// file under the platform config directory.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidKey carries the fixed message shown when a key fails the
// shape check. The technical detail never reaches the user.
var ErrInvalidKey = errors.New("That doesn't look like a Gemini API key. Keys start with \"AIza\".")

type Prefs struct {
	APIKey        string `yaml:"gemini_api_key"`
	AudioFeedback bool   `yaml:"audio_feedback_enabled"`

	path string
}

// DefaultPath returns the preferences file location, e.g.
// ~/.config/toneprint/prefs.yaml on linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "toneprint", "prefs.yaml"), nil
}

// Load reads preferences from path. A missing file is not an error, it
// yields the defaults (audio feedback on, no key).
func Load(path string) (*Prefs, error) {
	p := &Prefs{AudioFeedback: true, path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing prefs: %w", err)
	}
	return p, nil
}

// Save writes the preferences, creating the parent directory as needed.
func (p *Prefs) Save() error {
	if p.path == "" {
		return errors.New("prefs path not set")
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}

// ValidateAPIKey rejects keys that cannot be Gemini keys before any
// request is attempted.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || !strings.HasPrefix(key, "AIza") {
		return ErrInvalidKey
	}
	return nil
}

// SetAPIKey validates and persists a key. An invalid key is never
// written to disk.
func (p *Prefs) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	p.APIKey = key
	return p.Save()
}

// ResolveAPIKey returns the key to use for analysis. Environment
// variables win over the saved preference so a shell export can
// override a stale stored key.
func (p *Prefs) ResolveAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key
	}
	return p.APIKey
}
