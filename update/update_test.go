package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    [3]int
		wantErr bool
	}{
		{"1.2.3", [3]int{1, 2, 3}, false},
		{"v0.1.5", [3]int{0, 1, 5}, false},
		{"v1.0.0-dirty", [3]int{1, 0, 0}, false},
		{"v2.3.4-rc1+build", [3]int{2, 3, 4}, false},
		{"dev", [3]int{}, true},
		{"", [3]int{}, true},
		{"1.2", [3]int{}, true},
		{"1.2.3.4", [3]int{}, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseVersion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReleaseNewerThan(t *testing.T) {
	tests := []struct {
		release string
		current string
		want    bool
	}{
		{"v0.2.0", "v0.1.5", true},
		{"v0.1.5", "v0.1.5", false},
		{"v0.1.4", "v0.1.5", false},
		{"v1.0.0", "v0.9.9", true},
		{"v0.1.6", "v0.1.5-dirty", true},
		{"v0.1.5", "dev", false},
		{"invalid", "v0.1.5", false},
	}

	for _, tt := range tests {
		r := Release{Version: tt.release}
		got := r.NewerThan(tt.current)
		if got != tt.want {
			t.Errorf("Release{%q}.NewerThan(%q) = %v, want %v", tt.release, tt.current, got, tt.want)
		}
	}
}

func TestCheckLatestRequiresChecksums(t *testing.T) {
	serveRelease := func(t *testing.T, assets []ghAsset) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ghRelease{TagName: "v9.9.9", Assets: assets})
		}))
		t.Cleanup(srv.Close)
		old := apiBase
		apiBase = srv.URL
		t.Cleanup(func() { apiBase = old })
	}

	t.Run("missing checksums", func(t *testing.T) {
		serveRelease(t, []ghAsset{{Name: assetName(), BrowserDownloadURL: "https://example.com/bin"}})
		_, err := CheckLatest("v0.1.0")
		if err == nil || !strings.Contains(err.Error(), "checksums.txt") {
			t.Fatalf("err = %v, want checksums.txt rejection", err)
		}
	})

	t.Run("complete release", func(t *testing.T) {
		serveRelease(t, []ghAsset{
			{Name: assetName(), BrowserDownloadURL: "https://example.com/bin"},
			{Name: "checksums.txt", BrowserDownloadURL: "https://example.com/sums"},
		})
		rel, err := CheckLatest("v0.1.0")
		if err != nil {
			t.Fatalf("CheckLatest: %v", err)
		}
		if rel == nil || rel.Version != "v9.9.9" || rel.ChecksumURL == "" {
			t.Errorf("rel = %+v", rel)
		}
	})

	t.Run("already current", func(t *testing.T) {
		serveRelease(t, []ghAsset{
			{Name: assetName(), BrowserDownloadURL: "https://example.com/bin"},
			{Name: "checksums.txt", BrowserDownloadURL: "https://example.com/sums"},
		})
		rel, err := CheckLatest("v9.9.9")
		if err != nil || rel != nil {
			t.Errorf("rel = %+v, err = %v, want nil, nil", rel, err)
		}
	})
}

func TestExpectedChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  %s\n%s  other_asset\n", strings.Repeat("a", 64), assetName(), strings.Repeat("b", 64))
	}))
	defer srv.Close()

	got, err := expectedChecksum(srv.URL, assetName())
	if err != nil {
		t.Fatalf("expectedChecksum: %v", err)
	}
	if got != strings.Repeat("a", 64) {
		t.Errorf("checksum = %q", got)
	}

	if _, err := expectedChecksum(srv.URL, "missing_asset"); err == nil {
		t.Error("expected error for missing asset entry")
	}
}

func TestCacheWriteRead(t *testing.T) {
	dir := t.TempDir()

	rel := &Release{Version: "v0.2.0", AssetURL: "https://example.com/toneprint", ChecksumURL: "https://example.com/checksums.txt"}
	writeCache(dir, rel)

	got, ok := readCache(dir)
	if !ok {
		t.Fatal("readCache returned not ok")
	}
	if got == nil {
		t.Fatal("readCache returned nil release")
	}
	if got.Version != rel.Version || got.AssetURL != rel.AssetURL || got.ChecksumURL != rel.ChecksumURL {
		t.Errorf("readCache = %+v, want %+v", got, rel)
	}

	// Cached "no update available"
	writeCache(dir, nil)
	got, ok = readCache(dir)
	if !ok {
		t.Fatal("readCache returned not ok for nil cache")
	}
	if got != nil {
		t.Errorf("readCache = %+v, want nil", got)
	}

	// Corrupt cache file
	_ = os.WriteFile(filepath.Join(dir, cacheFile), []byte("not json"), 0644)
	_, ok = readCache(dir)
	if ok {
		t.Error("readCache should return not ok for corrupt cache")
	}
}
