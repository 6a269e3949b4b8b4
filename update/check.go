package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	cacheFile  = "update_check.json"
	cacheTTL   = 12 * time.Hour
	recheckGap = 6 * time.Hour
)

var (
	apiBase   = "https://api.github.com"
	apiClient = &http.Client{Timeout: 15 * time.Second}
)

type ghRelease struct {
	TagName string    `json:"tag_name"`
	Assets  []ghAsset `json:"assets"`
}

type ghAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// lastCheck is the on-disk record of the most recent lookup. An empty
// Version means the lookup found nothing newer.
type lastCheck struct {
	Version     string    `json:"version"`
	AssetURL    string    `json:"asset_url"`
	ChecksumURL string    `json:"checksum_url"`
	CheckedAt   time.Time `json:"checked_at"`
}

// assetName is the release artifact for this OS and architecture, e.g.
// toneprint_linux_amd64.
func assetName() string {
	name := fmt.Sprintf("%s_%s_%s", BinaryName, runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

func fetchLatest() (*ghRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", apiBase, Repo)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("github api: %s", resp.Status)
	}
	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CheckLatest asks GitHub for the newest release and reports it when it
// supersedes the running build. Releases without a checksums.txt asset
// are rejected outright: Apply refuses unverified binaries.
func CheckLatest(currentVersion string) (*Release, error) {
	if currentVersion == "dev" {
		return nil, nil
	}
	gh, err := fetchLatest()
	if err != nil {
		return nil, err
	}

	r := &Release{Version: gh.TagName}
	want := assetName()
	for _, a := range gh.Assets {
		switch a.Name {
		case want:
			r.AssetURL = a.BrowserDownloadURL
		case "checksums.txt":
			r.ChecksumURL = a.BrowserDownloadURL
		}
	}
	if r.AssetURL == "" {
		return nil, fmt.Errorf("release %s has no asset %q", gh.TagName, want)
	}
	if r.ChecksumURL == "" {
		return nil, fmt.Errorf("release %s has no checksums.txt", gh.TagName)
	}
	if !r.NewerThan(currentVersion) {
		return nil, nil
	}
	return r, nil
}

func readCache(cacheDir string) (*Release, bool) {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheFile))
	if err != nil {
		return nil, false
	}
	var c lastCheck
	if json.Unmarshal(data, &c) != nil {
		return nil, false
	}
	if time.Since(c.CheckedAt) > cacheTTL {
		return nil, false
	}
	if c.Version == "" {
		return nil, true
	}
	return &Release{Version: c.Version, AssetURL: c.AssetURL, ChecksumURL: c.ChecksumURL}, true
}

func writeCache(cacheDir string, rel *Release) {
	c := lastCheck{CheckedAt: time.Now()}
	if rel != nil {
		c.Version, c.AssetURL, c.ChecksumURL = rel.Version, rel.AssetURL, rel.ChecksumURL
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = os.MkdirAll(cacheDir, 0755)
	_ = os.WriteFile(filepath.Join(cacheDir, cacheFile), data, 0644)
}

// CheckLatestCached is CheckLatest behind an on-disk cache, so repeated
// launches within the TTL stay off the network.
func CheckLatestCached(currentVersion, cacheDir string) (*Release, error) {
	if currentVersion == "dev" {
		return nil, nil
	}
	if rel, ok := readCache(cacheDir); ok {
		return rel, nil
	}
	rel, err := CheckLatest(currentVersion)
	if err != nil {
		return nil, err
	}
	writeCache(cacheDir, rel)
	return rel, nil
}

// StartBackgroundCheck looks for a newer release once at startup and
// then every few hours for long-lived sessions, calling notify from its
// own goroutine when one turns up.
func StartBackgroundCheck(currentVersion, cacheDir string, notify func(Release)) {
	if currentVersion == "dev" {
		return
	}
	go func() {
		for {
			if rel, err := CheckLatestCached(currentVersion, cacheDir); err == nil && rel != nil {
				notify(*rel)
			}
			time.Sleep(recheckGap)
		}
	}()
}
