package update

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Apply downloads the release next to the running binary, verifies its
// sha256 against the published checksums, and swaps it into place.
func Apply(rel *Release) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	want, err := expectedChecksum(rel.ChecksumURL, assetName())
	if err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}

	// Same directory as the binary so the final rename stays on one
	// filesystem.
	tmpPath, got, err := download(rel.AssetURL, filepath.Dir(execPath))
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	if got != want {
		return fmt.Errorf("checksum mismatch: got %.12s, want %.12s", got, want)
	}
	if err := os.Chmod(tmpPath, 0755); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return swap(execPath, tmpPath)
}

// download streams the asset into a temp file under dir, returning the
// file path and the sha256 of what was written.
func download(url, dir string) (path, sum string, err error) {
	tmp, err := os.CreateTemp(dir, ".toneprint-update-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	path = tmp.Name()
	defer tmp.Close()

	resp, err := http.Get(url)
	if err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("download binary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		os.Remove(path)
		return "", "", fmt.Errorf("download binary: %s", resp.Status)
	}

	hasher := sha256.New()
	src := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength}
	}
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), src); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("write binary: %w", err)
	}
	if resp.ContentLength > 0 {
		fmt.Fprintln(os.Stderr)
	}
	return path, hex.EncodeToString(hasher.Sum(nil)), nil
}

// swap moves the new binary over the old one, keeping the old copy
// until the rename lands.
func swap(execPath, newPath string) error {
	oldPath := execPath + ".old"
	if err := os.Rename(execPath, oldPath); err != nil {
		return fmt.Errorf("back up current binary: %w", err)
	}
	if err := os.Rename(newPath, execPath); err != nil {
		_ = os.Rename(oldPath, execPath)
		return fmt.Errorf("install new binary: %w", err)
	}
	_ = os.Remove(oldPath)
	return nil
}

type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	lastPct int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if pct := int(p.read * 100 / p.total); pct != p.lastPct {
		p.lastPct = pct
		fmt.Fprintf(os.Stderr, "\r  %d%% (%d / %d KB)", pct, p.read/1024, p.total/1024)
	}
	return n, err
}

func expectedChecksum(url, asset string) (string, error) {
	resp, err := apiClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("checksums: %s", resp.Status)
	}

	// goreleaser format: "<sha256>  <asset>"
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 && fields[1] == asset {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no entry for %s", asset)
}
