// Package fetch discovers AIS archive ZIPs on the NOAA data handler index
// page, downloads them to a staging directory with progress reporting, and
// extracts the contained CSV for ingestion.
package fetch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/fileutil"
	"github.com/eunmann/zip2parquet/pkg/humanfmt"
)

// ErrNoCSVInArchive is returned when an archive contains no CSV member.
var ErrNoCSVInArchive = errors.New("no CSV file found in archive")

// zipHrefPattern matches href attributes pointing at ZIP files. The index
// page mixes absolute, host-relative, and page-relative links.
var zipHrefPattern = regexp.MustCompile(`(?i)href="([^"]+\.zip)"`)

// Client retrieves archives over HTTP with retries and stages them locally.
type Client struct {
	http       *retryablehttp.Client
	stagingDir string
}

// NewClient creates a fetch client staging files under stagingDir.
func NewClient(stagingDir string) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 4
	hc.Logger = nil // progress and errors go through zerolog
	return &Client{http: hc, stagingDir: stagingDir}
}

// ListArchiveURLs fetches the index page and returns the absolute URLs of
// every ZIP it links to, in page order.
func (c *Client) ListArchiveURLs(ctx context.Context, baseURL string) ([]string, error) {
	log := logctx.FromContext(ctx)
	log.Info().Str("url", baseURL).Msg("fetching archive listing")

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch listing %s: status %d", baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing body: %w", err)
	}

	var urls []string
	for _, m := range zipHrefPattern.FindAllStringSubmatch(string(body), -1) {
		ref, err := url.Parse(m[1])
		if err != nil {
			log.Warn().Str("href", m[1]).Msg("skipping unparseable href")
			continue
		}
		urls = append(urls, base.ResolveReference(ref).String())
	}

	log.Info().Int("count", len(urls)).Msg("found ZIP archives")
	return urls, nil
}

// Download streams rawURL into the staging directory, logging progress
// periodically. Returns the staged file path. A short read against the
// advertised Content-Length is logged as a warning, not an error, matching
// the tolerant behavior of the original downloader.
func (c *Client) Download(ctx context.Context, rawURL string) (string, error) {
	log := logctx.FromContext(ctx)

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download URL: %w", err)
	}
	dest := filepath.Join(c.stagingDir, filepath.Base(u.Path))
	log.Info().Str("url", rawURL).Str("dest", dest).Msg("downloading archive")

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	pr := &progressReader{
		r:     resp.Body,
		total: resp.ContentLength,
		name:  filepath.Base(dest),
		log:   log,
		start: time.Now(),
	}
	n, err := fileutil.CopyToFile(dest, pr)
	if err != nil {
		return "", err
	}

	if resp.ContentLength > 0 && n != resp.ContentLength {
		log.Warn().
			Int64("expected_bytes", resp.ContentLength).
			Int64("got_bytes", n).
			Str("url", rawURL).
			Msg("download incomplete")
	}

	log.Info().
		Str("dest", dest).
		Str("size", humanfmt.Bytes(n)).
		Str("rate", humanfmt.Throughput(n, time.Since(pr.start))).
		Msg("download complete")
	return dest, nil
}

// ExtractCSV extracts the first CSV member of the archive into the staging
// directory and returns its path.
func (c *Client) ExtractCSV(ctx context.Context, zipPath string) (string, error) {
	log := logctx.FromContext(ctx)

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		if !strings.HasSuffix(strings.ToLower(member.Name), ".csv") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return "", fmt.Errorf("open archive member %s: %w", member.Name, err)
		}
		dest := filepath.Join(c.stagingDir, filepath.Base(member.Name))
		n, err := fileutil.CopyToFile(dest, rc)
		rc.Close()
		if err != nil {
			return "", err
		}

		log.Info().
			Str("member", member.Name).
			Str("dest", dest).
			Str("size", humanfmt.Bytes(n)).
			Msg("extracted CSV")
		return dest, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoCSVInArchive, zipPath)
}

// progressMark is the byte interval between download progress log lines.
const progressMark = 64 * humanfmt.MiB

// progressReader logs transfer progress periodically as it is consumed.
type progressReader struct {
	r        io.Reader
	total    int64
	name     string
	log      zerolog.Logger
	start    time.Time
	read     int64
	lastMark int64
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	if p.read-p.lastMark >= progressMark {
		p.lastMark = p.read
		ev := p.log.Info().
			Str("file", p.name).
			Str("read", humanfmt.Bytes(p.read)).
			Str("rate", humanfmt.Throughput(p.read, time.Since(p.start)))
		if p.total > 0 {
			ev = ev.Str("total", humanfmt.Bytes(p.total)).
				Int64("pct", p.read*100/p.total)
		}
		ev.Msg("download progress")
	}
	return n, err
}
