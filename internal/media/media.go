// Package media downloads listing images into a local directory that the
// server exposes, so the marketplace can fetch them from a stable address.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/relister/internal/metrics"
)

const (
	maxImageBytes = 20 << 20
	// MaxImages caps one download batch
	MaxImages = 50
)

var extByType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
}

// File is one stored image
type File struct {
	SourceURL string `json:"sourceUrl"`
	FileName  string `json:"fileName"`
	LocalURL  string `json:"localUrl"`
	Size      int    `json:"size"`
}

// Result maps source URLs onto local URLs. Failed holds the error text of
// every image that could not be stored.
type Result struct {
	URLMap map[string]string `json:"urlMap"`
	Files  []File            `json:"files"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Local returns the local URL for src, or "" when it was not stored
func (r *Result) Local(src string) string {
	return r.URLMap[Normalize(src)]
}

// Downloader fetches images concurrently through a shared client
type Downloader struct {
	client      *http.Client
	outDir      string
	concurrency int
	logger      *zap.Logger
}

// NewDownloader creates a downloader writing into outDir. client should carry
// the source session's cookies.
func NewDownloader(client *http.Client, outDir string, concurrency int, logger *zap.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if concurrency <= 0 {
		concurrency = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{client: client, outDir: outDir, concurrency: concurrency, logger: logger}
}

// OutDir is the directory images are written to
func (d *Downloader) OutDir() string {
	return d.outDir
}

// Download stores every image it can. A failed image never aborts the others;
// callers decide which failures are fatal.
func (d *Downloader) Download(ctx context.Context, pageURL, baseURL string, imageURLs []string) (*Result, error) {
	res := &Result{URLMap: map[string]string{}, Failed: map[string]string{}}

	urls := dedupe(imageURLs)
	if len(urls) > MaxImages {
		urls = urls[:MaxImages]
	}
	if len(urls) == 0 {
		return res, nil
	}
	if err := os.MkdirAll(d.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	var mu sync.Mutex
	files := make([]*File, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			f, err := d.fetch(gctx, pageURL, baseURL, u, i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.ImageDownloads.WithLabelValues("failed").Inc()
				res.Failed[u] = err.Error()
				d.logger.Warn("Image download failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			metrics.ImageDownloads.WithLabelValues("stored").Inc()
			files[i] = f
			res.URLMap[u] = f.LocalURL
			return nil
		})
	}
	// per-image failures land in res.Failed, so Wait only reports cancellation
	err := g.Wait()

	for _, f := range files {
		if f != nil {
			res.Files = append(res.Files, *f)
		}
	}
	if err != nil {
		return res, err
	}
	return res, ctx.Err()
}

func (d *Downloader) fetch(ctx context.Context, pageURL, baseURL, imageURL string, index int) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	if pageURL != "" {
		req.Header.Set("Referer", pageURL)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if !LooksLikeImage(contentType, body) {
		return nil, fmt.Errorf("not an image (content-type %q)", contentType)
	}

	name := FileName(imageURL, Ext(imageURL, contentType, body), index)
	if err := os.WriteFile(filepath.Join(d.outDir, name), body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	return &File{SourceURL: imageURL, FileName: name, LocalURL: LocalURL(baseURL, name), Size: len(body)}, nil
}

// LooksLikeImage accepts an image content type or image magic bytes, since
// the source often serves images as application/octet-stream
func LooksLikeImage(contentType string, body []byte) bool {
	mt, _, _ := mime.ParseMediaType(contentType)
	if strings.HasPrefix(mt, "image/") && len(body) > 0 {
		return true
	}
	return SniffImage(body) != ""
}

// SniffImage returns the image content type detected from magic bytes, or ""
func SniffImage(b []byte) string {
	switch {
	case len(b) >= 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff:
		return "image/jpeg"
	case len(b) >= 4 && bytes.Equal(b[:4], []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	case len(b) >= 3 && bytes.Equal(b[:3], []byte("GIF")):
		return "image/gif"
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return ""
}

// Ext picks a file extension from the content type, the magic bytes, then the URL path
func Ext(imageURL, contentType string, body []byte) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	if ext, ok := extByType[mt]; ok {
		return ext
	}
	if ext, ok := extByType[SniffImage(body)]; ok {
		return ext
	}
	if u, err := url.Parse(imageURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".jpg"
}

// FileName is a stable name derived from the source URL
func FileName(imageURL, ext string, index int) string {
	sum := sha1.Sum([]byte(imageURL))
	return fmt.Sprintf("%s_%02d%s", hex.EncodeToString(sum[:])[:12], index, ext)
}

// LocalURL joins the public base URL and a file name
func LocalURL(baseURL, fileName string) string {
	return strings.TrimSuffix(strings.TrimSpace(baseURL), "/") + "/" + strings.TrimLeft(fileName, "/")
}

// Normalize makes protocol-relative URLs absolute
func Normalize(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func dedupe(urls []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urls {
		u = Normalize(u)
		lower := strings.ToLower(u)
		if u == "" || seen[u] || !(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
