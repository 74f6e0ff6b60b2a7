// Package cache resolves path-or-URL references to guaranteed-present
// local files under a deterministic cache directory layout.
package cache

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EnvCacheDir overrides the cache root when set.
const EnvCacheDir = "ANNOTDB_CACHE_DIR"

// DefaultRoot returns the cache root: $ANNOTDB_CACHE_DIR if set,
// otherwise ~/.annotdb.
func DefaultRoot() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".annotdb"
	}
	return filepath.Join(home, ".annotdb")
}

// Cache downloads remote files into a cache directory, optionally copies
// local files into it, and hands back local paths. The directory is
// uniquely determined by (reference name, annotation name, annotation
// version) so independent processes referencing the same release share it.
type Cache struct {
	root              string
	referenceName     string
	annotationName    string
	annotationVersion string

	copyLocalToCache     bool
	decompressOnDownload bool

	client *http.Client
	logger *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithRoot overrides the cache root directory.
func WithRoot(root string) Option {
	return func(c *Cache) { c.root = root }
}

// WithLogger sets the logger used for download progress and deletions.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// CopyLocalToCache makes Resolve copy local source files into the cache
// directory instead of using them in place.
func CopyLocalToCache(enabled bool) Option {
	return func(c *Cache) { c.copyLocalToCache = enabled }
}

// DecompressOnDownload makes Resolve gunzip downloaded files whose names
// carry a supported compression suffix, caching the decompressed result.
func DecompressOnDownload(enabled bool) Option {
	return func(c *Cache) { c.decompressOnDownload = enabled }
}

// New creates a cache for one annotation release.
func New(referenceName, annotationName, annotationVersion string, opts ...Option) *Cache {
	c := &Cache{
		root:              DefaultRoot(),
		referenceName:     referenceName,
		annotationName:    annotationName,
		annotationVersion: annotationVersion,
		// Long timeout: annotation files run to hundreds of MB.
		client: &http.Client{Timeout: 30 * time.Minute},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache directory for this release:
// <root>/<reference_name>/<annotation_name>/<annotation_version>.
func (c *Cache) Dir() string {
	return filepath.Join(c.root, c.referenceName, c.annotationName, c.annotationVersion)
}

// IsURL reports whether the reference is a remote URL rather than a
// local filesystem path.
func IsURL(pathOrURL string) bool {
	return strings.Contains(pathOrURL, "://")
}

// supported compression suffixes for decompress-on-download
var compressionSuffixes = []string{".gz", ".gzip"}

func stripCompressionSuffix(filename string) (string, bool) {
	for _, suffix := range compressionSuffixes {
		if strings.HasSuffix(filename, suffix) {
			return strings.TrimSuffix(filename, suffix), true
		}
	}
	return filename, false
}

// localFilename determines the in-cache filename for a reference.
func (c *Cache) localFilename(pathOrURL string) (string, error) {
	var name string
	if IsURL(pathOrURL) {
		u, err := url.Parse(pathOrURL)
		if err != nil {
			return "", fmt.Errorf("parse url %q: %w", pathOrURL, err)
		}
		name = path.Base(u.Path)
	} else {
		name = filepath.Base(pathOrURL)
	}
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot determine local filename for %q", pathOrURL)
	}
	if c.decompressOnDownload && IsURL(pathOrURL) {
		name, _ = stripCompressionSuffix(name)
	}
	return name, nil
}

// CachedPath returns the path the reference resolves to inside the cache
// directory, whether or not the file exists yet.
func (c *Cache) CachedPath(pathOrURL string) (string, error) {
	name, err := c.localFilename(pathOrURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Dir(), name), nil
}

// exists reports whether path names a non-empty regular file. Empty files
// are treated as absent so an interrupted writer never poisons the cache.
func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Resolve turns a path-or-URL reference into a local file path, fetching
// or copying the file into the cache as needed. Repeated calls with
// unchanged inputs and overwrite=false reuse the cached file and perform
// no network or copy operation.
func (c *Cache) Resolve(pathOrURL string, downloadIfMissing, overwrite bool) (string, error) {
	if IsURL(pathOrURL) {
		return c.resolveURL(pathOrURL, downloadIfMissing, overwrite)
	}
	return c.resolveLocal(pathOrURL, overwrite)
}

func (c *Cache) resolveURL(rawURL string, downloadIfMissing, overwrite bool) (string, error) {
	dest, err := c.CachedPath(rawURL)
	if err != nil {
		return "", &MissingRemoteFileError{URL: rawURL, Hint: c.hint(), Err: err}
	}
	if exists(dest) && !overwrite {
		return dest, nil
	}
	if !downloadIfMissing {
		return "", &MissingRemoteFileError{URL: rawURL, Hint: c.hint()}
	}
	if err := c.download(rawURL, dest); err != nil {
		return "", &MissingRemoteFileError{URL: rawURL, Hint: c.hint(), Err: err}
	}
	return dest, nil
}

func (c *Cache) resolveLocal(localPath string, overwrite bool) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", localPath, err)
	}
	if !exists(abs) {
		return "", &MissingLocalFileError{Path: abs, Hint: c.hint()}
	}
	if !c.copyLocalToCache {
		return abs, nil
	}
	dest, err := c.CachedPath(abs)
	if err != nil {
		return "", err
	}
	if exists(dest) && !overwrite {
		return dest, nil
	}
	if err := c.copyFile(abs, dest); err != nil {
		return "", fmt.Errorf("copy %s into cache: %w", abs, err)
	}
	return dest, nil
}

// download fetches url into dest. The file is written to a uniquely-named
// temporary path and published by rename so a concurrent reader never
// observes a partial download.
func (c *Cache) download(rawURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	c.logger.Info("downloading annotation file",
		zap.String("url", rawURL),
		zap.String("dest", dest))
	start := time.Now()

	resp, err := c.client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http error: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	_, compressed := stripCompressionSuffix(path.Base(rawURL))
	if c.decompressOnDownload && compressed {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("download failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish download: %w", err)
	}

	c.logger.Info("download complete",
		zap.String("dest", dest),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Cache) copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	_, err = io.Copy(tmp, in)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// DeleteCachedFiles removes cached files whose names start with any of the
// given prefixes or end with any of the given suffixes. Deletion is
// best-effort: nothing matching is not an error. With no prefixes and no
// suffixes nothing is deleted; use DeleteCacheDirectory to clear the
// whole release.
func (c *Cache) DeleteCachedFiles(prefixes, suffixes []string) error {
	if len(prefixes) == 0 && len(suffixes) == 0 {
		return nil
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !matches(entry.Name(), prefixes, suffixes) {
			continue
		}
		target := filepath.Join(c.Dir(), entry.Name())
		c.logger.Info("deleting cached file", zap.String("path", target))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func matches(name string, prefixes, suffixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// DeleteCacheDirectory removes the whole cache directory for this release.
func (c *Cache) DeleteCacheDirectory() error {
	c.logger.Info("deleting cache directory", zap.String("dir", c.Dir()))
	if err := os.RemoveAll(c.Dir()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) hint() InstallHint {
	return InstallHint{
		ReferenceName:     c.referenceName,
		AnnotationName:    c.annotationName,
		AnnotationVersion: c.annotationVersion,
	}
}
