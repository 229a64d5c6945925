// Package fetcher turns dataset locations from a manifest into local files.
// A location is a local path, an http(s) or ftp URL, or a tiger:// TIGER/Line
// name; zip archives are extracted and searched for the requested file type.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/tiger"
)

// Fetcher downloads remote files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Resolver maps manifest locations to local files, downloading and
// extracting into CacheDir as needed.
type Resolver struct {
	CacheDir string
	HTTP     Fetcher
	FTP      Fetcher
}

// NewResolver creates a Resolver. An empty cacheDir uses a directory under
// the system temp dir.
func NewResolver(cacheDir string, httpFetcher, ftpFetcher Fetcher) *Resolver {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "geoenrich-cache")
	}
	return &Resolver{CacheDir: cacheDir, HTTP: httpFetcher, FTP: ftpFetcher}
}

// Resolve returns a local path for location. ext is the wanted file
// extension (".shp", ".csv", ".xlsx"); when location is a zip archive the
// first entry with that extension is returned.
func (r *Resolver) Resolve(ctx context.Context, location, ext string) (string, error) {
	local, err := r.localize(ctx, location)
	if err != nil {
		return "", err
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") || strings.EqualFold(ext, ".zip") {
		return local, nil
	}

	dest := filepath.Join(r.CacheDir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local)))
	files, err := ExtractZIP(local, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: extract %s", location)
	}
	path, err := FindByExt(files, ext)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: %s", location)
	}
	zap.L().Debug("fetcher: resolved archive entry", zap.String("location", location), zap.String("path", path))
	return path, nil
}

func (r *Resolver) localize(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return location, nil
	}

	var f Fetcher
	switch u.Scheme {
	case "file":
		return u.Path, nil
	case "http", "https":
		f = r.HTTP
	case "ftp":
		f = r.FTP
	case tiger.Scheme:
		resolved, err := tiger.ResolveURL(location)
		if err != nil {
			return "", err
		}
		return r.localize(ctx, resolved)
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, location)
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no %s fetcher configured for %s", u.Scheme, location)
	}

	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", eris.Errorf("fetcher: cannot name download for %s", location)
	}
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create cache dir")
	}
	dest := filepath.Join(r.CacheDir, name)
	if _, err := os.Stat(dest); err == nil {
		zap.L().Debug("fetcher: using cached download", zap.String("location", location), zap.String("path", dest))
		return dest, nil
	}

	n, err := f.DownloadToFile(ctx, location, dest)
	if err != nil {
		_ = os.Remove(dest)
		return "", eris.Wrapf(err, "fetcher: download %s", location)
	}
	zap.L().Info("fetcher: downloaded", zap.String("location", location), zap.Int64("bytes", n))
	return dest, nil
}

// FindByExt returns the first path in paths whose extension is ext,
// compared case-insensitively.
func FindByExt(paths []string, ext string) (string, error) {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			return p, nil
		}
	}
	return "", eris.Errorf("no %s file among %d entries", ext, len(paths))
}
