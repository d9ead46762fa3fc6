// Package upload filters and stores product images on local disk.
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is where stored images are served from.
const URLPrefix = "/images/"

var acceptedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// sniffedExt maps a content type detected from the file bytes to the
// extension the stored file gets.
var sniffedExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

const sniffLen = 512

// IsImage reports whether contentType is one of the accepted image types.
func IsImage(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	_, ok := acceptedTypes[ct]
	return ok
}

type DiskStorage struct {
	dir     string
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewDiskStorage(dir string, logger *slog.Logger) (*DiskStorage, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("images dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir images dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStorage{dir: dir, logger: logger, nowFunc: time.Now}, nil
}

func (d *DiskStorage) Dir() string { return d.dir }

// Save stores fh and returns its public URL. Files that are not accepted
// images are skipped and yield an empty URL with no error. Both the declared
// Content-Type and the sniffed file bytes must agree on png or jpeg; the
// stored extension comes from the sniffed type.
func (d *DiskStorage) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || !IsImage(fh.Header.Get("Content-Type")) {
		return "", nil
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := sniffedExt[http.DetectContentType(head[:n])]
	if !ok {
		d.logger.Info("upload rejected: content is not an image", "filename", fh.Filename)
		return "", nil
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := d.fileName(fh.Filename, ext)
	dst, err := os.OpenFile(filepath.Join(d.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	return URLPrefix + name, nil
}

// fileName is <timestamp>-<random>-<base><ext>. The client's extension is dropped.
func (d *DiskStorage) fileName(original, ext string) string {
	base := sanitize(original)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "image"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return d.nowFunc().UTC().Format("20060102T150405.000Z") + "-" + suffix + "-" + base + ext
}

// Remove deletes the file behind url. Failures are logged, not returned:
// a stale image must not fail the request that replaced it.
func (d *DiskStorage) Remove(url string) {
	if !strings.HasPrefix(url, URLPrefix) {
		return
	}
	name := path.Base(url)
	if name == "." || name == "/" || name == ".." {
		return
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("remove image failed", "url", url, "error", err)
	}
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}
