package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps objects on disk under dir/bucket. The HTTP server exposes
// them at RoutePrefix.
type Local struct {
	root    string
	bucket  string
	baseURL string
}

const RoutePrefix = "/storage"

func NewLocal(dir, bucket, baseURL string) *Local {
	return &Local{
		root:    filepath.Join(dir, bucket),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root is the directory served under RoutePrefix/<bucket>.
func (l *Local) Root() string { return l.root }

func (l *Local) Bucket() string { return l.bucket }

// Upload writes a new object. Existing objects are never overwritten.
func (l *Local) Upload(ctx context.Context, path string, body io.Reader, size int64, _ string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(l.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("object %s already exists", p)
		}
		return err
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short upload: wrote %d of %d bytes", n, size)
	}
	if err != nil {
		_ = os.Remove(full)
		return err
	}
	return nil
}

func (l *Local) PublicURL(path string) string {
	return l.baseURL + RoutePrefix + "/" + l.bucket + "/" + strings.TrimLeft(path, "/")
}
