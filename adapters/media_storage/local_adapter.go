package media_storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

type localAdapter struct {
	dir string
}

// NewLocalAdapter stores files in dir. The directory is created on the first
// write, not here.
func NewLocalAdapter(dir string) service.PhotoStorage {
	return &localAdapter{dir: filepath.Clean(dir)}
}

// Save streams into a temp file first and links it to its final name, so a
// failed write leaves nothing behind and an existing ref is never replaced.
func (a *localAdapter) Save(ctx context.Context, ref media.FileRef, file io.Reader, _ string) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(a.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: file}); err != nil {
		tmp.Close()
		return fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod upload: %w", err)
	}

	if err := os.Link(tmpName, a.path(ref)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("file %s already exists", ref)
		}
		return fmt.Errorf("publish upload: %w", err)
	}
	return nil
}

func (a *localAdapter) Open(_ context.Context, ref media.FileRef) (io.ReadCloser, media.ObjectInfo, error) {
	if err := media.ValidateFileRef(ref); err != nil {
		return nil, media.ObjectInfo{}, apperror.NewInvalidInput("invalid file reference", err)
	}
	p := a.path(ref)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, media.ObjectInfo{}, apperror.NewNotFound("file", ref.String())
		}
		return nil, media.ObjectInfo{}, fmt.Errorf("open %s: %w", ref, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, media.ObjectInfo{}, fmt.Errorf("stat %s: %w", ref, err)
	}
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		f.Close()
		return nil, media.ObjectInfo{}, fmt.Errorf("detect content type of %s: %w", ref, err)
	}
	return f, media.ObjectInfo{Size: st.Size(), ContentType: mt.String()}, nil
}

func (a *localAdapter) Delete(_ context.Context, ref media.FileRef) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	if err := os.Remove(a.path(ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

func (a *localAdapter) path(ref media.FileRef) string {
	return filepath.Join(a.dir, ref.String())
}

// ctxReader stops a long copy once the request is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
