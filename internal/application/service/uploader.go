package service

import (
	"context"
	"io"

	"github.com/khoahotran/wellness-api/internal/domain/media"
)

// PhotoStorage persists uploaded files under generated names. Save must
// never overwrite an existing ref.
type PhotoStorage interface {
	Save(ctx context.Context, ref media.FileRef, file io.Reader, contentType string) error
	Open(ctx context.Context, ref media.FileRef) (io.ReadCloser, media.ObjectInfo, error)
	Delete(ctx context.Context, ref media.FileRef) error
}
