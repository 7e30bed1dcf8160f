package media

import (
	"context"
	"errors"
	"io"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

type OpenPhotoUseCase struct {
	storage service.PhotoStorage
}

func NewOpenPhotoUseCase(storage service.PhotoStorage) *OpenPhotoUseCase {
	return &OpenPhotoUseCase{storage: storage}
}

type OpenPhotoOutput struct {
	Body io.ReadCloser
	Info media.ObjectInfo
}

// Execute returns a reader the caller must close.
func (uc *OpenPhotoUseCase) Execute(ctx context.Context, name string) (*OpenPhotoOutput, error) {
	ref := media.FileRef(name)
	if err := media.ValidateFileRef(ref); err != nil {
		return nil, apperror.NewInvalidInput("Invalid file name.", err)
	}

	body, info, err := uc.storage.Open(ctx, ref)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal("failed to open photo", err)
	}
	return &OpenPhotoOutput{Body: body, Info: info}, nil
}
