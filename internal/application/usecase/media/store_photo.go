package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const sniffLen = 512

var tracer = otel.Tracer("media_usecase")

var errFileTooLarge = errors.New("file exceeds upload limit")

type StorePhotoUseCase struct {
	storage  service.PhotoStorage
	maxBytes int64
	logger   logger.Logger
	nowFunc  func() time.Time
}

func NewStorePhotoUseCase(storage service.PhotoStorage, maxBytes int64, log logger.Logger) *StorePhotoUseCase {
	return &StorePhotoUseCase{storage: storage, maxBytes: maxBytes, logger: log, nowFunc: time.Now}
}

// StorePhotoInput describes one uploaded file. MimeType and Size are what the
// client declared; the content is checked as well.
type StorePhotoInput struct {
	File     io.Reader
	Filename string
	MimeType string
	Size     int64
}

type StorePhotoOutput struct {
	Ref         media.FileRef
	ContentType string
}

func (uc *StorePhotoUseCase) Execute(ctx context.Context, input StorePhotoInput) (*StorePhotoOutput, error) {
	ctx, span := tracer.Start(ctx, "StorePhoto")
	defer span.End()

	if !media.IsAllowedImageType(input.MimeType) {
		return nil, apperror.NewInvalidInput("Invalid file type. Only JPEG, PNG, and GIF are allowed.", nil)
	}
	if input.Size <= 0 {
		return nil, apperror.NewInvalidInput("Uploaded file is empty.", nil)
	}
	if input.Size > uc.maxBytes {
		return nil, apperror.NewInvalidInput(uc.tooLargeMessage(), nil)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperror.NewInternal("failed to read upload", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.NewInvalidInput("Uploaded file is empty.", nil)
	}

	detected := mimetype.Detect(head).String()
	if !media.IsAllowedImageType(detected) {
		return nil, apperror.NewInvalidInput("Invalid file type. Only JPEG, PNG, and GIF are allowed.",
			fmt.Errorf("declared %q, detected %q", input.MimeType, detected))
	}

	ref := media.NewFileRef(uc.nowFunc(), input.Filename)
	span.SetAttributes(attribute.String("file_ref", ref.String()), attribute.String("content_type", detected))

	body := &capReader{
		r:         io.MultiReader(bytes.NewReader(head), input.File),
		remaining: uc.maxBytes,
	}
	if err := uc.storage.Save(ctx, ref, body, detected); err != nil {
		span.RecordError(err)
		if errors.Is(err, errFileTooLarge) {
			return nil, apperror.NewInvalidInput(uc.tooLargeMessage(), err)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		uc.logger.Error("Failed to store photo", err, zap.String("file_ref", ref.String()))
		return nil, apperror.NewInternal("failed to store photo", err)
	}

	return &StorePhotoOutput{Ref: ref, ContentType: detected}, nil
}

func (uc *StorePhotoUseCase) tooLargeMessage() string {
	if uc.maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("File too large. Maximum size is %d MB.", uc.maxBytes>>20)
	}
	return fmt.Sprintf("File too large. Maximum size is %d bytes.", uc.maxBytes)
}

// capReader fails once more than remaining bytes have been read, so a body
// longer than its declared size cannot slip past the ceiling.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errFileTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}
