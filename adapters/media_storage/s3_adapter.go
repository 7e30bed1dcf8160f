package media_storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

type s3Adapter struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

func NewS3Adapter(ctx context.Context, cfg config.Config) (service.PhotoStorage, error) {
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.S3.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Adapter{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.S3.Bucket,
		keyPrefix: strings.Trim(cfg.S3.KeyPrefix, "/"),
	}, nil
}

func (a *s3Adapter) Save(ctx context.Context, ref media.FileRef, file io.Reader, contentType string) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(ref)),
		Body:        file,
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", ref, err)
	}
	return nil
}

func (a *s3Adapter) Open(ctx context.Context, ref media.FileRef) (io.ReadCloser, media.ObjectInfo, error) {
	if err := media.ValidateFileRef(ref); err != nil {
		return nil, media.ObjectInfo{}, apperror.NewInvalidInput("invalid file reference", err)
	}
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(ref)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, media.ObjectInfo{}, apperror.NewNotFound("file", ref.String())
		}
		return nil, media.ObjectInfo{}, fmt.Errorf("get object %s: %w", ref, err)
	}
	return out.Body, media.ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

func (a *s3Adapter) Delete(ctx context.Context, ref media.FileRef) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(ref)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	return nil
}

func (a *s3Adapter) key(ref media.FileRef) string {
	if a.keyPrefix == "" {
		return ref.String()
	}
	return a.keyPrefix + "/" + ref.String()
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}
