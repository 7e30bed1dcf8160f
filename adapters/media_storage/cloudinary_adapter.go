package media_storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/config"
	"github.com/khoahotran/wellness-api/internal/domain/media"
	"github.com/khoahotran/wellness-api/pkg/apperror"
)

type cloudinaryAdapter struct {
	cld        *cloudinary.Cloudinary
	folder     string
	httpClient *http.Client
}

func NewCloudinaryAdapter(cfg config.Config) (service.PhotoStorage, error) {

	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	return &cloudinaryAdapter{
		cld:        cld,
		folder:     strings.Trim(cfg.Cloudinary.Folder, "/"),
		httpClient: http.DefaultClient,
	}, nil
}

func (a *cloudinaryAdapter) Save(ctx context.Context, ref media.FileRef, file io.Reader, _ string) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	result, err := a.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       publicIDOf(ref),
		Folder:         a.folder,
		Overwrite:      api.Bool(false),
		UniqueFilename: api.Bool(false),
		ResourceType:   "image",
	})
	if err != nil {
		return fmt.Errorf("failed to upload cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to upload cloudinary: %s", result.Error.Message)
	}
	return nil
}

// Open fetches the original asset over its delivery URL.
func (a *cloudinaryAdapter) Open(ctx context.Context, ref media.FileRef) (io.ReadCloser, media.ObjectInfo, error) {
	if err := media.ValidateFileRef(ref); err != nil {
		return nil, media.ObjectInfo{}, apperror.NewInvalidInput("invalid file reference", err)
	}
	asset, err := a.cld.Image(a.fullPublicID(ref))
	if err != nil {
		return nil, media.ObjectInfo{}, fmt.Errorf("build cloudinary asset: %w", err)
	}
	url, err := asset.String()
	if err != nil {
		return nil, media.ObjectInfo{}, fmt.Errorf("build cloudinary url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, media.ObjectInfo{}, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, media.ObjectInfo{}, fmt.Errorf("fetch cloudinary asset: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, media.ObjectInfo{}, apperror.NewNotFound("file", ref.String())
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, media.ObjectInfo{}, fmt.Errorf("fetch cloudinary asset: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, media.ObjectInfo{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (a *cloudinaryAdapter) Delete(ctx context.Context, ref media.FileRef) error {
	if err := media.ValidateFileRef(ref); err != nil {
		return apperror.NewInvalidInput("invalid file reference", err)
	}
	_, err := a.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: a.fullPublicID(ref),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cloudinary: %w", err)
	}
	return nil
}

func (a *cloudinaryAdapter) fullPublicID(ref media.FileRef) string {
	if a.folder == "" {
		return publicIDOf(ref)
	}
	return a.folder + "/" + publicIDOf(ref)
}

// Cloudinary keeps the format out of image public ids.
func publicIDOf(ref media.FileRef) string {
	s := ref.String()
	return strings.TrimSuffix(s, path.Ext(s))
}
