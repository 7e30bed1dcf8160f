package media_storage

import (
	"context"
	"fmt"

	"github.com/khoahotran/wellness-api/internal/application/service"
	"github.com/khoahotran/wellness-api/internal/config"
)

// NewPhotoStorage picks the backend named by storage.driver.
func NewPhotoStorage(ctx context.Context, cfg config.Config) (service.PhotoStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverLocal, "":
		return NewLocalAdapter(cfg.Storage.UploadDir), nil
	case config.StorageDriverS3:
		return NewS3Adapter(ctx, cfg)
	case config.StorageDriverCloudinary:
		return NewCloudinaryAdapter(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
