package receipts

import (
	"context"
	"fmt"

	"ambulance-finance/internal/config"
	"ambulance-finance/pkg/storage"
)

// NewStorageProvider builds the provider named by cfg.Provider: local, aws
// or gcp.
func NewStorageProvider(ctx context.Context, cfg *config.StorageConfig) (storage.StorageProvider, error) {
	switch cfg.Provider {
	case "", "local":
		local, err := storage.NewLocalStorage(cfg.Local.BasePath, cfg.Local.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("local receipt storage: %w", err)
		}
		return local, nil
	case "aws", "s3":
		s3, err := storage.NewAWSS3Storage(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.CDNDomain)
		if err != nil {
			return nil, fmt.Errorf("s3 receipt storage: %w", err)
		}
		return s3, nil
	case "gcp", "gcs":
		gcs, err := storage.NewGCPStorage(ctx, cfg.GCP.Bucket, cfg.GCP.CredentialsFile, cfg.GCP.CDNDomain)
		if err != nil {
			return nil, fmt.Errorf("gcs receipt storage: %w", err)
		}
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
