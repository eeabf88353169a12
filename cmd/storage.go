package cmd

import (
	"context"
	"strings"

	"github.com/foomo/reportserver/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	storageTypeFilesystem = "filesystem"
	storageTypeBlob       = "blob"
)

// blobProviders maps the supported bucket URL schemes to a readable provider name
var blobProviders = []struct {
	scheme string
	name   string
}{
	{scheme: "gs://", name: "Google Cloud Storage"},
	{scheme: "s3://", name: "AWS S3"},
	{scheme: "azblob://", name: "Azure Blob Storage"},
}

// createStorage opens the deployment root. An unreachable root is only
// logged, readiness reports it until it shows up.
func createStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (storage.Storage, error) {
	s, err := openStorage(ctx, v, l)
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		l.Warn("deployment root is not reachable", zap.Error(err))
	}
	return s, nil
}

func openStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (storage.Storage, error) {
	storageType := storageTypeFlag(v)
	blobBucket := storageBlobBucketFlag(v)
	blobPrefix := storageBlobPrefixFlag(v)

	switch storageType {
	case storageTypeBlob:
		provider, ok := blobProvider(blobBucket)
		if !ok {
			return nil, errors.Errorf("storage-blob-bucket %q must start with one of: %s", blobBucket, strings.Join(blobSchemes(), ", "))
		}
		l.Info("using blob deployment root",
			zap.String("bucket", blobBucket),
			zap.String("prefix", blobPrefix),
			zap.String("provider", provider),
		)
		return storage.NewBlobStorage(ctx, blobBucket, blobPrefix)
	case storageTypeFilesystem, "":
		if blobBucket != "" || blobPrefix != "" {
			l.Warn("ignoring blob flags for filesystem deployment root",
				zap.String("blob-bucket", blobBucket),
				zap.String("blob-prefix", blobPrefix),
			)
		}
		s, err := storage.NewFilesystemStorage(deploymentRootFlag(v))
		if err != nil {
			return nil, err
		}
		l.Info("using filesystem deployment root", zap.String("dir", s.BaseDir()))
		return s, nil
	default:
		return nil, errors.Errorf("unknown storage type %q (supported: %s, %s)", storageType, storageTypeFilesystem, storageTypeBlob)
	}
}

// blobProvider returns the provider name for a supported bucket URL
func blobProvider(bucketURL string) (string, bool) {
	for _, p := range blobProviders {
		if strings.HasPrefix(bucketURL, p.scheme) {
			return p.name, true
		}
	}
	return "", false
}

func blobSchemes() []string {
	ret := make([]string, len(blobProviders))
	for i, p := range blobProviders {
		ret[i] = p.scheme
	}
	return ret
}
