package main

import (
	"context"
	"net/url"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/octogo/blobstore"
	"github.com/hupe1980/octogo/blobstore/minio"
	"github.com/hupe1980/octogo/blobstore/s3"
)

type storeConfig struct {
	URL            string `cli:""        env:"OCTOGO_STORE"            help:"Snapshot store: file://<dir>, mem://, s3://<bucket>/<prefix> or minio://<host:port>/<bucket>/<prefix>."`
	CommitTable    string `cli:",hidden" env:"OCTOGO_COMMIT_TABLE"     help:"DynamoDB table holding CURRENT pointers of an s3:// store."`
	MinioAccessKey string `cli:",hidden" env:"OCTOGO_MINIO_ACCESS_KEY" help:"MinIO access key."`
	MinioSecretKey string `cli:",hidden" env:"OCTOGO_MINIO_SECRET_KEY" help:"MinIO secret key."`
	MinioSecure    bool   `cli:",hidden" env:"OCTOGO_MINIO_SECURE"     help:"Use HTTPS for MinIO."`
}

// splitBucket splits "bucket/some/prefix" into bucket and prefix.
func splitBucket(p string) (string, string) {
	bucket, prefix, _ := strings.Cut(strings.Trim(p, "/"), "/")
	return bucket, prefix
}

func openStore(ctx context.Context, conf storeConfig) (blobstore.BlobStore, error) {
	u, err := url.Parse(conf.URL)
	if err != nil {
		return nil, errors.New("invalid store url").
			WithTag("url", conf.URL).
			Wrap(err)
	}

	switch u.Scheme {
	case "", "file":
		dir := u.Host + u.Path
		if u.Scheme == "" {
			dir = conf.URL
		}
		return blobstore.NewLocalStore(dir)

	case "mem":
		return blobstore.NewMemoryStore(), nil

	case "s3":
		bucket, prefix := u.Host, strings.Trim(u.Path, "/")
		if conf.CommitTable != "" {
			return s3.NewDDBCommitStoreFromConfig(ctx, bucket, prefix, conf.CommitTable)
		}
		return s3.NewFromConfig(ctx, bucket, prefix)

	case "minio":
		bucket, prefix := splitBucket(u.Path)
		if bucket == "" {
			return nil, errors.New("minio store url needs a bucket").WithTag("url", conf.URL)
		}
		client, err := miniogo.New(u.Host, &miniogo.Options{
			Creds:  credentials.NewStaticV4(conf.MinioAccessKey, conf.MinioSecretKey, ""),
			Secure: conf.MinioSecure,
		})
		if err != nil {
			return nil, errors.New("creating minio client failed").Wrap(err)
		}
		return minio.NewStore(client, bucket, prefix), nil
	}

	return nil, errors.New("unsupported store scheme").WithTag("scheme", u.Scheme)
}
