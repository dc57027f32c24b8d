package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/vdb/blobstore"
	minioblob "github.com/hupe1980/vdb/blobstore/minio"
	s3blob "github.com/hupe1980/vdb/blobstore/s3"
)

// storeFromTarget builds a blob store from a target URL:
//
//	local:///path/to/backups
//	s3://bucket/prefix
//	minio://host:port/bucket/prefix   (credentials from MINIO_ACCESS_KEY,
//	                                   MINIO_SECRET_KEY; MINIO_SECURE=true
//	                                   enables TLS)
func storeFromTarget(ctx context.Context, target string) (blobstore.Store, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}

	switch u.Scheme {
	case "local", "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return nil, fmt.Errorf("target %q has no path", target)
		}
		return blobstore.NewLocalStore(path)

	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("target %q has no bucket", target)
		}
		prefix := strings.TrimPrefix(u.Path, "/")
		return s3blob.New(ctx, u.Host, s3blob.WithPrefix(prefix))

	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("target %q needs minio://host:port/bucket[/prefix]", target)
		}
		client, err := miniosdk.New(u.Host, &miniosdk.Options{
			Creds: credentials.NewStaticV4(
				os.Getenv("MINIO_ACCESS_KEY"),
				os.Getenv("MINIO_SECRET_KEY"),
				"",
			),
			Secure: os.Getenv("MINIO_SECURE") == "true",
		})
		if err != nil {
			return nil, err
		}
		return minioblob.NewStore(client, bucket, prefix), nil

	default:
		return nil, fmt.Errorf("unsupported target scheme %q (use local, s3, or minio)", u.Scheme)
	}
}
