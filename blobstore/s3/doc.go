// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("backups/"))
//
//	err = backup.Snapshot(ctx, "./data", "articles", store)
//
// # Features
//
//   - Streaming multipart uploads for large segments
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
