// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small interface used to publish sync
// run reports to AWS S3 or a self-hosted MinIO instance.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - MakeBucket: Creates the report bucket if needed.
//   - PutObject: Uploads a report.
//   - ListObjects: Lists published reports under a prefix.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "sync-reports")
package storage
