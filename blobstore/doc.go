// Package blobstore abstracts the storage of snapshot files and commit
// pointers.
//
// Implementations must be safe for concurrent use.
//
//   - MemoryStore: in-process, for tests and ephemeral databases
//   - LocalStore: local filesystem, atomic writes and mmap reads
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB conditional writes for CURRENT pointers
//   - minio.Store: MinIO and other S3-compatible services
//
// Writers publish a file with Put or Create and then point a CURRENT blob at
// it. Stores that support atomic pointer updates implement it in Put; the
// others rely on Put being atomic per object.
package blobstore
