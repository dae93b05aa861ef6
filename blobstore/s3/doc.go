// Package s3 stores snapshots in Amazon S3.
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "octogo/")
//
// Store relies on S3's per-object atomicity for CURRENT pointers, which is
// enough for a single writer per model. DDBCommitStore adds DynamoDB
// conditional writes so concurrent writers detect each other instead of
// silently overwriting CURRENT.
package s3
