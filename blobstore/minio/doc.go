// Package minio stores snapshot blobs in MinIO or any other S3-compatible
// object store through the native MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := octogo.Open(ctx, octogo.WithBlobStore(minioblob.NewStore(client, "models", "octogo/")))
//
// Unlike package s3 it pulls in no AWS SDK, which suits on-premise setups.
package minio
