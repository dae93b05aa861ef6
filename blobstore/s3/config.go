package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewFromConfig builds a Store from the default AWS credential chain.
func NewFromConfig(ctx context.Context, bucket, rootPrefix string, optFns ...func(*config.LoadOptions) error) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

// NewDDBCommitStoreFromConfig builds a DDBCommitStore from the default AWS
// credential chain. Pointers are namespaced by "s3://bucket/prefix".
func NewDDBCommitStoreFromConfig(ctx context.Context, bucket, rootPrefix, tableName string, optFns ...func(*config.LoadOptions) error) (*DDBCommitStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	data := NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix)
	baseURI := "s3://" + bucket + "/" + strings.Trim(rootPrefix, "/")
	return NewDDBCommitStore(data, dynamodb.NewFromConfig(cfg), tableName, baseURI), nil
}
