package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// ObjectAPI is the subset of the S3 client the store uses
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps the collection as a single object. PutObject replaces the
// object atomically.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	key     string
	decoder Decoder
}

// NewS3Store creates a store over an existing client
func NewS3Store(client ObjectAPI, bucket, key string, decoder Decoder) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key, decoder: decoder}
}

// NewS3StoreFromConfig builds the client from the default AWS credential chain.
func NewS3StoreFromConfig(ctx context.Context, cfg model.S3Storage, decoder Decoder) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoints (MinIO, LocalStack) need path-style addressing.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})

	return NewS3Store(client, cfg.Bucket, cfg.Key, decoder), nil
}

// Save uploads the collection
func (s *S3Store) Save(ctx context.Context, records []model.Record) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(model.EncodeRecords(records)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Load downloads the collection
func (s *S3Store) Load(ctx context.Context) ([]model.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 %s/%s: %w", s.bucket, s.key, harvesterrors.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", s.bucket, s.key, err)
	}
	return s.decoder.Extract(data)
}

// Close is a no-op
func (s *S3Store) Close() error {
	return nil
}
