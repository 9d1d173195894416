package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	appconfig "app/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/rs/zerolog"
)

const signExpiry = 15 * time.Minute

// S3BlobStore implements BlobStore on any S3-compatible endpoint.
type S3BlobStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	logger        zerolog.Logger
}

// NewS3Client builds an S3 client from app config, using path-style access
// so S3-compatible providers work too.
func NewS3Client(ctx context.Context, cfg *appconfig.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	}), nil
}

// NewS3BlobStore wraps an S3 client as a BlobStore for the given bucket.
func NewS3BlobStore(client *s3.Client, bucket string, logger zerolog.Logger) *S3BlobStore {
	return &S3BlobStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		logger:        logger.With().Str("component", "S3BlobStore").Logger(),
	}
}

func (s *S3BlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to put object")
		return fmt.Errorf("putting object %s: %w", key, err)
	}
	return nil
}

func (s *S3BlobStore) GetMeta(ctx context.Context, key string) (*BlobMeta, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting metadata for %s: %w", key, err)
	}
	meta := &BlobMeta{
		Size: aws.ToInt64(head.ContentLength),
		Etag: strings.Trim(aws.ToString(head.ETag), `"`),
	}
	if head.LastModified != nil {
		meta.LastModified = *head.LastModified
	}
	return meta, nil
}

func (s *S3BlobStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	toDelete := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		toDelete = append(toDelete, types.ObjectIdentifier{Key: aws.String(key)})
	}
	if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: toDelete, Quiet: aws.Bool(true)},
	}); err != nil {
		s.logger.Error().Err(err).Int("count", len(keys)).Msg("Failed to delete objects")
		return fmt.Errorf("deleting %d objects: %w", len(keys), err)
	}
	return nil
}

func (s *S3BlobStore) SignDownloadLink(ctx context.Context, key, filename string, inline bool) (string, error) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if filename != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("%s; filename=%q", disposition, filename))
	}
	resp, err := s.presignClient.PresignGetObject(ctx, input, s3.WithPresignExpires(signExpiry))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
