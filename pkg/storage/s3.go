package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Client.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Client stores each key as an object in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	adapter := storage.NewS3(s3.NewFromConfig(cfg), "my-bucket", storage.WithS3Prefix("fusion/"))
type S3Client struct {
	api         S3API
	bucket      string
	prefix      string
	contentType string
}

// S3Option configures an S3Client.
type S3Option func(*S3Client)

// WithS3Prefix sets the object key prefix. Default: "".
func WithS3Prefix(prefix string) S3Option {
	return func(c *S3Client) {
		c.prefix = prefix
	}
}

// WithS3ContentType sets the Content-Type stored with each object.
// Default: "application/json".
func WithS3ContentType(ct string) S3Option {
	return func(c *S3Client) {
		c.contentType = ct
	}
}

// NewS3Client creates an S3Client for bucket.
func NewS3Client(api S3API, bucket string, opts ...S3Option) *S3Client {
	c := &S3Client{
		api:         api,
		bucket:      bucket,
		contentType: "application/json",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewS3 returns an Adapter backed by an S3 bucket.
func NewS3(api S3API, bucket string, opts ...S3Option) *Async {
	return NewAsync(NewS3Client(api, bucket, opts...))
}

func (c *S3Client) objectKey(key string) string {
	return c.prefix + key
}

// Get downloads the object for key.
func (c *S3Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return data, true, nil
}

// Put uploads data as the object for key.
func (c *S3Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(c.contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// Delete removes the object for key. S3 reports success for missing keys.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// Bucket returns the target bucket.
func (c *S3Client) Bucket() string {
	return c.bucket
}
