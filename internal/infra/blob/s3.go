// Package blob stores narration audio and avatars in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("blob")

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO and other S3-compatible stores
	PathStyle       bool
	AccessKeyID     string // optional, default credential chain otherwise
	SecretAccessKey string
	PublicBaseURL   string // optional, prefix for returned object URLs
	PublicRead      bool
}

type S3 struct {
	client *s3.Client
	cfg    Config
}

func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return newS3(awsCfg, cfg), nil
}

func newS3(awsCfg aws.Config, cfg Config, optFns ...func(*s3.Options)) *S3 {
	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}}, optFns...)...)
	return &S3{client: client, cfg: cfg}
}

// Put uploads body under key, overwriting any previous object, and returns
// the object's public URL.
func (s *S3) Put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "Blob.S3.Put")
	defer span.End()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}
	if s.cfg.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		span.RecordError(err)
		return "", errors.Wrapf(err, "put %s", key)
	}
	return s.PublicURL(key), nil
}

// Delete removes key. Deleting a missing object succeeds.
func (s *S3) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Blob.S3.Delete")
	defer span.End()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

// PublicURL is where a public object can be downloaded from.
func (s *S3) PublicURL(key string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
