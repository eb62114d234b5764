// Package upload pushes rendered videos to an S3-compatible object store,
// either AWS S3 or DigitalOcean Spaces.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config holds uploader configuration
type Config struct {
	Bucket    string
	AccessKey string
	SecretKey string

	// Region defaults to nyc3 for Spaces and us-east-1 for AWS.
	Region string

	// Endpoint points at an S3-compatible service such as DigitalOcean
	// Spaces. Empty means AWS S3.
	Endpoint string
}

// s3API is the subset of the S3 client the uploader needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader implements pipeline.Uploader on any S3-compatible object store.
type Uploader struct {
	client   s3API
	bucket   string
	endpoint string
	now      func() time.Time
}

// New creates an uploader from config.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		if cfg.Endpoint != "" {
			region = "nyc3"
		} else {
			region = "us-east-1"
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		now:      time.Now,
	}, nil
}

// Upload puts the rendered video into the bucket with a public-read ACL and
// returns its public URL. Keys carry a timestamp prefix so repeated runs of
// the same job never collide.
func (u *Uploader) Upload(ctx context.Context, localPath, jobID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("videos/%s_video_%s.mp4", u.now().UTC().Format("20060102_150405"), jobID)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ACL:         types.ObjectCannedACLPublicRead,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return u.publicURL(key), nil
}

// publicURL follows the provider's convention: Spaces endpoints already
// carry the bucket host, AWS uses the virtual-hosted bucket URL.
func (u *Uploader) publicURL(key string) string {
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s", u.endpoint, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}
