// Package s3store uploads finished partition artifacts to S3-compatible
// object storage and verifies them before the local copy is reclaimed.
//
// The deletion rule is deliberate: a local artifact is deleted if and only
// if a HeadObject probe has independently confirmed the remote copy. A
// failed upload or a failed probe always retains the local file, so local
// disk remains the durable record until remote durability is proven.
package s3store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/zip2parquet/internal/logctx"
)

// DefaultCallTimeout bounds each upload or probe call so a hung network
// connection cannot block a pool worker indefinitely.
const DefaultCallTimeout = 10 * time.Minute

// Config holds the remote storage settings. Credentials follow the
// original deployment's environment contract (DigitalOcean Spaces style
// custom endpoint with static keys).
type Config struct {
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	CallTimeout time.Duration
}

// FromEnv reads the remote storage settings from the environment.
func FromEnv() Config {
	return Config{
		Region:    os.Getenv("S3_REGION"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Bucket:    os.Getenv("S3_BUCKET_NAME"),
	}
}

// Configured reports whether enough settings are present to build a client.
func (c Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// uploadAPI is the subset of the S3 upload manager used by Client.
type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// headAPI is the subset of the S3 client used for existence probes.
type headAPI interface {
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client uploads artifacts to one bucket with verified local deletion.
type Client struct {
	bucket   string
	uploader uploadAPI
	head     headAPI
	timeout  time.Duration
}

// NewClient builds a client from cfg using static credentials and, when
// set, a custom endpoint.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{
		bucket:   cfg.Bucket,
		uploader: manager.NewUploader(s3Client),
		head:     s3Client,
		timeout:  timeout,
	}, nil
}

// newClientForTest wires fake API implementations.
func newClientForTest(bucket string, up uploadAPI, head headAPI) *Client {
	return &Client{bucket: bucket, uploader: up, head: head, timeout: time.Minute}
}

// Bucket returns the destination bucket name.
func (c *Client) Bucket() string { return c.bucket }

// Put transmits the local file to bucket/key.
func (c *Client) Put(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Exists probes bucket/key with HeadObject.
func (c *Client) Exists(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.head.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("head s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// StoreVerified uploads localPath to bucket/key, confirms remote presence
// with an existence probe, and deletes the local file only after the probe
// succeeds. On any failure the local file is left untouched.
func (c *Client) StoreVerified(ctx context.Context, localPath, key string) error {
	log := logctx.FromContext(ctx)

	if err := c.Put(ctx, localPath, key); err != nil {
		return err
	}
	log.Debug().Str("key", key).Msg("upload complete, probing remote copy")

	if err := c.Exists(ctx, key); err != nil {
		return fmt.Errorf("upload unverified, keeping local file: %w", err)
	}

	if err := os.Remove(localPath); err != nil {
		return fmt.Errorf("remove local artifact %s: %w", localPath, err)
	}
	log.Info().Str("key", key).Str("path", localPath).
		Msg("remote copy verified, local artifact deleted")
	return nil
}
