package export

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination uploads exports to an S3 bucket under an optional key
// prefix. Credentials come from the standard AWS credential chain.
type S3Destination struct {
	name     string
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

var _ Destination = (*S3Destination)(nil)

// NewS3Destination creates an S3 destination. region overrides the
// region from the AWS config chain when non-empty.
func NewS3Destination(ctx context.Context, name, bucket, prefix, region string) (*S3Destination, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Destination{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

func (d *S3Destination) Name() string {
	return d.name
}

func (d *S3Destination) Put(ctx context.Context, relPath string, r io.Reader) error {
	key := relPath
	if d.prefix != "" {
		key = path.Join(d.prefix, relPath)
	}

	_, err := d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}
