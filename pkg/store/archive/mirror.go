package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// Mirror is an off-host copy of the archive. Get returns a NotFound error
// when the object does not exist.
type Mirror interface {
	Put(ctx context.Context, name string, body []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// S3API is the subset of the S3 client used by the mirror
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Bucket  string
	Prefix  string
	Region  string
	Profile string
}

type s3Mirror struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Mirror builds a mirror from the shared AWS config for the given profile
func NewS3Mirror(ctx context.Context, cfg S3Config) (Mirror, error) {
	if cfg.Bucket == "" {
		return nil, domain.NewInvalidInputError("s3 mirror bucket is required", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return NewS3MirrorWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func NewS3MirrorWithClient(client S3API, bucket, prefix string) Mirror {
	return &s3Mirror{client: client, bucket: bucket, prefix: prefix}
}

func (m *s3Mirror) key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

func (m *s3Mirror) Put(ctx context.Context, name string, body []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, m.key(name), err)
	}
	return nil
}

func (m *s3Mirror) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError(fmt.Sprintf("s3://%s/%s not found", m.bucket, m.key(name)))
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", m.bucket, m.key(name), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", m.bucket, m.key(name), err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
