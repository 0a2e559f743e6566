// Package staging checks raw run uploads in an S3-compatible staging bucket.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"labops/runsweep/pkg/lifecycle"
)

// Config holds the staging bucket settings.
type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional; S3-compatible endpoint such as MinIO
	PathStyle bool

	// Static credentials, optional. The default chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string

	// HTTPClient overrides the SDK transport (tests).
	HTTPClient *http.Client
}

// S3Checker implements gateway.StagingChecker on an S3 bucket.
type S3Checker struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Checker creates a checker from Config.
func NewS3Checker(ctx context.Context, cfg Config) (*S3Checker, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("staging bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})

	return &S3Checker{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: slog.Default().With("component", "staging"),
	}, nil
}

// IsUploaded reports whether any object exists under <prefix>/<run>/ or
// <prefix>/processed/<run>/.
func (s *S3Checker) IsUploaded(ctx context.Context, run string) (bool, error) {
	for _, p := range []string{path.Join(s.prefix, run), path.Join(s.prefix, "processed", run)} {
		key := strings.TrimPrefix(p, "/") + "/"
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(key),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return false, lifecycle.NewGatewayError("staging", "list", run, err)
		}
		if len(out.Contents) > 0 {
			s.logger.Debug("found staged data", "run", run, "prefix", key)
			return true, nil
		}
	}
	return false, nil
}
