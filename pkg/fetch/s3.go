package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// ObjectGetter is the slice of the S3 API the source needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source downloads s3://bucket/key locations. The client is built on
// first use so runs without S3 sources never load AWS credentials.
type S3Source struct {
	cfg    config.S3Config
	logger *logger.Logger

	once    sync.Once
	client  ObjectGetter
	initErr error
}

// NewS3Source creates an S3 source
func NewS3Source(cfg config.S3Config, log *logger.Logger) *S3Source {
	return &S3Source{cfg: cfg, logger: log}
}

// NewS3SourceWithClient uses an existing client
func NewS3SourceWithClient(client ObjectGetter, log *logger.Logger) *S3Source {
	s := &S3Source{client: client, logger: log}
	s.once.Do(func() {})
	return s
}

// Name returns the name of the source
func (s *S3Source) Name() string {
	return "s3"
}

func (s *S3Source) getClient(ctx context.Context) (ObjectGetter, error) {
	s.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s.cfg.Region))
		}
		if s.cfg.AccessKey != "" && s.cfg.SecretKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.initErr = fmt.Errorf("loading aws config: %w", err)
			return
		}

		var s3Opts []func(*s3.Options)
		if s.cfg.Endpoint != "" {
			s3Opts = append(s3Opts, func(o *s3.Options) {
				o.BaseEndpoint = aws.String(s.cfg.Endpoint)
				o.UsePathStyle = true
			})
		}
		s.client = s3.NewFromConfig(awsCfg, s3Opts...)
		s.logger.Debug("Initialized S3 client (region %s)", s.cfg.Region)
	})
	return s.client, s.initErr
}

// Download streams the object body into w
func (s *S3Source) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	bucket, key, err := ParseBucketURL(location, "s3")
	if err != nil {
		return 0, utils.NewFetchError("invalid s3 location", err, false)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return 0, utils.NewFetchError("s3 client unavailable", err, false)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("s3 get %s", location), err, isTransientS3Err(ctx, err))
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, utils.NewFetchError(fmt.Sprintf("reading s3 object %s", location), err, ctx.Err() == nil)
	}
	return n, nil
}

func isTransientS3Err(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var noKey *s3types.NoSuchKey
	var noBucket *s3types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidBucketName", "InvalidObjectState", "NotFound", "NoSuchKey", "NoSuchBucket":
			return false
		}
		return apiErr.ErrorFault() != smithy.FaultClient
	}
	return true
}

// ParseBucketURL splits scheme://bucket/key
func ParseBucketURL(location, scheme string) (bucket, key string, err error) {
	prefix := scheme + "://"
	if !strings.HasPrefix(strings.ToLower(location), prefix) {
		return "", "", fmt.Errorf("%s does not start with %s", location, prefix)
	}
	rest := location[len(prefix):]
	i := strings.Index(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("%s must look like %sbucket/key", location, prefix)
	}
	return rest[:i], rest[i+1:], nil
}
