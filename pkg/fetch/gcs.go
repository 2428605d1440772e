package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// ObjectOpener opens a Cloud Storage object for reading
type ObjectOpener interface {
	OpenObject(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// storageOpener adapts a storage.Client to ObjectOpener
type storageOpener struct {
	client *storage.Client
}

func (o storageOpener) OpenObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := o.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GCSSource downloads gs://bucket/object locations
type GCSSource struct {
	cfg    config.GCSConfig
	logger *logger.Logger

	once    sync.Once
	opener  ObjectOpener
	client  *storage.Client
	initErr error
}

// NewGCSSource creates a Cloud Storage source. The client is created lazily.
func NewGCSSource(cfg config.GCSConfig, log *logger.Logger) *GCSSource {
	return &GCSSource{cfg: cfg, logger: log}
}

// NewGCSSourceWithOpener uses an existing opener
func NewGCSSourceWithOpener(opener ObjectOpener, log *logger.Logger) *GCSSource {
	s := &GCSSource{opener: opener, logger: log}
	s.once.Do(func() {})
	return s
}

// Name returns the name of the source
func (s *GCSSource) Name() string {
	return "gs"
}

func (s *GCSSource) getOpener(ctx context.Context) (ObjectOpener, error) {
	s.once.Do(func() {
		var opts []option.ClientOption
		if s.cfg.Anonymous {
			opts = append(opts, option.WithoutAuthentication())
		}
		// the client outlives the first case's context
		client, err := storage.NewClient(context.WithoutCancel(ctx), opts...)
		if err != nil {
			s.initErr = fmt.Errorf("creating storage client: %w", err)
			return
		}
		s.client = client
		s.opener = storageOpener{client: client}
		s.logger.Debug("Initialized Cloud Storage client (anonymous=%v)", s.cfg.Anonymous)
	})
	return s.opener, s.initErr
}

// Download streams the object into w
func (s *GCSSource) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	bucket, object, err := ParseBucketURL(location, "gs")
	if err != nil {
		return 0, utils.NewFetchError("invalid gs location", err, false)
	}

	opener, err := s.getOpener(ctx)
	if err != nil {
		return 0, utils.NewFetchError("cloud storage client unavailable", err, false)
	}

	r, err := opener.OpenObject(ctx, bucket, object)
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("gcs open %s", location), err, isTransientGCSErr(ctx, err))
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, utils.NewFetchError(fmt.Sprintf("reading gcs object %s", location), err, isTransientGCSErr(ctx, err))
	}
	return n, nil
}

// Close releases the client if one was created
func (s *GCSSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func isTransientGCSErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return isTransientStatus(gerr.Code) || gerr.Code < http.StatusBadRequest
	}
	return true
}
