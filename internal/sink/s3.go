package sink

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const s3CallTimeout = 30 * time.Second

// S3Config describes an S3-compatible bucket. Endpoint and credentials come
// from the environment, never from persisted configuration.
type S3Config struct {
	Bucket    string
	Proto     string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Sink writes documents to an S3-compatible bucket using path-style
// addressing, matching self-hosted deployments (rook/ceph, minio).
type S3Sink struct {
	client *minio.Client
	bucket string
}

func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object storage requires a bucket name")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("object storage configured but BUCKET_HOST is not set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.Proto != "http",
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "configure bucket endpoint %s", cfg.Endpoint)
	}
	return &S3Sink{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Read(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s3CallTimeout)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, errors.Wrapf(err, "get object %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "read object %s", key)
	}
	return data, true, nil
}

func (s *S3Sink) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s3CallTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return errors.Wrapf(err, "put object %s", key)
}
