package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/filex"
)

// objectAPI is the part of *s3.Client used here.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3 stores containers in an S3-compatible bucket (AWS, MinIO). Fetched
// containers are cached in cacheDir and reused while present.
type S3 struct {
	api      objectAPI
	bucket   string
	cacheDir string
	now      func() time.Time
}

func NewS3(ctx context.Context, cfg S3Config, cacheDir string) (*S3, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{api: api, bucket: cfg.Bucket, cacheDir: cacheDir, now: time.Now}, nil
}

func (s *S3) objectKey(containerPath string) string {
	d := s.now().UTC()
	return fmt.Sprintf("containers/%d/%d/%d/%s", d.Year(), d.Month(), d.Day(), filepath.Base(containerPath))
}

// Put uploads the container and removes the local copy.
func (s *S3) Put(ctx context.Context, containerPath string) (string, error) {
	f, err := os.Open(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}

	key := s.objectKey(containerPath)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object %s: %w", common.ErrIO, key, err)
	}

	_ = f.Close()
	_ = os.Remove(containerPath)
	return key, nil
}

func (s *S3) Fetch(ctx context.Context, key string) (string, error) {
	local := filepath.Join(s.cacheDir, path.Base(key))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", fmt.Errorf("%w: object %s", common.ErrorNotFound, key)
		}
		return "", fmt.Errorf("%w: get object %s: %w", common.ErrIO, key, err)
	}
	defer out.Body.Close()

	err = filex.WriteAtomic(local, 0o600, func(f *os.File) error {
		_, err := io.Copy(f, out.Body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return local, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object %s: %w", common.ErrIO, key, err)
	}
	_ = os.Remove(filepath.Join(s.cacheDir, path.Base(key)))
	return nil
}
