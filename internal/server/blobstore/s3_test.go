package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
	putErr  error
	getErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*in.Bucket+"/"+*in.Key] = b
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	api := newFakeS3()
	s := &S3{
		api:      api,
		bucket:   "securelink",
		cacheDir: t.TempDir(),
		now:      func() time.Time { return time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC) },
	}
	return s, api
}

func TestS3_PutFetchDelete(t *testing.T) {
	ctx := context.Background()
	s, api := newTestS3(t)

	src := filepath.Join(t.TempDir(), "abc-report.pdf.enc")
	require.NoError(t, os.WriteFile(src, []byte("sealed bytes"), 0o600))

	key, err := s.Put(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "containers/2026/7/4/abc-report.pdf.enc", key)
	assert.Equal(t, []byte("sealed bytes"), api.objects["securelink/"+key])

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "local container removed after upload")

	local, err := s.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.cacheDir, "abc-report.pdf.enc"), local)
	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "sealed bytes", string(got))

	_, err = s.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, api.gets, "second fetch served from cache")

	require.NoError(t, s.Delete(ctx, key))
	assert.Empty(t, api.objects)
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))
}

func TestS3_FetchMissing(t *testing.T) {
	s, _ := newTestS3(t)
	_, err := s.Fetch(context.Background(), "containers/2026/1/1/none.enc")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3_FetchError(t *testing.T) {
	s, api := newTestS3(t)
	api.getErr = errors.New("timeout")

	_, err := s.Fetch(context.Background(), "containers/x.enc")
	assert.ErrorIs(t, err, common.ErrIO)
}

func TestS3_PutErrorKeepsLocal(t *testing.T) {
	s, api := newTestS3(t)
	api.putErr = errors.New("denied")

	src := filepath.Join(t.TempDir(), "a.enc")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))

	_, err := s.Put(context.Background(), src)
	require.ErrorIs(t, err, common.ErrIO)

	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestNewS3_WiresConfig(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ak", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}

	s, err := NewS3(context.Background(), S3Config{
		AccessKey: "ak", SecretKey: "sk", Bucket: "b", Region: "eu-west-1", BaseEndpoint: "http://minio:9000",
	}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "b", s.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3(context.Background(), S3Config{}, t.TempDir())
	assert.ErrorContains(t, err, "no creds")
}
