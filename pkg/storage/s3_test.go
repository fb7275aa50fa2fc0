package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3Object struct {
	body        []byte
	contentType string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeS3Object
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeS3Object)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(obj.body)),
		ContentType: aws.String(obj.contentType),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = fakeS3Object{
		body:        data,
		contentType: aws.ToString(in.ContentType),
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Adapter(t *testing.T) {
	adapterRoundTrip(t, NewS3(newFakeS3(), "bucket"))
}

func TestS3PrefixAndContentType(t *testing.T) {
	api := newFakeS3()
	a := NewS3(api, "bucket", WithS3Prefix("fusion/"))

	require.NoError(t, a.SetItem(context.Background(), "app", `{}`))

	obj, ok := api.objects["bucket/fusion/app"]
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.contentType)
	assert.Equal(t, "bucket", a.Client().(*S3Client).Bucket())
}

func TestS3WrapsErrors(t *testing.T) {
	api := newFakeS3()
	cause := errors.New("access denied")
	api.failPut = cause

	err := NewS3(api, "bucket").SetItem(context.Background(), "app", "{}")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "s3 put app")
}
