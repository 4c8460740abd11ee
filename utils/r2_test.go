package utils

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestR2Uploader_Upload(t *testing.T) {
	putter := &fakePutter{}
	u := newR2Uploader(putter, "statements", "https://cdn.example.com/")

	url, err := u.Upload(context.Background(), "statements/r1/x.csv", []byte("a,b\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/statements/r1/x.csv", url)
	assert.Equal(t, "statements", aws.ToString(putter.in.Bucket))
	assert.Equal(t, "statements/r1/x.csv", aws.ToString(putter.in.Key))
	assert.Equal(t, "text/csv", aws.ToString(putter.in.ContentType))
	assert.Equal(t, "a,b\n", string(putter.body))
}

func TestR2Uploader_UploadError(t *testing.T) {
	u := newR2Uploader(&fakePutter{err: errors.New("denied")}, "b", "https://cdn")
	_, err := u.Upload(context.Background(), "k", nil, "text/csv")
	assert.ErrorContains(t, err, "denied")
}
