package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestNewObjectStoreValidation(t *testing.T) {
	_, err := NewObjectStore(context.Background(), Config{Bucket: "b", PublicBaseURL: "https://cdn"})
	assert.Error(t, err)
	_, err = NewObjectStore(context.Background(), Config{Endpoint: "s3.example", PublicBaseURL: "https://cdn"})
	assert.Error(t, err)
	_, err = NewObjectStore(context.Background(), Config{Endpoint: "s3.example", Bucket: "b"})
	assert.Error(t, err)

	store, err := NewObjectStore(context.Background(), Config{
		Endpoint:      "s3.example",
		Bucket:        "receipts",
		PublicBaseURL: "https://cdn.example/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a/b.pdf", store.PublicURL("/a/b.pdf"))
}

func TestPutObject(t *testing.T) {
	fake := &fakePutter{}
	store := &ObjectStore{bucket: "receipts", publicBase: "https://cdn.example", storageClass: "standard", client: fake}

	url, err := store.PutObject(context.Background(), "/receipts/r1/ORD000001.pdf", []byte("%PDF"), "application/pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/receipts/r1/ORD000001.pdf", url)
	assert.Equal(t, "receipts/r1/ORD000001.pdf", aws.ToString(fake.input.Key))
	assert.Equal(t, "receipts", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, types.StorageClass("STANDARD"), fake.input.StorageClass)
	assert.Equal(t, []byte("%PDF"), fake.body)

	fake.err = errors.New("denied")
	_, err = store.PutObject(context.Background(), "k", nil, "", "")
	assert.Error(t, err)
}
