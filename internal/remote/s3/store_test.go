package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puzzlepals/internal/remote"
)

// fakeClient keeps objects in memory, keyed by bucket/key
type fakeClient struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	bucketErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[id] = body
	f.contentType[id] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestStoreUpsertFindDelete(t *testing.T) {
	client := newFakeClient()
	store := newWithClient(client, "pals", "backups")
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, remote.SnapshotCollection, "acc-1", []byte(`{"v":1}`)))
	assert.Contains(t, client.objects, "pals/backups/snapshots/acc-1.json")
	assert.Equal(t, "application/json", client.contentType["pals/backups/snapshots/acc-1.json"])

	doc, err := store.Find(ctx, remote.SnapshotCollection, "acc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(doc))

	require.NoError(t, store.Delete(ctx, remote.SnapshotCollection, "acc-1"))
	_, err = store.Find(ctx, remote.SnapshotCollection, "acc-1")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestStoreObjectKeyWithoutPrefix(t *testing.T) {
	store := newWithClient(newFakeClient(), "pals", "")
	assert.Equal(t, "snapshots/acc-1.json", store.objectKey("snapshots", "acc-1"))
}

func TestStorePing(t *testing.T) {
	client := newFakeClient()
	store := newWithClient(client, "pals", "")
	assert.NoError(t, store.Ping(context.Background()))

	client.bucketErr = errors.New("forbidden")
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
