package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"biblomnemon/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBucket struct {
	objects     map[string][]byte
	contentType string
	putErr      error
}

func newMemBucket() *memBucket {
	return &memBucket{objects: make(map[string][]byte)}
}

func (b *memBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.putErr != nil {
		return nil, b.putErr
	}
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = raw
	b.contentType = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (b *memBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	raw, ok := b.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(raw))}, nil
}

func TestObjectStorage_UploadThenDownload(t *testing.T) {
	bucket := newMemBucket()
	src := sampleDataset()
	up := NewObjectStorage(bucket, "library", "backup.json", src, logging.Nop())
	up.now = func() time.Time { return updated }
	ctx := context.Background()

	rep, err := up.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{
		Target: TargetS3, Location: "s3://library/backup.json",
		Books: 1, Categories: 1, Relations: 1, Activities: 1,
	}, rep)
	assert.Equal(t, "application/json", bucket.contentType)

	dst := &memDataset{}
	rep, err = NewObjectStorage(bucket, "library", "backup.json", dst, logging.Nop()).Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Activities)

	require.NotNil(t, dst.restored)
	assert.Equal(t, SnapshotVersion, dst.restored.Version)
	assert.True(t, updated.Equal(dst.restored.ExportedAt))
	assert.Equal(t, "Dune", dst.restored.Books[0].Title)
	assert.Equal(t, "Frank Herbert", dst.restored.Books[0].Authors[0].Name)
	assert.Equal(t, src.relations, dst.restored.Relations)
	assert.Equal(t, "b1", *dst.restored.Activities[0].BookID)
	assert.True(t, created.Equal(dst.restored.Activities[0].Started))
}

func TestObjectStorage_Download_Missing(t *testing.T) {
	o := NewObjectStorage(newMemBucket(), "library", "backup.json", &memDataset{}, logging.Nop())
	_, err := o.Download(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestObjectStorage_Download_UnknownVersion(t *testing.T) {
	bucket := newMemBucket()
	raw, err := json.Marshal(Snapshot{Version: SnapshotVersion + 1})
	require.NoError(t, err)
	bucket.objects["library/backup.json"] = raw
	dst := &memDataset{}

	_, err = NewObjectStorage(bucket, "library", "backup.json", dst, logging.Nop()).Download(context.Background())
	assert.ErrorContains(t, err, "unsupported snapshot version")
	assert.Nil(t, dst.restored)
}

func TestObjectStorage_Upload_PutFails(t *testing.T) {
	bucket := newMemBucket()
	bucket.putErr = errors.New("access denied")

	_, err := NewObjectStorage(bucket, "library", "backup.json", sampleDataset(), logging.Nop()).Upload(context.Background())
	assert.ErrorContains(t, err, "put snapshot")
}
