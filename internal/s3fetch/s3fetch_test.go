package s3fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	got     []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.got = append(f.got, k)
	body, ok := f.objects[k]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseURI(t *testing.T) {
	testCases := []struct {
		uri     string
		bucket  string
		key     string
		wantErr string
	}{
		{uri: "s3://bucket/data/states.csv", bucket: "bucket", key: "data/states.csv"},
		{uri: "s3://bucket/k", bucket: "bucket", key: "k"},
		{uri: "https://bucket/k", wantErr: "must start with s3://"},
		{uri: "s3:///k", wantErr: "missing bucket name"},
		{uri: "s3://bucket", wantErr: "missing object key"},
		{uri: "s3://bucket/", wantErr: "missing object key"},
	}

	for _, tc := range testCases {
		t.Run(tc.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tc.uri)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.bucket, bucket)
			assert.Equal(t, tc.key, key)
		})
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	api := &fakeS3{objects: map[string]string{"b/data/states.csv": "state,pop\nA,1\n"}}
	c := NewClientWithAPI(api).WithTempDir(dir)

	path, err := c.Download(context.Background(), "s3://b/data/states.csv")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".csv", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "state,pop\nA,1\n", string(data))
	assert.Equal(t, []string{"b/data/states.csv"}, api.got)
}

func TestDownload_Errors(t *testing.T) {
	dir := t.TempDir()
	c := NewClientWithAPI(&fakeS3{}).WithTempDir(dir)

	_, err := c.Download(context.Background(), "s3://b/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchKey")

	_, err = c.Download(context.Background(), "not-a-uri")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads leave no files")
}
