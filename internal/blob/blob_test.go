package blob

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/core"
)

func csvBlob(name, body string) core.Blob {
	return core.Blob{Name: name, ContentType: "text/csv", Data: []byte(body)}
}

func TestDirSink_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := DirSink{Dir: dir}

	loc, err := sink.Put(context.Background(), csvBlob("members.csv", "Email\na@example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "members.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "Email\na@example.com\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestDirSink_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	loc, err := DirSink{Dir: dir}.Put(context.Background(), csvBlob("../../evil.csv", "x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evil.csv"), loc)
}

func TestDirSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DirSink{Dir: t.TempDir()}.Put(ctx, csvBlob("a.csv", "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPutAll_StopsAtFirstFailure(t *testing.T) {
	sink := &fakeSink{failOn: "b.csv"}
	locs, err := PutAll(context.Background(), sink, []core.Blob{
		csvBlob("a.csv", "1"), csvBlob("b.csv", "2"), csvBlob("c.csv", "3"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store b.csv")
	assert.Equal(t, []string{"mem://a.csv"}, locs)
	assert.Equal(t, []string{"a.csv", "b.csv"}, sink.seen)
}

type fakeSink struct {
	failOn string
	seen   []string
}

func (f *fakeSink) Put(_ context.Context, b core.Blob) (string, error) {
	f.seen = append(f.seen, b.Name)
	if b.Name == f.failOn {
		return "", errors.New("disk full")
	}
	return "mem://" + b.Name, nil
}

func TestZip(t *testing.T) {
	modified := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	archive, err := Zip("backup.zip", []core.Blob{
		csvBlob("backup_members.csv", "m"),
		csvBlob("backup_payments.csv", "p"),
	}, modified)
	require.NoError(t, err)
	assert.Equal(t, "backup.zip", archive.Name)
	assert.Equal(t, "application/zip", archive.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "backup_members.csv", zr.File[0].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "p", string(body))
}

// =============================================================================
// S3 Tests
// =============================================================================

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Put(t *testing.T) {
	client := &fakeS3{}
	sink := &S3Sink{client: client, bucket: "gym-exports", prefix: "nightly/"}

	loc, err := sink.Put(context.Background(), core.Blob{
		Name:        "backup.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("PK"),
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://gym-exports/nightly/backup.xlsx", loc)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "gym-exports", aws.ToString(in.Bucket))
	assert.Equal(t, "nightly/backup.xlsx", aws.ToString(in.Key))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", aws.ToString(in.ContentType))
	assert.Equal(t, "PK", client.bodies[0])
}

func TestS3Sink_PutFailure(t *testing.T) {
	sink := &S3Sink{client: &fakeS3{err: errors.New("AccessDenied")}, bucket: "b"}
	_, err := sink.Put(context.Background(), csvBlob("a.csv", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 put failed")
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
