package mediastore_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/medleyhq/medley/pkg/mediastore"
)

// fakeS3 is an in-memory S3Client.
type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

type notFoundErr struct{ code string }

func (e *notFoundErr) Error() string                 { return e.code }
func (e *notFoundErr) ErrorCode() string             { return e.code }
func (e *notFoundErr) ErrorMessage() string          { return e.code }
func (e *notFoundErr) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var _ smithy.APIError = (*notFoundErr)(nil)

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &notFoundErr{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &notFoundErr{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	st := mediastore.NewS3(client, "media", "generated")

	url, err := st.Save(ctx, "art-1", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "s3://media/generated/art-1.png" {
		t.Fatalf("locator = %q", url)
	}
	if ct := client.types["generated/art-1.png"]; ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}

	r, err := st.Open(ctx, "art-1.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "png-bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestS3OpenMissing(t *testing.T) {
	st := mediastore.NewS3(newFakeS3(), "media", "")
	_, err := st.Open(context.Background(), "nope.png")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestS3ExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	st := mediastore.NewS3(newFakeS3(), "media", "")

	st.Save(ctx, "v", "video/mp4", []byte("m"))
	ok, err := st.Exists(ctx, "v.mp4")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := st.Delete(ctx, "v.mp4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = st.Exists(ctx, "v.mp4")
	if ok {
		t.Fatal("object survives delete")
	}
	// Idempotent.
	if err := st.Delete(ctx, "v.mp4"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
