package samout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Stdout is the destination name for standard output.
const Stdout = "-"

// S3URI represents a parsed S3 URI
type S3URI struct {
	Bucket string
	Key    string
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/object.sam
func ParseS3URI(uri string) (*S3URI, error) {
	if !IsS3URI(uri) {
		return nil, fmt.Errorf("invalid S3 URI: must start with s3://")
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid S3 URI: missing bucket name")
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("invalid S3 URI: missing object key in %s", uri)
	}
	return &S3URI{Bucket: bucket, Key: key}, nil
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// String returns the URI form.
func (u S3URI) String() string {
	return "s3://" + u.Bucket + "/" + u.Key
}

// Uploader is the part of manager.Uploader used for S3 output.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader creates a multipart uploader from the default AWS
// configuration.
func NewS3Uploader(ctx context.Context, region string) (*manager.Uploader, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 3
	}), nil
}

// openDestination opens path for writing: "-" is standard output, s3://
// URIs stream to an upload, anything else is a local file.
func openDestination(ctx context.Context, path string, o *options) (io.WriteCloser, error) {
	switch {
	case path == Stdout:
		return nopCloser{os.Stdout}, nil
	case IsS3URI(path):
		uri, err := ParseS3URI(path)
		if err != nil {
			return nil, err
		}
		up := o.uploader
		if up == nil {
			up, err = NewS3Uploader(ctx, o.region)
			if err != nil {
				return nil, err
			}
		}
		return newS3Stream(ctx, up, uri), nil
	default:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return f, nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// s3Stream pipes written bytes into a single upload that runs until Close.
type s3Stream struct {
	pw   *io.PipeWriter
	uri  *S3URI
	done chan error
}

func newS3Stream(ctx context.Context, up Uploader, uri *S3URI) *s3Stream {
	pr, pw := io.Pipe()
	s := &s3Stream{pw: pw, uri: uri, done: make(chan error, 1)}
	go func() {
		_, err := up.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(uri.Bucket),
			Key:    aws.String(uri.Key),
			Body:   pr,
		})
		// Unblock the writer if the upload gave up early.
		pr.CloseWithError(errUploadStopped(err))
		s.done <- err
	}()
	return s
}

func errUploadStopped(err error) error {
	if err == nil {
		return io.ErrClosedPipe
	}
	return err
}

func (s *s3Stream) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *s3Stream) Close() error {
	s.pw.Close()
	if err := <-s.done; err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.uri, err)
	}
	return nil
}

// abort cancels the upload with err.
func (s *s3Stream) abort(err error) {
	s.pw.CloseWithError(err)
	<-s.done
}

var errAborted = errors.New("output aborted")
