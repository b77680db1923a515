// COPY sources and targets: local paths, file:// and http(s):// sources, and s3://
// objects in either direction.
package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local"
)

var schemePrefixes = []urlScheme{schemeS3, schemeHTTPS, schemeHTTP, schemeFile}

// detectScheme matches the scheme case-insensitively; anything else is a local path.
func detectScheme(path string) urlScheme {
	lower := strings.ToLower(path)
	for _, scheme := range schemePrefixes {
		if strings.HasPrefix(lower, string(scheme)+"://") {
			return scheme
		}
	}
	return schemeLocal
}

// stripScheme returns path without its scheme:// prefix.
func stripScheme(path string, scheme urlScheme) string {
	if scheme == schemeLocal {
		return path
	}
	return path[len(scheme)+len("://"):]
}

// httpClient fetches COPY FROM http(s):// sources. Exports can be large.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

var errReadOnlySource = errors.New("HTTP/HTTPS does not support writing")

func openRemoteReader(ctx context.Context, path string, cfg *S3Config) (io.ReadCloser, error) {
	scheme := detectScheme(path)
	switch scheme {
	case schemeLocal, schemeFile:
		return osOpen(stripScheme(path, scheme))
	case schemeHTTP, schemeHTTPS:
		return fetchHTTP(ctx, path)
	case schemeS3:
		return openS3Reader(ctx, path, cfg)
	}
	return nil, fmt.Errorf("unsupported URL scheme: %s", path)
}

// openRemoteWriter opens a COPY TO target. An s3:// object appears only on Close.
func openRemoteWriter(ctx context.Context, path string, cfg *S3Config) (io.WriteCloser, error) {
	scheme := detectScheme(path)
	switch scheme {
	case schemeLocal, schemeFile:
		return osCreate(stripScheme(path, scheme))
	case schemeHTTP, schemeHTTPS:
		return nil, errReadOnlySource
	case schemeS3:
		return openS3Writer(ctx, path, cfg)
	}
	return nil, fmt.Errorf("unsupported URL scheme: %s", path)
}

func fetchHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// parseS3URL splits s3://bucket/key. Both parts are required.
func parseS3URL(url string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(stripScheme(url, schemeS3), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, key, nil
}

// s3Object is a parsed s3:// location with a client configured for it.
type s3Object struct {
	client *s3.Client
	bucket string
	key    string
}

func resolveS3Object(ctx context.Context, url string, cfg *S3Config) (*s3Object, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &S3Config{}
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and other S3-compatible stores address buckets by path
			o.UsePathStyle = true
		}
	})
	return &s3Object{client: client, bucket: bucket, key: key}, nil
}

func openS3Reader(ctx context.Context, url string, cfg *S3Config) (io.ReadCloser, error) {
	obj, err := resolveS3Object(ctx, url, cfg)
	if err != nil {
		return nil, err
	}
	out, err := obj.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.bucket),
		Key:    aws.String(obj.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", obj.bucket, obj.key, err)
	}
	return out.Body, nil
}

// s3Writer buffers a COPY TO export and uploads it in one PutObject on Close.
type s3Writer struct {
	ctx    context.Context
	obj    *s3Object
	buffer bytes.Buffer
	closed bool
}

func openS3Writer(ctx context.Context, url string, cfg *S3Config) (io.WriteCloser, error) {
	obj, err := resolveS3Object(ctx, url, cfg)
	if err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, obj: obj}, nil
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("s3://%s/%s: write after close", w.obj.bucket, w.obj.key)
	}
	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.obj.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.obj.bucket),
		Key:    aws.String(w.obj.key),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	}); err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.obj.bucket, w.obj.key, err)
	}
	return nil
}

// swapped in tests
var (
	osOpen   = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	osCreate = func(path string) (io.WriteCloser, error) { return os.Create(path) }
)
