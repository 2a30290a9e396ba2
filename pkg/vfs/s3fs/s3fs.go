// Package s3fs exposes an S3 bucket (or a prefix within one) as a
// vfs.Backend. Directories follow the usual object-store convention:
// a key ending in "/" is a directory marker, and any key under a prefix
// makes that prefix a directory. The metadata surface is read-only;
// there is no chmod or utimes on an object store.
package s3fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	gopath "path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fusevfs/fusevfs/pkg/retry"
	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// Config represents S3 backend configuration.
type Config struct {
	Bucket         string       `yaml:"bucket"`
	Prefix         string       `yaml:"prefix"`
	Region         string       `yaml:"region"`
	Endpoint       string       `yaml:"endpoint"`
	AccessKey      string       `yaml:"access_key"`
	SecretKey      string       `yaml:"secret_key"`
	ForcePathStyle bool         `yaml:"force_path_style"`
	Retry          retry.Config `yaml:"retry"`
}

// Fs implements vfs.Backend on top of an S3 bucket.
type Fs struct {
	client  *s3.Client
	bucket  string
	prefix  string
	retryer *retry.Retryer
	mu      sync.Mutex
}

// New creates an S3 backend and verifies the bucket is reachable.
func New(ctx context.Context, cfg Config) (*Fs, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backend: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	cfg.Retry.Retryable = isRetryable
	b := &Fs{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		retryer: retry.New(cfg.Retry),
	}

	// Failing to reach the bucket is fatal to the mount.
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	return b, nil
}

func isRetryable(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	return !errors.As(err, &notFound) && !errors.As(err, &noKey)
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noKey)
}

// key maps a mount path onto an object key under the configured prefix.
func (b *Fs) key(path string) string {
	p := strings.Trim(path, "/")
	switch {
	case b.prefix == "":
		return p
	case p == "":
		return b.prefix
	default:
		return b.prefix + "/" + p
	}
}

func (b *Fs) dirKey(path string) string {
	if k := b.key(path); k != "" {
		return k + "/"
	}
	return ""
}

func (b *Fs) Exists(path string) bool {
	_, err := b.GetInfo(path)
	return err == nil
}

func (b *Fs) GetInfo(path string) (*vfs.Info, error) {
	if b.key(path) == "" {
		return &vfs.Info{Kind: vfs.KindDirectory}, nil
	}

	ctx := context.Background()
	var head *s3.HeadObjectOutput
	err := b.retryer.Do(ctx, func(ctx context.Context) error {
		var err error
		head, err = b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		})
		return err
	})
	if err == nil {
		return &vfs.Info{
			Kind:     vfs.KindFile,
			Size:     aws.ToInt64(head.ContentLength),
			Modified: aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("getinfo %s: %w", path, err)
	}

	// Not an object; a key under the prefix makes it a directory.
	ok, err := b.hasChildren(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("getinfo %s: %w", path, err)
	}
	if ok {
		return &vfs.Info{Kind: vfs.KindDirectory}, nil
	}
	return nil, fmt.Errorf("getinfo %s: %w", path, vfs.ErrNotFound)
}

func (b *Fs) hasChildren(ctx context.Context, path string) (bool, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.dirKey(path)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return aws.ToInt32(out.KeyCount) > 0, nil
}

func (b *Fs) List(path string) ([]string, error) {
	info, err := b.GetInfo(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("listdir %s: %w", path, vfs.ErrDirectoryExpected)
	}

	prefix := b.dirKey(path)
	var names []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listdir %s: %w", path, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// Skip the directory's own marker object.
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// object is a fully buffered read handle. The adapter reads small ranges
// per call, so one ranged download per open would cost more round trips
// than buffering the object.
type object struct {
	*bytes.Reader
}

func (object) Close() error { return nil }

func (b *Fs) OpenRead(path string) (io.ReadSeekCloser, error) {
	info, err := b.GetInfo(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("openbin %s: %w", path, vfs.ErrFileExpected)
	}

	var data []byte
	err = b.retryer.Do(context.Background(), func(ctx context.Context) error {
		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openbin %s: %w", path, err)
	}
	return object{bytes.NewReader(data)}, nil
}

// writer buffers writes and uploads the object on Close.
type writer struct {
	b   *Fs
	key string
	buf bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writer) Close() error {
	return w.b.put(w.key, w.buf.Bytes())
}

func (b *Fs) OpenWrite(path string) (io.WriteCloser, error) {
	return &writer{b: b, key: b.key(path)}, nil
}

func (b *Fs) put(key string, data []byte) error {
	_, err := b.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (b *Fs) Create(path string, wipe bool) error {
	if info, err := b.GetInfo(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("create %s: %w", path, vfs.ErrFileExpected)
		}
		if !wipe {
			return nil
		}
	}
	return b.put(b.key(path), nil)
}

func (b *Fs) Remove(path string) error {
	info, err := b.GetInfo(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("remove %s: %w", path, vfs.ErrFileExpected)
	}
	return b.delete(b.key(path))
}

func (b *Fs) delete(key string) error {
	_, err := b.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *Fs) RemoveDir(path string) error {
	if b.key(path) == "" {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrRemoveRoot)
	}
	info, err := b.GetInfo(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrDirectoryExpected)
	}
	names, err := b.List(path)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrNotEmpty)
	}
	return b.delete(b.dirKey(path))
}

func (b *Fs) MakeDir(path string) error {
	if b.Exists(path) {
		return fmt.Errorf("makedir %s: %w", path, vfs.ErrExists)
	}
	if parent := gopath.Dir("/" + strings.Trim(path, "/")); parent != "/" && !b.Exists(parent) {
		return fmt.Errorf("makedir %s: parent: %w", path, vfs.ErrNotFound)
	}
	return b.put(b.dirKey(path), nil)
}

func (b *Fs) Move(src, dst string, overwrite bool) error {
	info, err := b.GetInfo(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("move %s: directories: %w", src, vfs.ErrNotSupported)
	}
	if dstInfo, err := b.GetInfo(dst); err == nil {
		if !overwrite {
			return fmt.Errorf("move %s -> %s: %w", src, dst, vfs.ErrDestinationExists)
		}
		if dstInfo.IsDir() {
			return fmt.Errorf("move %s -> %s: %w", src, dst, vfs.ErrFileExpected)
		}
	}

	_, err = b.client.CopyObject(context.Background(), &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(b.key(dst)),
		CopySource: aws.String(b.bucket + "/" + b.key(src)),
	})
	if err != nil {
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	return b.delete(b.key(src))
}

func (b *Fs) SetInfo(path string, update vfs.InfoUpdate) error {
	return fmt.Errorf("setinfo %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) SetTimes(path string, atime, mtime time.Time) error {
	return fmt.Errorf("settimes %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) Lock() (release func()) {
	b.mu.Lock()
	return b.mu.Unlock
}

func (b *Fs) Close() error { return nil }
