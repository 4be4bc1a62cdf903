// Package media stores uploaded files in an S3-compatible bucket.
package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/coursecloud/internal/common"
	sc "github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	now = time.Now
)

// File is an upload waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores files and returns where they ended up.
type Uploader interface {
	Upload(ctx context.Context, f *File) (*models.Media, error)
}

// S3Uploader is an Uploader writing to a single bucket.
type S3Uploader struct {
	config *sc.Config

	mu     sync.Mutex
	client *s3.Client
}

func NewS3Uploader(cfg *sc.Config) *S3Uploader {
	return &S3Uploader{config: cfg}
}

// StorageKey returns a fresh object key under media/yyyy/mm/dd, keeping the
// lower-cased extension of name.
func StorageKey(name string) string {
	d := now()
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("media/%04d/%02d/%02d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// getClient builds the S3 client on first use. A failed build is not
// cached, the next upload tries again.
func (u *S3Uploader) getClient(ctx context.Context) (*s3.Client, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.client != nil {
		return u.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(u.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.config.S3RootUser,
			u.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	u.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(u.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return u.client, nil
}

// ObjectURL returns the public URL of key in the configured bucket.
func (u *S3Uploader) ObjectURL(key string) string {
	return strings.TrimRight(u.config.S3BaseEndpoint, "/") + "/" + u.config.S3Bucket + "/" + key
}

// Upload puts f into the bucket. Failures are reported as
// common.ErrStorageUpload with the cause attached.
func (u *S3Uploader) Upload(ctx context.Context, f *File) (*models.Media, error) {
	client, err := u.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUpload, err)
	}

	bucket := u.config.S3Bucket
	key := StorageKey(f.Name)

	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   f.Body,
	}
	if f.ContentType != "" {
		in.ContentType = aws.String(f.ContentType)
	}
	if f.Size > 0 {
		in.ContentLength = aws.Int64(f.Size)
	}

	if _, err := putObject(client, ctx, in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUpload, err)
	}

	return &models.Media{URL: u.ObjectURL(key), PublicID: key}, nil
}
