package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"arrivals-go/internal/config"
)

// S3Archive stores backups in an S3 bucket under an optional key prefix,
// mirroring the filesystem layout: "<prefix>/<name>" for the backup and
// "<prefix>/<name>.version" for the decimal version marker.
type S3Archive struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

var _ Archive = (*S3Archive)(nil)

// NewS3Archive creates an S3 archive from configuration. Credentials come
// from the environment variables named in the config when set, otherwise
// from the SDK's default chain.
func NewS3Archive(name string, cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyEnv != "" || cfg.S3SecretKeyEnv != "" {
		access := os.Getenv(cfg.S3AccessKeyEnv)
		secret := os.Getenv(cfg.S3SecretKeyEnv)
		if access == "" || secret == "" {
			return nil, fmt.Errorf("s3 credentials not found in %s/%s", cfg.S3AccessKeyEnv, cfg.S3SecretKeyEnv)
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Archive{
		name:     name,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// PutBackup uploads a named backup and its version marker.
func (a *S3Archive) PutBackup(name string, r io.Reader, size int64, version int64) error {
	ctx := context.Background()

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key(name)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading backup %s: %w", name, err)
	}

	marker := strconv.FormatInt(version, 10)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name + ".version")),
		Body:   bytes.NewReader([]byte(marker)),
	})
	if err != nil {
		return fmt.Errorf("uploading version marker for %s: %w", name, err)
	}
	return nil
}

// GetBackup downloads a named backup and writes it to w.
func (a *S3Archive) GetBackup(name string, w io.Writer) error {
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("backup not found: %s", name)
		}
		return fmt.Errorf("downloading backup %s: %w", name, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading backup %s: %w", name, err)
	}
	return nil
}

// BackupVersion returns the stored version for a named backup.
// Returns 0 when no version marker object exists.
func (a *S3Archive) BackupVersion(name string) (int64, error) {
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name + ".version")),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version marker for %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, fmt.Errorf("reading version marker for %s: %w", name, err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version marker for %s: %w", name, err)
	}
	return version, nil
}

// ValidateSetup checks the bucket exists and is reachable.
func (a *S3Archive) ValidateSetup() error {
	_, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("archive bucket %s unavailable: %w", a.bucket, err)
	}
	return nil
}

func (a *S3Archive) key(name string) string {
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
