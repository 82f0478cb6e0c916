package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"albumd/internal/album"
)

// S3Vault stores archives as objects under a key prefix in one bucket:
//
//	s3://<bucket>/<prefix>/archives/<name>
//
// Uploads go through the multipart upload manager so archives of any size
// stream without being buffered whole.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// S3Options holds the connection settings of an S3Vault.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Vault creates a vault over the given bucket. Credentials fall back to
// the default AWS chain when no static keys are configured. A custom
// endpoint (MinIO, LocalStack) switches to path-style addressing.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     name,
		bucket:   opts.Bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (v *S3Vault) archivesPrefix() string {
	return path.Join(v.prefix, "archives") + "/"
}

func (v *S3Vault) key(name string) string {
	return v.archivesPrefix() + name
}

// Put uploads an archive. size is informational; the uploader streams r.
func (v *S3Vault) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := v.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("uploading archive to s3: %w", err)
	}
	return nil
}

// Get downloads the archive stored under name to w.
func (v *S3Vault) Get(ctx context.Context, name string, w io.Writer) error {
	if err := validName(name); err != nil {
		return err
	}
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return album.Errorf(album.ErrNotFound, "archive not found: %s", name)
		}
		return fmt.Errorf("getting archive from s3: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading archive from s3: %w", err)
	}
	return nil
}

// List returns the stored archives sorted by name.
func (v *S3Vault) List(ctx context.Context) ([]album.ArchiveInfo, error) {
	prefix := v.archivesPrefix()
	paginator := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(prefix),
	})

	out := []album.ArchiveInfo{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing archives in s3: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			out = append(out, album.ArchiveInfo{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				Created: aws.ToTime(obj.LastModified).UTC(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ValidateSetup checks that the bucket is reachable with the configured
// credentials.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// Compile-time check that S3Vault implements album.Vault interface
var _ album.Vault = (*S3Vault)(nil)
