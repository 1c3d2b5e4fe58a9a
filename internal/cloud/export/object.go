package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"biblomnemon/internal/activity"
	"biblomnemon/internal/category"
	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SnapshotVersion is bumped whenever Snapshot changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the full library as stored in the object store.
type Snapshot struct {
	Version    int                        `json:"version"`
	ExportedAt time.Time                  `json:"exported_at"`
	Books      []library.Book             `json:"books"`
	Categories []category.Category        `json:"categories"`
	Relations  []category.Relation        `json:"relations"`
	Activities []activity.ReadingActivity `json:"activities"`
}

// ObjectAPI is the slice of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds a path-style client so MinIO and other S3-compatible
// endpoints work.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// ObjectStorage keeps one JSON snapshot of the library in a bucket.
type ObjectStorage struct {
	client ObjectAPI
	bucket string
	key    string
	data   Dataset
	now    func() time.Time
	log    logging.Logger
}

func NewObjectStorage(client ObjectAPI, bucket, key string, data Dataset, log logging.Logger) *ObjectStorage {
	return &ObjectStorage{
		client: client,
		bucket: bucket,
		key:    key,
		data:   data,
		now:    time.Now,
		log:    log.With("component", "s3_export"),
	}
}

func (o *ObjectStorage) location() string {
	return "s3://" + o.bucket + "/" + o.key
}

func (o *ObjectStorage) Upload(ctx context.Context) (Report, error) {
	snap := Snapshot{Version: SnapshotVersion, ExportedAt: o.now().UTC()}
	var err error
	if snap.Books, err = o.data.Books(ctx); err != nil {
		return Report{}, fmt.Errorf("load books: %w", err)
	}
	if snap.Categories, err = o.data.Categories(ctx); err != nil {
		return Report{}, fmt.Errorf("load categories: %w", err)
	}
	if snap.Relations, err = o.data.Relations(ctx); err != nil {
		return Report{}, fmt.Errorf("load relations: %w", err)
	}
	if snap.Activities, err = o.data.Activities(ctx); err != nil {
		return Report{}, fmt.Errorf("load activities: %w", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return Report{}, fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(o.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Report{}, fmt.Errorf("put snapshot: %w", err)
	}

	o.log.Info(ctx, "snapshot uploaded", "location", o.location(), "bytes", len(body))
	return snap.report(o.location()), nil
}

func (o *ObjectStorage) Download(ctx context.Context) (Report, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return Report{}, ErrNoSnapshot
		}
		return Report{}, fmt.Errorf("get snapshot: %w", err)
	}
	defer out.Body.Close()

	var snap Snapshot
	if err := json.NewDecoder(out.Body).Decode(&snap); err != nil {
		return Report{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Report{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if err := o.data.Restore(ctx, snap); err != nil {
		return Report{}, fmt.Errorf("restore snapshot: %w", err)
	}

	o.log.Info(ctx, "snapshot restored", "location", o.location(), "exported_at", snap.ExportedAt)
	return snap.report(o.location()), nil
}

func (s Snapshot) report(location string) Report {
	return Report{
		Target:     TargetS3,
		Location:   location,
		Books:      len(s.Books),
		Categories: len(s.Categories),
		Relations:  len(s.Relations),
		Activities: len(s.Activities),
	}
}
