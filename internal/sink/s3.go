package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archive stores every report as one JSON object under
// {prefix}/{deviceID}/{timestamp}.json in an S3-compatible bucket.
type Archive struct {
	store  objectStore
	bucket string
	region string
	prefix string
}

var _ device.Sink = (*Archive)(nil)

// NewArchive connects to the object store and makes sure the bucket exists.
func NewArchive(ctx context.Context, opts *options.S3Options) (*Archive, error) {
	// Self-signed certificates are common on local MinIO deployments.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	a := &Archive{
		store:  client,
		bucket: opts.BucketName,
		region: opts.Region,
		prefix: opts.Prefix,
	}
	if err := a.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckBucket creates the bucket when it does not exist yet.
func (a *Archive) CheckBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", a.bucket)
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (a *Archive) Publish(ctx context.Context, r *device.Report) error {
	payload, err := device.Encode(r)
	if err != nil {
		return err
	}

	_, err = a.store.PutObject(ctx, a.bucket, a.objectKey(r), bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{"device-type": r.DeviceType},
		})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

func (a *Archive) objectKey(r *device.Report) string {
	return path.Join(a.prefix, r.DeviceID, strconv.FormatInt(r.Timestamp, 10)+".json")
}
