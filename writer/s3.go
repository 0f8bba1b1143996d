package writer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	appconfig "github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
)

// Uploader archives produced output files to S3. Uploads are paced by a
// rate limiter so a run with many outputs does not burst against the API.
type Uploader struct {
	config  *appconfig.Config
	client  *s3.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewUploader configures the AWS SDK and returns an uploader for the
// bucket named in storage.s3. Static credentials from the configuration
// take precedence; otherwise the default provider chain applies.
func NewUploader(cfg *appconfig.Config) (*Uploader, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	perSecond := cfg.Storage.S3.UploadsPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"bucket": cfg.Storage.S3.Bucket,
		"region": cfg.Storage.S3.Region,
	}).Info("s3 uploader initialized")

	return &Uploader{
		config:  cfg,
		client:  s3.NewFromConfig(awsCfg),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
	}, nil
}

// UploadFile puts one local file under
// <prefix>/<yyyy>/<mm>/<dd>/<run_id>/<basename>.
func (u *Uploader) UploadFile(ctx context.Context, localPath, runID string) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	key := path.Join(
		u.config.Storage.S3.Prefix,
		time.Now().UTC().Format("2006/01/02"),
		runID,
		filepath.Base(localPath),
	)

	start := time.Now()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.config.Storage.S3.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"key":         key,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("output file uploaded")
	return nil
}

// UploadOutputs uploads every path, logging and continuing on per-file
// failures. Returns the first error encountered, if any.
func (u *Uploader) UploadOutputs(ctx context.Context, runID string, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if err := u.UploadFile(ctx, p, runID); err != nil {
			u.log.WithComponent("s3_uploader").WithError(err).WithFields(logger.Fields{
				"file": p,
			}).Warn("upload failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
