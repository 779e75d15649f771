package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/atlas-intel/dossier/internal/util"
	"github.com/atlas-intel/dossier/pkg/logger"
)

// Enabled reports whether export upload is configured. Upload is optional;
// runs without AWS credentials keep everything on local disk.
func Enabled() bool {
	return util.GetEnv("AWS_BUCKET") != ""
}

// NewS3Client builds an S3 client from the AWS_* environment variables.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// UploadExports pushes every file in the run's exports directory to the
// configured bucket under <run_id>/exports/.
func UploadExports(ctx context.Context, client *s3.Client, runID string, exportsDir string) error {
	bucket := util.GetEnv("AWS_BUCKET")

	entries, err := os.ReadDir(exportsDir)
	if err != nil {
		return fmt.Errorf("failed to read exports dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(exportsDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read export %s: %w", entry.Name(), err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(entry.Name()))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := fmt.Sprintf("%s/exports/%s", runID, entry.Name())
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}

		logger.Debug("[Storage] Uploaded export", "bucket", bucket, "key", key)
	}

	return nil
}
