package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrorStorageNotConfigured = errors.New("GCS_BUCKET is required")

// getGoogleClient prefers GCS_CREDENTIALS_JSON and falls back to ADC.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func reportBucket() string {
	return strings.TrimSpace(os.Getenv("GCS_BUCKET"))
}

// StorageConfigured reports whether report uploads can be attempted.
func StorageConfigured() bool {
	return reportBucket() != ""
}

// UploadBytesToGCS writes data to objectName and returns its public URL.
func UploadBytesToGCS(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	bucketName := reportBucket()
	if bucketName == "" {
		return "", ErrorStorageNotConfigured
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload bytes to Google Cloud Storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}
	return GCSObjectURL(bucketName, objectName), nil
}

func DeleteObjectFromGCS(ctx context.Context, objectName string) error {
	bucketName := reportBucket()
	if bucketName == "" {
		return ErrorStorageNotConfigured
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Bucket(bucketName).Object(objectName).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func GCSObjectURL(bucket, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.TrimPrefix(objectName, "/"))
}

// GCSObjectName returns the object name of a URL built by GCSObjectURL for the
// configured bucket.
func GCSObjectName(fileUrl string) (string, bool) {
	bucketName := reportBucket()
	if bucketName == "" {
		return "", false
	}
	prefix := GCSObjectURL(bucketName, "")
	if !strings.HasPrefix(fileUrl, prefix) || len(fileUrl) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(fileUrl, prefix), true
}
