// Package storage provides the S3-compatible file store backend. It mirrors
// the Drive layout as an object key prefix so either backend can serve as the
// archive.
package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// S3Store archives invoice attachments in S3-compatible storage
type S3Store struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	prefix   string
	logger   *zap.Logger
}

// Config holds configuration for the S3 store
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Region          string
	Prefix          string
}

// NewS3Store creates a new S3 store
func NewS3Store(config *Config, logger *zap.Logger) (*S3Store, error) {
	if config.Endpoint == "" || config.AccessKeyID == "" || config.AccessKeySecret == "" {
		return nil, fmt.Errorf("S3 configuration is incomplete")
	}

	if config.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}

	sess := session.Must(session.NewSession(&aws.Config{
		Region:           aws.String(config.Region),
		Endpoint:         aws.String(config.Endpoint),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(false),
	}))

	return &S3Store{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: config.Endpoint,
		prefix:   strings.Trim(config.Prefix, "/"),
		logger:   logger,
	}, nil
}

// Upload stores the attachment under a month/payer key and returns the object
// key and its URL. The key doubles as the file id for later deletion.
func (s *S3Store) Upload(ctx context.Context, localPath string, invoice *domain.ExtractedInvoice) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer f.Close()

	key := s.objectKey(localPath, invoice)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	s.logger.Info("attachment archived in S3", zap.String("key", key))
	return key, url, nil
}

// Delete removes an object by key. A missing object counts as deleted.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil
		}
		return fmt.Errorf("failed to delete S3 object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) objectKey(localPath string, invoice *domain.ExtractedInvoice) string {
	month := "unknown-month"
	if invoice.InvoiceDate != nil && !invoice.InvoiceDate.IsZero() {
		month = invoice.InvoiceDate.Format("01.2006")
	}
	payer := "unknown-payer"
	if invoice.Payer != nil && strings.TrimSpace(*invoice.Payer) != "" {
		payer = strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(strings.TrimSpace(*invoice.Payer))
	}

	parts := []string{month, payer, filepath.Base(localPath)}
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}
