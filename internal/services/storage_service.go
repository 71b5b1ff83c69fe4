// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/config"
)

// StorageService archives ledger reports to S3, or to a local directory when
// no AWS credentials are configured.
type StorageService struct {
	s3Client *s3.S3
	config   config.AWSConfig
}

type ArchiveResult struct {
	Location string `json:"location"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		// Local development
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// ArchiveReport stores body under reports/YYYY/MM/DD/<name>.
func (s *StorageService) ArchiveReport(ctx context.Context, name string, body []byte) (*ArchiveResult, error) {
	key := s.reportKey(name, time.Now().UTC())

	if s.s3Client != nil {
		return s.archiveToS3(ctx, key, body)
	}
	return s.archiveToLocal(key, body)
}

func (s *StorageService) archiveToS3(ctx context.Context, key string, body []byte) (*ArchiveResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.config.ReportsBucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ContentLength:        aws.Int64(int64(len(body))),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload report to S3: %w", err)
	}

	return &ArchiveResult{
		Location: fmt.Sprintf("s3://%s/%s", s.config.ReportsBucket, key),
		Key:      key,
		Size:     int64(len(body)),
	}, nil
}

func (s *StorageService) archiveToLocal(key string, body []byte) (*ArchiveResult, error) {
	path := filepath.Join(s.config.ReportsDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	logrus.WithField("path", path).Info("Report archived locally")
	return &ArchiveResult{
		Location: path,
		Key:      key,
		Size:     int64(len(body)),
	}, nil
}

func (s *StorageService) reportKey(name string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%s", at.Format("2006/01/02"), filepath.Base(name))
}
