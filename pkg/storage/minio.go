// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"yourmind-go/internal/config"
	"yourmind-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportStore 保存导出的咨询报告并生成临时下载链接。
type ReportStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewReportStore 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewReportStore(ctx context.Context, cfg config.MinIOConfig) (*ReportStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	expiry := time.Duration(cfg.PresignExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	log.Info("MinIO 客户端初始化成功")
	return &ReportStore{client: client, bucket: cfg.BucketName, expiry: expiry}, nil
}

// Upload 写入对象并返回预签名的下载地址。
func (s *ReportStore) Upload(ctx context.Context, objectName string, content []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传报告失败: %w", err)
	}
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, nil)
	if err != nil {
		log.Errorf("Error generating presigned URL: %s", err)
		return "", err
	}
	return presignedURL.String(), nil
}
