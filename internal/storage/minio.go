package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"cv-match-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// MinIO 提供对象存储功能，保存上传的原始简历文件
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	originalsBucket string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "cv-originals"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		originalsBucket: originalsBucket,
		logger:          logger,
	}

	if err := m.ensureBucketExists(originalsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", originalsBucket, err)
	}

	// 设置对象生命周期规则
	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), originalsBucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			logger.Printf("[MinIO] 设置生命周期规则失败: %v", err)
		}
	}

	logger.Printf("[MinIO] 客户端初始化成功, endpoint: %s, bucket: %s", cfg.Endpoint, originalsBucket)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] 存储桶 %s 创建成功", bucketName)
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lcConfig)
}

// UploadResume 上传原始简历文件，对象键为 {matchUUID}.pdf，返回对象键
func (m *MinIO) UploadResume(ctx context.Context, matchUUID string, data []byte) (string, error) {
	objectName := matchUUID + ".pdf"

	_, err := m.client.PutObject(ctx, m.originalsBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("上传简历 %s/%s 失败: %w", m.originalsBucket, objectName, err)
	}

	m.logger.Printf("[MinIO] 简历上传成功: %s (%d字节)", objectName, len(data))
	return objectName, nil
}

// GetResume 下载原始简历文件
func (m *MinIO) GetResume(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.originalsBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取简历对象 %s 失败: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取简历对象 %s 失败: %w", objectName, err)
	}
	return data, nil
}

// GetResumePresignedURL 生成简历下载的预签名URL
func (m *MinIO) GetResumePresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.originalsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败 %s: %w", objectName, err)
	}
	return u.String(), nil
}

// DeleteResume 删除原始简历文件
func (m *MinIO) DeleteResume(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.originalsBucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除简历对象 %s 失败: %w", objectName, err)
	}
	return nil
}
