package storage

import (
	"context"
	"testing"

	"cv-match-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageNilConfig(t *testing.T) {
	_, err := NewStorage(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewStorageEmptyConfigIsComputeOnly(t *testing.T) {
	// 什么都没配置不是错误：返回空聚合，调用方以纯计算模式运行
	s, err := NewStorage(context.Background(), &config.Config{})
	require.NoError(t, err)

	assert.Nil(t, s.MinIO)
	assert.Nil(t, s.RabbitMQ)
	assert.Nil(t, s.MySQL)
	assert.Nil(t, s.Redis)

	// 空聚合上关闭是安全的
	s.Close()
}
