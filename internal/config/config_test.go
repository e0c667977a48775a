package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
dashscope:
  api_key: "file_key"
  model: "qwen-max"
  embedding:
    model: "text-embedding-v3"
    dimensions: 512
server:
  address: ":9090"
redis:
  address: "redis.internal:6379"
  match_cache_expire_hours: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file_key", cfg.DashScope.APIKey)
	assert.Equal(t, "qwen-max", cfg.DashScope.Model)
	assert.Equal(t, 512, cfg.DashScope.Embedding.Dimensions)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, 12, cfg.Redis.MatchCacheExpireHours)

	// 未显式配置的字段填默认值
	assert.Equal(t, "5s", cfg.RabbitMQ.RetryInterval)
	assert.Equal(t, "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings", cfg.DashScope.Embedding.BaseURL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dashscope:\n  api_key: \"file_key\"\n"), 0644))

	t.Setenv("DASHSCOPE_API_KEY", "env_key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	// 环境变量优先于配置文件
	assert.Equal(t, "env_key", cfg.DashScope.APIKey)
}

func TestLoadConfigMissingFileInTest(t *testing.T) {
	// 测试环境下找不到配置文件时返回默认配置而不是报错
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "qwen-plus", cfg.DashScope.Model)
	assert.Equal(t, 24, cfg.Redis.MatchCacheExpireHours)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dashscope: [not a map"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}
