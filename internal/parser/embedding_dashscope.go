package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cv-match-go/internal/config"
	"cv-match-go/internal/tracing"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel/trace"
)

// DashScopeEmbedder 实现 cloudwego/eino 的 embedding.Embedder 接口，
// 走DashScope的OpenAI兼容endpoint。
type DashScopeEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// DashScopeEmbedderOption 向量化器的配置选项
type DashScopeEmbedderOption func(*DashScopeEmbedder)

// WithEmbedderLogger 设置自定义日志记录器
func WithEmbedderLogger(logger *log.Logger) DashScopeEmbedderOption {
	return func(e *DashScopeEmbedder) {
		e.logger = logger
	}
}

// WithEmbedderHTTPClient 设置自定义HTTP客户端
func WithEmbedderHTTPClient(client *http.Client) DashScopeEmbedderOption {
	return func(e *DashScopeEmbedder) {
		e.httpClient = client
	}
}

// NewDashScopeEmbedder 创建DashScope向量化器
func NewDashScopeEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig, opts ...DashScopeEmbedderOption) (*DashScopeEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-v3"
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}

	embedder := &DashScopeEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(embedder)
	}

	return embedder, nil
}

// GetDimensions 返回配置的向量维度
func (e *DashScopeEmbedder) GetDimensions() int {
	return e.dimensions
}

// embeddingRequest OpenAI兼容的Embedding请求结构
type embeddingRequest struct {
	Input      interface{} `json:"input"` // string 或 []string
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions,omitempty"`
}

// embeddingResponse OpenAI兼容的Embedding响应结构
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *embeddingAPIError `json:"error,omitempty"`
}

// embeddingAPIError API级别的错误，可能伴随200状态码返回
type embeddingAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// EmbedStrings 将文本批量转换为向量，保持输入顺序
func (e *DashScopeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := e.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var input interface{}
	if len(texts) == 1 {
		input = texts[0]
	} else {
		input = texts
	}

	reqBody := embeddingRequest{
		Input: input,
		Model: effectiveModel,
	}
	if e.dimensions > 0 {
		reqBody.Dimensions = e.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	e.logger.Printf("[DashScopeEmbedder] 向量化%d个文本, 模型: %s", len(texts), effectiveModel)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr embeddingAPIError
		err := fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			err = fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s, Code: %s",
				resp.StatusCode, apiErr.Type, apiErr.Message, apiErr.Code)
		}
		tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, resp.StatusCode)
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息='%s', Code=%s",
			parsed.Error.Type, parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("向量数量与输入不一致: 期望%d个, 实际%d个", len(texts), len(parsed.Data))
	}

	// 按Index还原输入顺序
	out := make([][]float64, len(parsed.Data))
	for _, entry := range parsed.Data {
		if entry.Index < 0 || entry.Index >= len(out) {
			return nil, fmt.Errorf("响应中出现越界的向量索引: %d", entry.Index)
		}
		out[entry.Index] = entry.Embedding
	}

	return out, nil
}
