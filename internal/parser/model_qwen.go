package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cv-match-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DashScope的OpenAI兼容chat endpoint
	defaultQwenAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName = "qwen-plus"
)

// QwenChatModel 实现 cloudwego/eino 的 model.ToolCallingChatModel 接口，
// 走DashScope的OpenAI兼容endpoint。本服务只做结构化抽取，不绑定工具。
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	logger     *log.Logger
}

// QwenChatModelOption 模型客户端的配置选项
type QwenChatModelOption func(*QwenChatModel)

// WithChatModelLogger 设置自定义日志记录器
func WithChatModelLogger(logger *log.Logger) QwenChatModelOption {
	return func(m *QwenChatModel) {
		m.logger = logger
	}
}

// NewQwenChatModel 创建通义千问模型客户端
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenChatModelOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultQwenAPIURL
	}

	m := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

type chatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate 实现 model.BaseChatModel 接口
func (m *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	reqPayload := chatCompletionRequest{
		Model:    m.modelName,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Printf("[QwenChatModel] 发送请求, 模型: %s, 消息数: %d", m.modelName, len(messages))

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API请求失败, 状态 %s: %s", httpResp.Status, string(bodyBytes))
		tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, httpResp.StatusCode)
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API返回了空的choices: %s", string(bodyBytes))
	}

	choice := resp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 实现 model.BaseChatModel 接口。抽取流程只用同步调用，未实现流式。
func (m *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("QwenChatModel的Stream方法未实现")
}

// WithTools 实现 model.ToolCallingChatModel 接口。抽取流程不使用工具调用。
func (m *QwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ToolCallingChatModel = (*QwenChatModel)(nil)
