package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"cv-match-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// offerPromptTemplate 岗位抽取的默认提示词。占位符 {offer_text} 在调用时替换。
const offerPromptTemplate = `You are an expert recruitment analyst. Extract the structured requirements of the job offer below into a single JSON object, strictly following this schema:

{
  "company": "name of the hiring company, or empty string if not mentioned",
  "role": "the job title being offered, or empty string if not mentioned",
  "sector": "the principal business sector of the offer (a single string, or a list of strings if several sectors apply equally)",
  "education": {
    "field": "the required field of study, or empty string if not specified",
    "number": "the minimum education level as a number: 0 = not specified, 1 = secondary school, 2 = associate/vocational degree, 3 = bachelor's degree, 4 = master's degree, 5 = doctorate",
    "min": "the human-readable name of the minimum required degree, or empty string if not specified"
  },
  "experience": {
    "min": "minimum years of experience required, as a number, or null if not specified",
    "max": "maximum years of experience, as a number, or null if not specified"
  },
  "technical_abilities": ["each technical skill, tool or technology the offer asks for"],
  "soft_skills": ["each soft skill the offer asks for"]
}

Rules:
- Output ONLY the JSON object. No markdown fences, no commentary.
- All field names and string values must use double quotes. Escape inner double quotes with a backslash.
- Use 0 for education "number" when the offer does not state a minimum education level. Never invent requirements that are not in the text.

Job offer text:
"""
{offer_text}
"""`

// cvPromptTemplate 简历抽取的默认提示词。占位符 {cv_text} 和 {actual_date} 在调用时替换。
const cvPromptTemplate = `You are an expert recruitment analyst. Today's date is {actual_date}. Extract the structured facts of the candidate's resume below into a single JSON object, strictly following this schema:

{
  "education": [
    {
      "degree": "human-readable name of the degree",
      "number": "education level as a number: 1 = secondary school, 2 = associate/vocational degree, 3 = bachelor's degree, 4 = master's degree, 5 = doctorate",
      "field": "the field of study of this degree"
    }
  ],
  "experience": [
    {
      "company": "name of the employer",
      "roles": [
        {
          "position": "the job title held",
          "years": "duration in that position, in years, as a number (use today's date for positions held to present)"
        }
      ],
      "total_years": "total years at this employer, as a number"
    }
  ],
  "primary_sector": "the candidate's principal professional sector (a single string, or a list of strings if the career spans several sectors equally)",
  "soft_skills": ["each soft skill evidenced by the resume"],
  "technical_abilities": ["each technical skill, tool or technology the candidate lists or demonstrably used"]
}

Rules:
- Output ONLY the JSON object. No markdown fences, no commentary.
- All field names and string values must use double quotes. Escape inner double quotes with a backslash.
- Express every duration in years as a number (e.g. 18 months -> 1.5). Never invent facts that are not in the text.

Resume text:
"""
{cv_text}
"""`

// extractorSystemMessage 抽取调用的system消息
const extractorSystemMessage = "You are a precise information extraction engine for a recruitment platform. You always answer with a single valid JSON object and nothing else."

// RecordExtractor 用LLM把岗位描述和简历文本抽取为固定schema的结构化记录。
// LLM输出经过BOM清理、markdown围栏剥离、大括号配对提取和引号修复后
// 才反序列化，单个字段的类型漂移由types包的宽容类型吸收。
type RecordExtractor struct {
	llmModel      model.ToolCallingChatModel
	offerTemplate string
	cvTemplate    string
	logger        *log.Logger
}

// RecordExtractorOption 抽取器的配置选项
type RecordExtractorOption func(*RecordExtractor)

// WithOfferPromptTemplate 设置自定义岗位抽取提示词模板
func WithOfferPromptTemplate(template string) RecordExtractorOption {
	return func(e *RecordExtractor) {
		e.offerTemplate = template
	}
}

// WithCVPromptTemplate 设置自定义简历抽取提示词模板
func WithCVPromptTemplate(template string) RecordExtractorOption {
	return func(e *RecordExtractor) {
		e.cvTemplate = template
	}
}

// NewRecordExtractor 创建结构化抽取器实例
func NewRecordExtractor(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...RecordExtractorOption) *RecordExtractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	extractor := &RecordExtractor{
		llmModel:      llmModel,
		offerTemplate: offerPromptTemplate,
		cvTemplate:    cvPromptTemplate,
		logger:        logger,
	}
	for _, opt := range options {
		opt(extractor)
	}
	return extractor
}

// ExtractOffer 从岗位描述文本抽取结构化要求
func (e *RecordExtractor) ExtractOffer(ctx context.Context, offerText string) (*types.OfferRecord, error) {
	prompt := strings.ReplaceAll(e.offerTemplate, "{offer_text}", offerText)

	var record types.OfferRecord
	if err := e.extractInto(ctx, prompt, &record); err != nil {
		return nil, fmt.Errorf("抽取岗位记录失败: %w", err)
	}
	return &record, nil
}

// ExtractCandidate 从简历文本抽取结构化事实。
// 当前日期注入提示词，供LLM换算"至今"类的任职时长。
func (e *RecordExtractor) ExtractCandidate(ctx context.Context, cvText string) (*types.CandidateRecord, error) {
	prompt := strings.ReplaceAll(e.cvTemplate, "{cv_text}", cvText)
	prompt = strings.ReplaceAll(prompt, "{actual_date}", time.Now().Format("January, 2006"))

	var record types.CandidateRecord
	if err := e.extractInto(ctx, prompt, &record); err != nil {
		return nil, fmt.Errorf("抽取候选人记录失败: %w", err)
	}
	return &record, nil
}

// extractInto 执行一次LLM调用并把清理后的JSON反序列化到目标结构
func (e *RecordExtractor) extractInto(ctx context.Context, prompt string, target interface{}) error {
	if e.llmModel == nil {
		return fmt.Errorf("llmModel未初始化")
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(extractorSystemMessage),
		einoschema.UserMessage(prompt),
	}

	response, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return fmt.Errorf("LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return fmt.Errorf("LLM返回了空响应")
	}

	e.logger.Printf("[RecordExtractor] LLM响应长度: %d字符", len(response.Content))

	jsonStr, err := cleanLLMJSONResponse(response.Content)
	if err != nil {
		return err
	}

	// 正常解析，失败后自动修复内嵌引号再试一次
	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		fixed := sanitizeJSON(jsonStr)
		if retryErr := json.Unmarshal([]byte(fixed), target); retryErr != nil {
			return fmt.Errorf("反序列化LLM响应失败: %w (修复后重试: %v)", err, retryErr)
		}
	}
	return nil
}

// cleanLLMJSONResponse 清理LLM响应：去除BOM和markdown围栏，提取首个完整JSON对象
func cleanLLMJSONResponse(content string) (string, error) {
	cleaned := strings.TrimPrefix(content, "\uFEFF")
	cleaned = stripMarkdownFences(cleaned)

	jsonStr := extractJSONObject(cleaned)
	if jsonStr == "" {
		return "", fmt.Errorf("响应中未找到完整的JSON对象: %.200s", cleaned)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}
	return jsonStr, nil
}

// stripMarkdownFences 剥离```json ... ```形式的代码围栏
func stripMarkdownFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// extractJSONObject 用大括号配对从文本中提取首个完整的JSON对象
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
