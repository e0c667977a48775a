package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"cv-match-go/internal/constants"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// 提取结果超出长度边界时的哨兵错误，供HTTP层映射为用户可见的提示
var (
	ErrResumeTooShort = errors.New("简历文本过短, 无法可靠抽取")
	ErrResumeTooLong  = errors.New("简历文本过长, 超出处理上限")
)

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取简历文本。
// 提取出的文本在返回前校验长度边界：过短说明PDF可能是扫描件或空文件，
// 过长超出下游LLM的处理能力，两种情况都用哨兵错误区分。
type EinoPDFTextExtractor struct {
	parser *pdf.PDFParser
	logger *log.Logger
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(logger *log.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = logger
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器
// 默认配置为不按页面分割，以获取整个文档的连续文本
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser: p,
		logger: log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractFromFile 从PDF文件提取简历文本
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败 %s: %w", filePath, err)
	}
	defer file.Close()

	return e.ExtractFromReader(ctx, file, filePath)
}

// ExtractFromBytes 从字节数组提取简历文本
func (e *EinoPDFTextExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractFromReader(ctx, bytes.NewReader(data), uri)
}

// ExtractFromReader 从 io.Reader 提取简历文本并校验长度边界
func (e *EinoPDFTextExtractor) ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader, einoParser.WithURI(uri))
	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("PDF解析失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", fmt.Errorf("解析PDF失败 %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("PDF解析无结果: %s", uri)
	}

	var builder strings.Builder
	for _, doc := range docs {
		builder.WriteString(doc.Content)
	}
	text := builder.String()

	e.logger.Printf("PDF提取完成: 提取了 %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())

	return validateResumeText(text)
}

// validateResumeText 校验提取文本的长度边界
func validateResumeText(text string) (string, error) {
	if len(text) < constants.MinResumeTextLength {
		return "", ErrResumeTooShort
	}
	if len(text) > constants.MaxResumeTextLength {
		return "", ErrResumeTooLong
	}
	return text, nil
}
