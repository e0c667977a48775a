package handler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cv-match-go/internal/config"
	"cv-match-go/internal/constants"
	"cv-match-go/internal/logger"
	"cv-match-go/internal/processor"
	"cv-match-go/internal/storage/models"
)

// 输入验证的哨兵错误，路由层据此区分客户端错误和服务端错误
var (
	ErrOfferTextTooShort = fmt.Errorf("岗位描述过短，至少需要%d个字符", constants.MinOfferTextLength)
	ErrOfferTextTooLong  = fmt.Errorf("岗位描述过长，最多允许%d个字符", constants.MaxOfferTextLength)
	ErrResumeFileEmpty   = errors.New("简历文件为空")
	ErrResumeFileTooBig  = fmt.Errorf("简历文件过大，最多允许%d字节", constants.MaxResumeFileSize)
)

// MatchProcessor 匹配流程的处理接口
type MatchProcessor interface {
	ProcessMatch(ctx context.Context, offerText string, resumePDF []byte) (*processor.MatchResponse, error)
	GetMatchRecord(ctx context.Context, matchUUID string) (*models.MatchRecord, error)
}

// MatchHandler 匹配请求处理器，负责输入验证并调用匹配服务
type MatchHandler struct {
	cfg     *config.Config
	service MatchProcessor
}

// NewMatchHandler 创建匹配请求处理器
func NewMatchHandler(cfg *config.Config, service MatchProcessor) *MatchHandler {
	return &MatchHandler{
		cfg:     cfg,
		service: service,
	}
}

// HandleMatch 处理一次匹配请求：验证输入后交给匹配服务
func (h *MatchHandler) HandleMatch(ctx context.Context, offerText string, reader io.Reader, fileSize int64) (*processor.MatchResponse, error) {
	if err := validateOfferText(offerText); err != nil {
		return nil, err
	}
	if fileSize > constants.MaxResumeFileSize {
		return nil, ErrResumeFileTooBig
	}

	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if len(fileBytes) < constants.MinResumeFileSize {
		return nil, ErrResumeFileEmpty
	}
	if len(fileBytes) > constants.MaxResumeFileSize {
		return nil, ErrResumeFileTooBig
	}

	resp, err := h.service.ProcessMatch(ctx, offerText, fileBytes)
	if err != nil {
		logger.Error().
			Err(err).
			Int("offer_text_length", len(offerText)).
			Int("file_size", len(fileBytes)).
			Msg("匹配处理失败")
		return nil, err
	}
	return resp, nil
}

// HandleGetMatch 按UUID查询历史匹配记录
func (h *MatchHandler) HandleGetMatch(ctx context.Context, matchUUID string) (*models.MatchRecord, error) {
	if matchUUID == "" {
		return nil, errors.New("匹配记录UUID不能为空")
	}
	return h.service.GetMatchRecord(ctx, matchUUID)
}

// validateOfferText 检查岗位描述文本长度是否在允许范围内
func validateOfferText(offerText string) error {
	length := len([]rune(offerText))
	if length < constants.MinOfferTextLength {
		return ErrOfferTextTooShort
	}
	if length > constants.MaxOfferTextLength {
		return ErrOfferTextTooLong
	}
	return nil
}

// IsValidationError 判断是否为输入验证类错误，路由层据此返回400
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOfferTextTooShort) ||
		errors.Is(err, ErrOfferTextTooLong) ||
		errors.Is(err, ErrResumeFileEmpty) ||
		errors.Is(err, ErrResumeFileTooBig)
}
