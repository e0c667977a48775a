package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-match-go/internal/config"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/storage/models"
	"cv-match-go/internal/tracing"
	"cv-match-go/internal/types"
	"cv-match-go/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("processor")

var (
	// ErrStorageNotInit 存储未初始化
	ErrStorageNotInit = errors.New("存储未初始化")
	// ErrMySQLNotInit 关系数据库未初始化，无法持久化匹配记录
	ErrMySQLNotInit = errors.New("MySQL未初始化")
)

// MatchEventCompleted outbox事件类型：一次匹配计算完成
const MatchEventCompleted = "match.completed"

// MatchCompletedEvent 发往消息队列的匹配完成事件载荷
type MatchCompletedEvent struct {
	MatchUUID            string    `json:"match_uuid"`
	OfferTextMD5         string    `json:"offer_text_md5"`
	ResumeFileMD5        string    `json:"resume_file_md5"`
	OfferCompany         string    `json:"offer_company"`
	OfferRole            string    `json:"offer_role"`
	TechnicalSkillsScore int       `json:"technical_skills_score"`
	SoftSkillsScore      int       `json:"soft_skills_score"`
	RoleExperienceScore  int       `json:"role_experience_score"`
	EducationScore       int       `json:"education_score"`
	SectorScore          int       `json:"sector_score"`
	CompletedAt          time.Time `json:"completed_at"`
}

// MatchResponse 一次匹配请求的处理结果
type MatchResponse struct {
	MatchUUID string             `json:"match_uuid,omitempty"`
	Cached    bool               `json:"cached"`
	Result    *types.MatchResult `json:"result"`
}

// PDFExtractor 简历文本提取接口
type PDFExtractor interface {
	ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// RecordParser 从原始文本提取结构化记录的接口
type RecordParser interface {
	ExtractOffer(ctx context.Context, offerText string) (*types.OfferRecord, error)
	ExtractCandidate(ctx context.Context, cvText string) (*types.CandidateRecord, error)
}

// MatchScorer 匹配打分接口
type MatchScorer interface {
	Score(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord) (*types.MatchResult, error)
}

// MatchService 协调一次完整的岗位-简历匹配流程：
// 缓存查询 -> 原始文件归档 -> PDF文本提取 -> LLM结构化提取 -> 五维打分 -> 落库+outbox -> 缓存回写
type MatchService struct {
	cfg          *config.Config
	storage      *storage.Storage
	pdfExtractor PDFExtractor
	parser       RecordParser
	scorer       MatchScorer
	logger       zerolog.Logger
}

// NewMatchService 创建匹配服务
func NewMatchService(
	cfg *config.Config,
	storageManager *storage.Storage,
	pdfExtractor PDFExtractor,
	parser RecordParser,
	scorer MatchScorer,
	logger zerolog.Logger,
) (*MatchService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if storageManager == nil {
		return nil, ErrStorageNotInit
	}
	if pdfExtractor == nil {
		return nil, fmt.Errorf("PDF提取器不能为空")
	}
	if parser == nil {
		return nil, fmt.Errorf("记录提取器不能为空")
	}
	if scorer == nil {
		return nil, fmt.Errorf("打分器不能为空")
	}
	return &MatchService{
		cfg:          cfg,
		storage:      storageManager,
		pdfExtractor: pdfExtractor,
		parser:       parser,
		scorer:       scorer,
		logger:       logger,
	}, nil
}

// ProcessMatch 执行一次匹配。offerText是岗位描述原文，resumePDF是上传的简历文件内容。
// 相同的输入组合（按MD5判断）直接返回缓存结果，不重复计算。
func (s *MatchService) ProcessMatch(ctx context.Context, offerText string, resumePDF []byte) (*MatchResponse, error) {
	ctx, span := tracer.Start(ctx, "ProcessMatch",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	offerMD5 := utils.CalculateStringMD5(offerText)
	resumeMD5 := utils.CalculateMD5(resumePDF)

	span.SetAttributes(
		attribute.String("match.offer_md5", offerMD5),
		attribute.String("match.resume_md5", resumeMD5),
		attribute.Int("match.resume_size_bytes", len(resumePDF)),
		attribute.String("match.offer_preview", tracing.SafeOfferContent(offerText)),
	)

	// 1. 缓存查询
	if s.storage.Redis != nil {
		cached, err := s.storage.Redis.GetCachedMatchResult(ctx, offerMD5, resumeMD5)
		if err == nil {
			span.AddEvent("cache_hit")
			span.SetStatus(codes.Ok, "缓存命中")
			s.logger.Info().
				Str("offer_md5", offerMD5).
				Str("resume_md5", resumeMD5).
				Msg("匹配结果缓存命中")
			return &MatchResponse{Cached: true, Result: cached}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			// 缓存故障不阻断匹配，降级为直接计算
			s.logger.Warn().Err(err).Msg("查询匹配结果缓存失败，继续计算")
		}
	}

	matchUUID := uuid.NewString()
	span.SetAttributes(attribute.String("match.uuid", matchUUID))

	// 2. 原始简历归档到对象存储
	var resumeObjectKey string
	if s.storage.MinIO != nil {
		objectKey, err := s.storage.MinIO.UploadResume(ctx, matchUUID, resumePDF)
		if err != nil {
			// 归档失败只降级，匹配计算照常进行
			s.logger.Warn().Err(err).Str("match_uuid", matchUUID).Msg("归档原始简历失败")
		} else {
			resumeObjectKey = objectKey
		}
	}

	// 3. PDF文本提取
	extractCtx, extractSpan := tracer.Start(ctx, "ExtractResumeText")
	resumeText, err := s.pdfExtractor.ExtractFromBytes(extractCtx, resumePDF, matchUUID+".pdf")
	if err != nil {
		tracing.RecordErrorWithInfo(extractSpan, err, tracing.ErrorTypeValidation,
			attribute.Int("resume.size_bytes", len(resumePDF)))
		extractSpan.End()
		span.SetStatus(codes.Error, "简历文本提取失败")
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	extractSpan.SetAttributes(
		attribute.Int("resume.text_length", len(resumeText)),
		attribute.String("resume.text_preview", tracing.SafeResumeContent(resumeText)),
	)
	extractSpan.End()

	// 4. LLM结构化提取，岗位和简历并行
	offer, cv, err := s.extractRecords(ctx, offerText, resumeText)
	if err != nil {
		span.SetStatus(codes.Error, "结构化提取失败")
		return nil, err
	}

	// 5. 五维打分
	scoreCtx, scoreSpan := tracer.Start(ctx, "ScoreMatch")
	result, err := s.scorer.Score(scoreCtx, offer, cv)
	if err != nil {
		tracing.RecordError(scoreSpan, err, tracing.ErrorTypeExternal)
		scoreSpan.End()
		span.SetStatus(codes.Error, "匹配打分失败")
		return nil, fmt.Errorf("匹配打分失败: %w", err)
	}
	scoreSpan.End()

	// 6. 持久化匹配记录 + outbox事件（同一事务）
	if err := s.persistMatch(ctx, matchUUID, offerMD5, resumeMD5, resumeObjectKey, offer, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "持久化匹配记录失败")
		return nil, err
	}

	// 7. 缓存回写，失败只记录
	if s.storage.Redis != nil {
		if err := s.storage.Redis.CacheMatchResult(ctx, offerMD5, resumeMD5, result); err != nil {
			s.logger.Warn().Err(err).Str("match_uuid", matchUUID).Msg("写入匹配结果缓存失败")
		}
	}

	span.SetStatus(codes.Ok, "匹配完成")
	s.logger.Info().
		Str("match_uuid", matchUUID).
		Int("technical_skills", result.TechnicalSkillsScore).
		Int("soft_skills", result.SoftSkillsScore).
		Int("role_experience", result.RoleExperienceScore).
		Int("education", result.EducationScore).
		Int("sector", result.SectorScore).
		Msg("匹配计算完成")

	return &MatchResponse{MatchUUID: matchUUID, Result: result}, nil
}

// extractRecords 并行执行岗位和简历的LLM结构化提取
func (s *MatchService) extractRecords(ctx context.Context, offerText, resumeText string) (*types.OfferRecord, *types.CandidateRecord, error) {
	ctx, span := tracer.Start(ctx, "ExtractStructuredRecords")
	defer span.End()

	var (
		offer    *types.OfferRecord
		cv       *types.CandidateRecord
		offerErr error
		cvErr    error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cv, cvErr = s.parser.ExtractCandidate(ctx, resumeText)
	}()
	offer, offerErr = s.parser.ExtractOffer(ctx, offerText)
	<-done

	if offerErr != nil {
		tracing.RecordError(span, offerErr, tracing.ErrorTypeExternal)
		return nil, nil, fmt.Errorf("提取岗位结构化信息失败: %w", offerErr)
	}
	if cvErr != nil {
		tracing.RecordError(span, cvErr, tracing.ErrorTypeExternal)
		return nil, nil, fmt.Errorf("提取简历结构化信息失败: %w", cvErr)
	}

	span.SetAttributes(
		attribute.String("offer.role", offer.Role),
		attribute.Int("cv.education_entries", len(cv.Education)),
		attribute.Int("cv.experience_entries", len(cv.Experience)),
	)
	return offer, cv, nil
}

// persistMatch 在同一事务中保存匹配记录和匹配完成事件。
// 未配置数据库时跳过持久化，匹配降级为纯计算。
func (s *MatchService) persistMatch(ctx context.Context, matchUUID, offerMD5, resumeMD5, resumeObjectKey string, offer *types.OfferRecord, result *types.MatchResult) error {
	if s.storage.MySQL == nil {
		s.logger.Warn().Str("match_uuid", matchUUID).Msg("MySQL未配置，跳过匹配记录持久化")
		return nil
	}

	record := &models.MatchRecord{
		MatchUUID:            matchUUID,
		OfferCompany:         offer.Company,
		OfferRole:            offer.Role,
		OfferTextMD5:         offerMD5,
		ResumeFileMD5:        resumeMD5,
		ResumeObjectKey:      resumeObjectKey,
		TechnicalSkillsScore: result.TechnicalSkillsScore,
		SoftSkillsScore:      result.SoftSkillsScore,
		RoleExperienceScore:  result.RoleExperienceScore,
		EducationScore:       result.EducationScore,
		SectorScore:          result.SectorScore,
		Result:               utils.MarshalToJSON(result),
	}

	var message *models.OutboxMessage
	if s.cfg.RabbitMQ.URL != "" && s.cfg.RabbitMQ.MatchEventsExchange != "" {
		event := MatchCompletedEvent{
			MatchUUID:            matchUUID,
			OfferTextMD5:         offerMD5,
			ResumeFileMD5:        resumeMD5,
			OfferCompany:         offer.Company,
			OfferRole:            offer.Role,
			TechnicalSkillsScore: result.TechnicalSkillsScore,
			SoftSkillsScore:      result.SoftSkillsScore,
			RoleExperienceScore:  result.RoleExperienceScore,
			EducationScore:       result.EducationScore,
			SectorScore:          result.SectorScore,
			CompletedAt:          time.Now(),
		}
		message = &models.OutboxMessage{
			AggregateID:      matchUUID,
			EventType:        MatchEventCompleted,
			Payload:          string(utils.MarshalToJSON(event)),
			TargetExchange:   s.cfg.RabbitMQ.MatchEventsExchange,
			TargetRoutingKey: s.cfg.RabbitMQ.MatchCompletedRoutingKey,
			Status:           "PENDING",
		}
	}

	if err := s.storage.MySQL.SaveMatchRecordWithOutbox(ctx, record, message); err != nil {
		return fmt.Errorf("保存匹配记录失败: %w", err)
	}
	return nil
}

// GetMatchRecord 按UUID查询历史匹配记录
func (s *MatchService) GetMatchRecord(ctx context.Context, matchUUID string) (*models.MatchRecord, error) {
	if s.storage.MySQL == nil {
		return nil, ErrMySQLNotInit
	}
	return s.storage.MySQL.GetMatchRecordByUUID(ctx, matchUUID)
}
