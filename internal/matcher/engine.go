package matcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"cv-match-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("matcher")

// Engine 五维匹配引擎的门面：编排各维度评分器，组合最终百分比分数与解释文本。
// 除惰性初始化的向量化器句柄外，引擎是其两个输入记录的纯函数。
type Engine struct {
	handle *embedderHandle
	logger *log.Logger
}

// EngineOption 引擎的配置选项
type EngineOption func(*Engine)

// WithLogger 设置自定义日志记录器
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine 创建匹配引擎。向量化器由调用方通过provider注入，
// 首次使用时初始化一次，之后全程复用。
func NewEngine(provider EmbedderProvider, options ...EngineOption) *Engine {
	engine := &Engine{
		handle: newEmbedderHandle(provider),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(engine)
	}
	return engine
}

// Score 计算岗位与候选人的完整匹配结果。
// 缺失字段不是错误：对应维度得0分。只有在向量化等必需协作方
// 真正无法工作时才返回错误（行业维度除外，见SectorSimilarity）。
func (e *Engine) Score(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord) (*types.MatchResult, error) {
	if offer == nil || cv == nil {
		return nil, fmt.Errorf("岗位记录和候选人记录不能为空")
	}

	ctx, span := tracer.Start(ctx, "Engine.Score")
	defer span.End()

	techScored, techScore, err := e.SkillsSimilarity(ctx, offer, cv, TechnicalSkills)
	if err != nil {
		return nil, fmt.Errorf("技术技能评分失败: %w", err)
	}

	softScored, softScore, err := e.SkillsSimilarity(ctx, offer, cv, SoftSkills)
	if err != nil {
		return nil, fmt.Errorf("软技能评分失败: %w", err)
	}

	experience, err := e.RoleExperience(ctx, offer, cv)
	if err != nil {
		return nil, fmt.Errorf("角色经验评分失败: %w", err)
	}

	educationScore, err := e.EducationScore(ctx, offer, cv)
	if err != nil {
		return nil, fmt.Errorf("学历评分失败: %w", err)
	}

	// 行业维度内部自带0.5降级，不会返回错误
	sectorScore := e.SectorSimilarity(ctx, offer, cv)

	span.SetAttributes(
		attribute.Int("match.technical_skills_score", toPercent(techScore)),
		attribute.Int("match.soft_skills_score", toPercent(softScore)),
		attribute.Int("match.role_experience_score", toPercent(experience.Percentage)),
		attribute.Int("match.education_score", toPercent(educationScore)),
		attribute.Int("match.sector_score", toPercent(sectorScore)),
	)

	result := &types.MatchResult{
		TechnicalSkillsScore: toPercent(techScore),
		SoftSkillsScore:      toPercent(softScore),
		RoleExperienceScore:  toPercent(experience.Percentage),
		EducationScore:       toPercent(educationScore),
		SectorScore:          toPercent(sectorScore),

		TechnicalSkills: buildSkillsDetail(techScored, "Technical skills similarity order"),
		SoftSkills:      buildSkillsDetail(softScored, "Soft skills similarity order"),

		RoleExperience: buildExperienceDetail(offer, experience),
		Education:      e.buildEducationDetail(offer, cv, educationScore),
		Sector:         buildSectorDetail(offer, cv, sectorScore),
	}

	return result, nil
}

// toPercent 将[0,1]的分数转换为整数百分比：先乘100保留2位小数，再截断取整
func toPercent(score float64) int {
	return int(math.Round(score*10000) / 100)
}

// round1 保留1位小数
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// buildExperienceDetail 根据岗位要求的形态生成经验解释：
// 无最低要求、只有下限、上下限齐全三种句式。
// 展示用的年限边界始终取岗位声明的原始值，与计算摘要无关——
// 候选人没有可用经验时，岗位的要求依然要如实回显。
func buildExperienceDetail(offer *types.OfferRecord, exp ExperienceSummary) types.RoleExperienceDetail {
	minYears := offer.Experience.MinYears()
	maxYears := offer.Experience.MaxYears()

	var requirement string
	switch {
	case minYears == 0:
		requirement = "There's not any experience required for this role."
	case maxYears >= types.DefaultMaxExperienceYears:
		requirement = fmt.Sprintf("The offer is looking for someone with more than %d years of experience.", int(minYears))
	default:
		requirement = fmt.Sprintf("The offer is looking for between %d and %d years of experience.", int(minYears), int(maxYears))
	}

	explanation := fmt.Sprintf("You have approximately %v years of experience in roles similar to '%s'. %s",
		round1(exp.WeightedYears), offer.Role, requirement)

	return types.RoleExperienceDetail{
		Explanation: explanation,
		Details: types.RoleExperienceFacts{
			Role:            offer.Role,
			MinYears:        minYears,
			MaxYears:        maxYears,
			TotalExperience: round1(exp.WeightedYears),
		},
	}
}

// buildEducationDetail 生成学历解释块。岗位未指定最低学历时展示候选人
// 最高学位作参考（meets_requirement恒为true）；指定时说明是否达标，
// 并列出所有高于最低要求的学位。
func (e *Engine) buildEducationDetail(offer *types.OfferRecord, cv *types.CandidateRecord, educationScore float64) types.EducationDetail {
	minLevel := offer.MinEducationLevel()

	minLabel := "Not specified"
	minField := "Not specified"
	if offer.Education != nil {
		if offer.Education.Min != "" {
			minLabel = offer.Education.Min
		}
		if offer.Education.Field != "" {
			minField = offer.Education.Field
		}
	}

	// 候选人的最高学位
	var highest *types.EducationEntry
	for i := range cv.Education {
		if highest == nil || cv.Education[i].Number.Float64() > highest.Number.Float64() {
			highest = &cv.Education[i]
		}
	}

	// 岗位未指定最低学历
	if minLevel == 0 {
		facts := types.EducationFacts{
			MinimumRequiredLevel:   "Not specified",
			MinimumRequiredField:   minField,
			EquivalentLevelCV:      "Not available",
			EquivalentFieldCV:      "Not available",
			HigherEducationDegrees: []string{},
			MeetsRequirement:       true,
		}
		if highest != nil {
			facts.EquivalentLevelCV = valueOr(highest.Degree, "Not available")
			facts.EquivalentFieldCV = valueOr(highest.Field, "Not available")
		}
		return types.EducationDetail{
			Explanation: "The offer does not specify a minimum education level. The candidate's highest degree is shown for reference.",
			Details:     facts,
		}
	}

	// 岗位指定了最低学历：区分同级与更高学位
	var sameLevel, higher []types.EducationEntry
	for _, edu := range cv.Education {
		level := edu.Number.Float64()
		if level == minLevel {
			sameLevel = append(sameLevel, edu)
		} else if level > minLevel {
			higher = append(higher, edu)
		}
	}

	matchText := "The candidate does not meet the minimum requirement."
	if len(sameLevel) > 0 || len(higher) > 0 {
		matchText = "The candidate meets the minimum requirement."
	}

	var equivalent types.EducationEntry
	if len(sameLevel) > 0 {
		equivalent = sameLevel[0]
	} else if len(higher) > 0 && highest != nil {
		equivalent = *highest
	}

	higherDegrees := make([]string, 0, len(higher))
	for _, edu := range higher {
		higherDegrees = append(higherDegrees, edu.Degree)
	}

	return types.EducationDetail{
		Explanation: fmt.Sprintf("The offer requires at least %s. %s", minLabel, matchText),
		Details: types.EducationFacts{
			MinimumRequiredLevel:   minLabel,
			MinimumRequiredField:   minField,
			EquivalentLevelCV:      valueOr(equivalent.Degree, "Not available"),
			EquivalentFieldCV:      valueOr(equivalent.Field, "Not available"),
			HigherEducationDegrees: higherDegrees,
			MeetsRequirement:       educationScore >= 0.5,
		},
	}
}

// buildSectorDetail 生成行业解释块，给出双方的原始行业文本与百分比相似度
func buildSectorDetail(offer *types.OfferRecord, cv *types.CandidateRecord, sectorScore float64) types.SectorDetail {
	offerSector := offer.Sector.Display()
	cvSector := cv.PrimarySector.Display()
	similarityPct := round1(sectorScore * 100)

	explanation := fmt.Sprintf("The offer's sector is '%s' and your main sector is '%s'. The similarity between both sectors is %v%%.",
		offerSector, cvSector, similarityPct)

	return types.SectorDetail{
		Explanation: explanation,
		Details: types.SectorFacts{
			OfferSector: offerSector,
			CVSector:    cvSector,
			Similarity:  similarityPct,
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
