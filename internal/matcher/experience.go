package matcher

import (
	"context"
	"math"

	"cv-match-go/internal/types"
)

// ExperienceSummary 角色经验维度的计算结果
type ExperienceSummary struct {
	// WeightedYears 按职位相似度加权后的总年限
	WeightedYears float64
	// Percentage 相对岗位最低年限的达成度，[0,1]
	Percentage float64
	// MinYears 岗位要求的最低年限，未声明时为0
	MinYears float64
	// MaxYears 岗位要求的最高年限，未声明时为9999
	MaxYears float64
}

// RoleExperience 计算角色经验维度。候选人各职位的年限按与岗位角色的
// 余弦相似度（不加成）加权求和；岗位声明了最低年限时，达成度为
// 加权年限/最低年限并钳制在1.0，否则有任何相关经验即为1.0。
// 候选人无有效职位或岗位未声明角色时，四项全为0。
func (e *Engine) RoleExperience(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord) (ExperienceSummary, error) {
	ctx, span := tracer.Start(ctx, "Engine.RoleExperience")
	defer span.End()

	// 展平为 (职位, 年限) 对，跳过空职位和非正年限
	var positions []string
	var years []float64
	for _, company := range cv.Experience {
		for _, role := range company.Roles {
			if role.Position == "" || role.Years.Float64() <= 0 {
				continue
			}
			positions = append(positions, role.Position)
			years = append(years, role.Years.Float64())
		}
	}

	// 任一侧缺失时加权年限与达成度为0
	if len(positions) == 0 || offer.Role == "" {
		return ExperienceSummary{}, nil
	}

	// 一次批量向量化：岗位角色在前，各职位依序在后
	texts := make([]string, 0, len(positions)+1)
	texts = append(texts, offer.Role)
	texts = append(texts, positions...)
	vectors, err := e.handle.embedBatch(ctx, texts)
	if err != nil {
		return ExperienceSummary{}, err
	}
	roleVec := vectors[0]

	weighted := 0.0
	for i := range positions {
		weighted += cosineSimilarity(roleVec, vectors[i+1]) * years[i]
	}

	minYears := offer.Experience.MinYears()
	maxYears := offer.Experience.MaxYears()

	var percentage float64
	if minYears > 0 {
		percentage = math.Min(1.0, weighted/minYears)
	} else if weighted > 0 {
		percentage = 1.0
	}

	return ExperienceSummary{
		WeightedYears: weighted,
		Percentage:    percentage,
		MinYears:      minYears,
		MaxYears:      maxYears,
	}, nil
}
