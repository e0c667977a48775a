package matcher

import (
	"context"

	"cv-match-go/internal/types"
)

// educationFieldPrefix 为专业领域短语提供统一语境
const educationFieldPrefix = "field of study: "

// perLevelBonus 每高出最低学历一级、按专业相似度折算的加分系数
const perLevelBonus = 0.1

// EducationScore 计算学历维度分数。
// 岗位最低等级为0表示不设门槛；候选人无教育经历或最高学历低于门槛时为0（硬性门槛）。
// 达标时取所有不低于门槛学历中专业相似度（加0.05）的最大值，
// 严格高于门槛的学历再按 0.1×超出级数×专业相似度 累加，总分钳制在1.0。
func (e *Engine) EducationScore(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord) (float64, error) {
	ctx, span := tracer.Start(ctx, "Engine.EducationScore")
	defer span.End()

	minLevel := offer.MinEducationLevel()

	if len(cv.Education) == 0 {
		return 0, nil
	}

	highest := 0.0
	for _, edu := range cv.Education {
		if level := edu.Number.Float64(); level > highest {
			highest = level
		}
	}
	if highest < minLevel {
		return 0, nil
	}

	// 一次批量向量化：岗位专业在前，各学历专业依序在后
	offerField := educationFieldPrefix + canonicalField(offer.EducationField())
	texts := make([]string, 0, len(cv.Education)+1)
	texts = append(texts, offerField)
	for _, edu := range cv.Education {
		texts = append(texts, educationFieldPrefix+canonicalField(edu.Field))
	}

	vectors, err := e.handle.embedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	offerVec := vectors[0]

	best := 0.0
	addon := 0.0
	for i, edu := range cv.Education {
		level := edu.Number.Float64()
		if level < minLevel {
			continue
		}
		sim := boosted(cosineSimilarity(offerVec, vectors[i+1]), educationBoost)
		if sim > best {
			best = sim
		}
		if level > minLevel {
			addon += perLevelBonus * (level - minLevel) * sim
		}
	}

	return boosted(best, addon), nil
}

// canonicalField 专业文本归一化，规则与行业一致：小写、去空白、逗号改为" and"
func canonicalField(field string) string {
	return types.NewSector(field).Canonical()
}
