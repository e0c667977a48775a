package matcher

import (
	"context"

	"cv-match-go/internal/types"
)

// sectorPrefix 为行业短语提供统一语境，提升短文本向量的区分度
const sectorPrefix = "principal job sector: "

// sectorFallbackScore 行业向量化失败时的降级分数：行业只是参考维度，
// 向量化故障不应拖垮整次匹配，返回中性值并记录告警。
const sectorFallbackScore = 0.5

// SectorSimilarity 计算岗位行业与候选人主行业的相似度。
// 任一侧缺失返回0；归一化后完全一致直接返回1，不发起向量化调用；
// 其余情况取余弦相似度加0.1的行业加成。该维度永不返回错误。
func (e *Engine) SectorSimilarity(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord) float64 {
	ctx, span := tracer.Start(ctx, "Engine.SectorSimilarity")
	defer span.End()

	if offer.Sector.IsEmpty() || cv.PrimarySector.IsEmpty() {
		return 0.0
	}

	offerText := sectorPrefix + offer.Sector.Canonical()
	cvText := sectorPrefix + cv.PrimarySector.Canonical()

	if offerText == cvText {
		return 1.0
	}

	vectors, err := e.handle.embedBatch(ctx, []string{cvText, offerText})
	if err != nil {
		e.logger.Printf("行业向量化失败，使用降级分数%.1f: %v", sectorFallbackScore, err)
		return sectorFallbackScore
	}

	return boosted(cosineSimilarity(vectors[0], vectors[1]), sectorBoost)
}
