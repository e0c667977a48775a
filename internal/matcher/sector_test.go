package matcher

import (
	"context"
	"fmt"
	"testing"

	"cv-match-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestSectorSimilarityEmptyEitherSide(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{Sector: types.NewSector("finance")}
	cv := &types.CandidateRecord{}
	assert.Equal(t, 0.0, engine.SectorSimilarity(context.Background(), offer, cv))

	offer2 := &types.OfferRecord{}
	cv2 := &types.CandidateRecord{PrimarySector: types.NewSector("finance")}
	assert.Equal(t, 0.0, engine.SectorSimilarity(context.Background(), offer2, cv2))

	// 缺失时不发起任何向量化调用
	assert.Empty(t, fake.batches)
}

func TestSectorSimilarityIdenticalShortCircuits(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	// 大小写与首尾空白在归一化后一致
	offer := &types.OfferRecord{Sector: types.NewSector("  Finance ")}
	cv := &types.CandidateRecord{PrimarySector: types.NewSector("finance")}

	score := engine.SectorSimilarity(context.Background(), offer, cv)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, fake.batches)
}

func TestSectorSimilarityListAndCommaNormalization(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	// 列表以" and "连接，单值的逗号替换为" and"，两侧归一化后相同
	offer := &types.OfferRecord{Sector: types.NewSector("Banking, insurance")}
	cv := &types.CandidateRecord{PrimarySector: types.NewSectorList([]string{"Banking", "insurance"})}

	score := engine.SectorSimilarity(context.Background(), offer, cv)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, fake.batches)
}

func TestSectorSimilarityEmbedsWithBoost(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"principal job sector: finance":   {1, 0, 0},
		"principal job sector: insurance": {1, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{Sector: types.NewSector("finance")}
	cv := &types.CandidateRecord{PrimarySector: types.NewSector("insurance")}

	score := engine.SectorSimilarity(context.Background(), offer, cv)
	// cos(45°)≈0.7071 加0.1行业加成
	assert.InDelta(t, 0.8071, score, 0.001)
	assert.Len(t, fake.batches, 1)
	assert.Len(t, fake.batches[0], 2)
}

func TestSectorSimilarityFallbackOnEmbedFailure(t *testing.T) {
	fake := &fakeEmbedder{err: fmt.Errorf("服务不可用")}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{Sector: types.NewSector("finance")}
	cv := &types.CandidateRecord{PrimarySector: types.NewSector("insurance")}

	// 行业维度降级为0.5，不向上传播错误
	assert.Equal(t, 0.5, engine.SectorSimilarity(context.Background(), offer, cv))
}
