package matcher

import (
	"context"
	"fmt"
	"testing"

	"cv-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillsSimilarityEmptyEitherSide(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{TechnicalAbilities: []string{"go"}}
	cv := &types.CandidateRecord{}

	scored, score, err := engine.SkillsSimilarity(context.Background(), offer, cv, TechnicalSkills)
	require.NoError(t, err)
	assert.Empty(t, scored)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, fake.batches)
}

func TestSkillsSimilarityExactMatchSkipsEmbedding(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	// 大小写不敏感的同名匹配直接满分，完全不向量化
	offer := &types.OfferRecord{TechnicalAbilities: []string{"Go", "PYTHON"}}
	cv := &types.CandidateRecord{TechnicalAbilities: []string{"go", "python"}}

	scored, score, err := engine.SkillsSimilarity(context.Background(), offer, cv, TechnicalSkills)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	require.Len(t, scored, 2)
	assert.Equal(t, 1.0, scored[0].score)
	assert.Equal(t, 1.0, scored[1].score)
	assert.Empty(t, fake.batches)
}

func TestSkillsSimilarityMixedExactAndEmbedded(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"kubernetes": {1, 0, 0},
		"go":         {0, 1, 0},
		"docker":     {1, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{TechnicalAbilities: []string{"Go", "Kubernetes"}}
	cv := &types.CandidateRecord{TechnicalAbilities: []string{"go", "docker"}}

	scored, score, err := engine.SkillsSimilarity(context.Background(), offer, cv, TechnicalSkills)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	// go同名满分；kubernetes取与候选人各技能的最大余弦0.7071加0.1
	assert.Equal(t, 1.0, scored[0].score)
	assert.InDelta(t, 0.8071, scored[1].score, 0.001)
	assert.InDelta(t, (1.0+0.8071)/2, score, 0.001)

	// 只向量化一批：未命中的岗位技能+全部候选人技能
	require.Len(t, fake.batches, 1)
	assert.Equal(t, []string{"kubernetes", "go", "docker"}, fake.batches[0])
}

func TestSkillsSimilarityDeduplicatesAndLowercasesOfferSkills(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"kubernetes": {1, 0, 0},
		"go":         {0, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	// 重复技能（含大小写变体）只计一次，结果以小写形式报告
	offer := &types.OfferRecord{TechnicalAbilities: []string{"Go", "GO", "go", "Kubernetes"}}
	cv := &types.CandidateRecord{TechnicalAbilities: []string{"go"}}

	scored, score, err := engine.SkillsSimilarity(context.Background(), offer, cv, TechnicalSkills)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "go", scored[0].skill)
	assert.Equal(t, "kubernetes", scored[1].skill)
	assert.Equal(t, 1.0, scored[0].score)

	// 平均数基于去重后的技能集：(1.0 + 0.1) / 2
	assert.InDelta(t, 0.55, score, 0.001)

	// 向量化批次里重复技能同样只出现一次
	require.Len(t, fake.batches, 1)
	assert.Equal(t, []string{"kubernetes", "go"}, fake.batches[0])
}

func TestSkillsSimilaritySoftCategory(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{
		TechnicalAbilities: []string{"go"},
		SoftSkills:         []string{"Teamwork"},
	}
	cv := &types.CandidateRecord{
		SoftSkills: []string{"teamwork"},
	}

	_, score, err := engine.SkillsSimilarity(context.Background(), offer, cv, SoftSkills)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestSkillsSimilarityUnknownCategory(t *testing.T) {
	engine := NewEngine(providerOf(&fakeEmbedder{}))
	_, _, err := engine.SkillsSimilarity(context.Background(), &types.OfferRecord{}, &types.CandidateRecord{}, SkillCategory("magic"))
	assert.Error(t, err)
}

func TestSkillsSimilarityPropagatesEmbedError(t *testing.T) {
	fake := &fakeEmbedder{err: fmt.Errorf("服务不可用")}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{TechnicalAbilities: []string{"go"}}
	cv := &types.CandidateRecord{TechnicalAbilities: []string{"rust"}}

	_, _, err := engine.SkillsSimilarity(context.Background(), offer, cv, TechnicalSkills)
	assert.Error(t, err)
}

func TestBuildSkillsDetailFullListUnderThreshold(t *testing.T) {
	scored := []scoredSkill{
		{skill: "go", score: 0.5},
		{skill: "python", score: 1.0},
		{skill: "rust", score: 0.8},
	}

	detail := buildSkillsDetail(scored, "Technical skills similarity order")
	assert.Equal(t, "Technical skills similarity order", detail.Title)
	assert.Equal(t, []string{"python", "rust", "go"}, detail.Skills)
	assert.Empty(t, detail.TopMatches)
	assert.Empty(t, detail.BottomMatches)
}

func TestBuildSkillsDetailSplitsAtThreshold(t *testing.T) {
	scored := []scoredSkill{
		{skill: "a", score: 0.1},
		{skill: "b", score: 0.9},
		{skill: "c", score: 0.5},
		{skill: "d", score: 1.0},
		{skill: "e", score: 0.3},
		{skill: "f", score: 0.7},
	}

	detail := buildSkillsDetail(scored, "Technical skills similarity order")
	// ≥6个技能只保留前3和后3，不再输出标题和完整列表
	assert.Empty(t, detail.Title)
	assert.Empty(t, detail.Skills)
	assert.Equal(t, []string{"d", "b", "f"}, detail.TopMatches)
	assert.Equal(t, []string{"c", "e", "a"}, detail.BottomMatches)
}

func TestBuildSkillsDetailStableOrderOnTies(t *testing.T) {
	scored := []scoredSkill{
		{skill: "first", score: 0.5},
		{skill: "second", score: 0.5},
		{skill: "third", score: 0.5},
	}

	detail := buildSkillsDetail(scored, "Soft skills similarity order")
	// 同分保持岗位原始顺序
	assert.Equal(t, []string{"first", "second", "third"}, detail.Skills)
}
