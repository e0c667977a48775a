package matcher

import (
	"context"
	"fmt"
	"testing"

	"cv-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offerWithEducation(field string, minLevel float64) *types.OfferRecord {
	return &types.OfferRecord{
		Education: &types.EducationRequirement{
			Field:  field,
			Number: types.FlexFloat(minLevel),
			Min:    "Bachelor",
		},
	}
}

func TestEducationScoreNoCandidateEntries(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	score, err := engine.EducationScore(context.Background(), offerWithEducation("engineering", 3), &types.CandidateRecord{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, fake.batches)
}

func TestEducationScoreHardGate(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	// 最高学历2级低于门槛3级，直接0分且不向量化
	cv := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "High school", Number: 1, Field: "general"},
		{Degree: "Associate", Number: 2, Field: "engineering"},
	}}

	score, err := engine.EducationScore(context.Background(), offerWithEducation("engineering", 3), cv)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, fake.batches)
}

func TestEducationScoreBestSimilarityWithBoost(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"field of study: engineering":      {1, 0, 0},
		"field of study: computer science": {1, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	cv := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "computer science"},
	}}

	score, err := engine.EducationScore(context.Background(), offerWithEducation("engineering", 3), cv)
	require.NoError(t, err)
	// cos(45°)≈0.7071 加0.05学历加成，恰好达标无额外加分
	assert.InDelta(t, 0.7571, score, 0.001)
}

func TestEducationScoreHigherDegreeAddon(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"field of study: engineering": {1, 0, 0},
	}}
	engine := NewEngine(providerOf(fake))

	// 学士(3)达标，硕士(4)高出1级：专业完全一致时sim=1.0(已钳制)，
	// addon = 0.1×1×1.0 = 0.1，best=1.0，总分钳制在1.0
	cv := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "engineering"},
		{Degree: "Master", Number: 4, Field: "engineering"},
	}}

	score, err := engine.EducationScore(context.Background(), offerWithEducation("engineering", 3), cv)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestEducationScoreAddonIsMonotonic(t *testing.T) {
	vectors := map[string][]float64{
		"field of study: engineering": {1, 0, 0},
		"field of study: biology":     {1, 1, 0},
	}
	engine1 := NewEngine(providerOf(&fakeEmbedder{vectors: vectors}))
	engine2 := NewEngine(providerOf(&fakeEmbedder{vectors: vectors}))

	base := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "biology"},
	}}
	withMaster := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "biology"},
		{Degree: "Master", Number: 4, Field: "biology"},
	}}

	offer := offerWithEducation("engineering", 3)
	scoreBase, err := engine1.EducationScore(context.Background(), offer, base)
	require.NoError(t, err)
	scoreMaster, err := engine2.EducationScore(context.Background(), offer, withMaster)
	require.NoError(t, err)

	// 增加一条更高学历只会提高分数
	assert.Greater(t, scoreMaster, scoreBase)
	assert.LessOrEqual(t, scoreMaster, 1.0)
}

func TestEducationScoreNoMinimumRequirement(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"field of study: ":        {0, 1, 0},
		"field of study: biology": {1, 0, 0},
	}}
	engine := NewEngine(providerOf(fake))

	// 门槛为0：所有学历都达标，每一级都计入加分
	offer := &types.OfferRecord{}
	cv := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "biology"},
	}}

	score, err := engine.EducationScore(context.Background(), offer, cv)
	require.NoError(t, err)
	// sim = 0+0.05 = 0.05，addon = 0.1×3×0.05 = 0.015
	assert.InDelta(t, 0.065, score, 0.001)
}

func TestEducationScorePropagatesEmbedError(t *testing.T) {
	fake := &fakeEmbedder{err: fmt.Errorf("服务不可用")}
	engine := NewEngine(providerOf(fake))

	cv := &types.CandidateRecord{Education: []types.EducationEntry{
		{Degree: "Bachelor", Number: 3, Field: "engineering"},
	}}

	_, err := engine.EducationScore(context.Background(), offerWithEducation("engineering", 3), cv)
	assert.Error(t, err)
}
