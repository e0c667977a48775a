package matcher

import (
	"context"
	"fmt"
	"testing"

	"cv-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flexPtr(v float64) *types.FlexFloat {
	f := types.FlexFloat(v)
	return &f
}

func TestRoleExperienceNoUsablePositions(t *testing.T) {
	fake := &fakeEmbedder{}
	engine := NewEngine(providerOf(fake))

	// 空职位和非正年限都被过滤，即使岗位声明了年限边界也报告全0
	offer := &types.OfferRecord{
		Role:       "backend engineer",
		Experience: &types.ExperienceRequirement{Min: flexPtr(2), Max: flexPtr(5)},
	}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Company: "Acme", Roles: []types.RoleEntry{
			{Position: "", Years: 3},
			{Position: "developer", Years: 0},
		}},
	}}

	summary, err := engine.RoleExperience(context.Background(), offer, cv)
	require.NoError(t, err)
	assert.Equal(t, ExperienceSummary{}, summary)
	assert.Empty(t, fake.batches)
}

func TestRoleExperienceNoOfferRole(t *testing.T) {
	engine := NewEngine(providerOf(&fakeEmbedder{}))

	offer := &types.OfferRecord{
		Experience: &types.ExperienceRequirement{Min: flexPtr(2)},
	}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Roles: []types.RoleEntry{{Position: "developer", Years: 3}}},
	}}

	summary, err := engine.RoleExperience(context.Background(), offer, cv)
	require.NoError(t, err)
	assert.Equal(t, ExperienceSummary{}, summary)
}

func TestRoleExperienceWeightedSum(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"backend engineer": {1, 0, 0},
		"go developer":     {1, 0, 0},
		"waiter":           {0, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{
		Role:       "backend engineer",
		Experience: &types.ExperienceRequirement{Min: flexPtr(6), Max: flexPtr(10)},
	}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Company: "Acme", Roles: []types.RoleEntry{
			{Position: "go developer", Years: 3},
			{Position: "waiter", Years: 2},
		}},
	}}

	summary, err := engine.RoleExperience(context.Background(), offer, cv)
	require.NoError(t, err)

	// 加权年限 = 1.0×3 + 0.0×2 = 3，达成度 = 3/6
	assert.InDelta(t, 3.0, summary.WeightedYears, 1e-9)
	assert.InDelta(t, 0.5, summary.Percentage, 1e-9)
	assert.Equal(t, 6.0, summary.MinYears)
	assert.Equal(t, 10.0, summary.MaxYears)

	// 一次批量：岗位角色在前，各职位依序在后
	require.Len(t, fake.batches, 1)
	assert.Equal(t, []string{"backend engineer", "go developer", "waiter"}, fake.batches[0])
}

func TestRoleExperiencePercentageCapped(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"backend engineer": {1, 0, 0},
		"go developer":     {1, 0, 0},
	}}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{
		Role:       "backend engineer",
		Experience: &types.ExperienceRequirement{Min: flexPtr(2)},
	}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Roles: []types.RoleEntry{{Position: "go developer", Years: 8}}},
	}}

	summary, err := engine.RoleExperience(context.Background(), offer, cv)
	require.NoError(t, err)
	assert.Equal(t, 1.0, summary.Percentage)
	// Max缺失时按无上限处理
	assert.Equal(t, types.DefaultMaxExperienceYears, summary.MaxYears)
}

func TestRoleExperienceNoMinimumRequired(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"backend engineer": {1, 0, 0},
		"go developer":     {1, 1, 0},
	}}
	engine := NewEngine(providerOf(fake))

	// 未声明最低年限：有任何相关经验即为满分
	offer := &types.OfferRecord{Role: "backend engineer"}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Roles: []types.RoleEntry{{Position: "go developer", Years: 1}}},
	}}

	summary, err := engine.RoleExperience(context.Background(), offer, cv)
	require.NoError(t, err)
	assert.Equal(t, 1.0, summary.Percentage)
	assert.Equal(t, 0.0, summary.MinYears)
}

func TestRoleExperiencePropagatesEmbedError(t *testing.T) {
	fake := &fakeEmbedder{err: fmt.Errorf("服务不可用")}
	engine := NewEngine(providerOf(fake))

	offer := &types.OfferRecord{Role: "backend engineer"}
	cv := &types.CandidateRecord{Experience: []types.CompanyExperience{
		{Roles: []types.RoleEntry{{Position: "developer", Years: 3}}},
	}}

	_, err := engine.RoleExperience(context.Background(), offer, cv)
	assert.Error(t, err)
}
