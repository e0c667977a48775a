package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cv-match-go/internal/types"
)

// SkillCategory 技能维度的类别选择器
type SkillCategory string

const (
	// TechnicalSkills 技术技能
	TechnicalSkills SkillCategory = "technical"
	// SoftSkills 软技能
	SoftSkills SkillCategory = "soft"
)

// splitThreshold 岗位技能数达到该值时，展示结果只保留前3和后3
const splitThreshold = 6

// scoredSkill 单个岗位技能的匹配结果
type scoredSkill struct {
	skill string
	score float64
}

// SkillsSimilarity 计算指定类别的技能匹配。岗位技能先统一小写并去重
// （保留首次出现顺序），对每个去重后的技能：候选人技能中存在同名则得1.0；
// 否则取与所有候选人技能余弦相似度的最大值加0.1，钳制在1.0。
// 整体分数为去重后各技能分的算术平均。
// 返回值依次为：按岗位顺序的逐技能得分（小写）、整体分数、错误。
func (e *Engine) SkillsSimilarity(ctx context.Context, offer *types.OfferRecord, cv *types.CandidateRecord, category SkillCategory) ([]scoredSkill, float64, error) {
	ctx, span := tracer.Start(ctx, "Engine.SkillsSimilarity")
	defer span.End()

	var offerSkills, cvSkills []string
	switch category {
	case TechnicalSkills:
		offerSkills, cvSkills = offer.TechnicalAbilities, cv.TechnicalAbilities
	case SoftSkills:
		offerSkills, cvSkills = offer.SoftSkills, cv.SoftSkills
	default:
		return nil, 0, fmt.Errorf("未知的技能类别: %s", category)
	}

	if len(offerSkills) == 0 || len(cvSkills) == 0 {
		return nil, 0, nil
	}

	offerLower := dedupeLowercase(offerSkills)
	cvLower := lowercaseAll(cvSkills)

	cvSet := make(map[string]struct{}, len(cvLower))
	for _, s := range cvLower {
		cvSet[s] = struct{}{}
	}

	// 同名技能直接满分，只有未命中的技能才需要向量化
	var pending []string
	for _, s := range offerLower {
		if _, ok := cvSet[s]; !ok {
			pending = append(pending, s)
		}
	}

	var offerVecs, cvVecs [][]float64
	if len(pending) > 0 {
		texts := make([]string, 0, len(pending)+len(cvLower))
		texts = append(texts, pending...)
		texts = append(texts, cvLower...)
		vectors, err := e.handle.embedBatch(ctx, texts)
		if err != nil {
			return nil, 0, err
		}
		offerVecs = vectors[:len(pending)]
		cvVecs = vectors[len(pending):]
	}

	scored := make([]scoredSkill, 0, len(offerLower))
	pendingIdx := 0
	total := 0.0
	for _, s := range offerLower {
		score := 1.0
		if _, ok := cvSet[s]; !ok {
			best := 0.0
			for _, cvVec := range cvVecs {
				if sim := cosineSimilarity(offerVecs[pendingIdx], cvVec); sim > best {
					best = sim
				}
			}
			pendingIdx++
			score = boosted(best, skillBoost)
		}
		scored = append(scored, scoredSkill{skill: s, score: score})
		total += score
	}

	return scored, total / float64(len(scored)), nil
}

// buildSkillsDetail 组装技能展示块。先按分数稳定降序排列：
// 岗位技能≥6个时只展示前3和后3，否则给出带标题的完整有序列表。
func buildSkillsDetail(scored []scoredSkill, title string) types.SkillsDetail {
	if len(scored) == 0 {
		return types.SkillsDetail{}
	}

	ordered := make([]scoredSkill, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].score > ordered[j].score
	})

	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.skill
	}

	if len(names) >= splitThreshold {
		return types.SkillsDetail{
			TopMatches:    names[:3],
			BottomMatches: names[len(names)-3:],
		}
	}
	return types.SkillsDetail{
		Title:  title,
		Skills: names,
	}
}

func lowercaseAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(s)
	}
	return out
}

// dedupeLowercase 小写化并去重，保留首次出现顺序
func dedupeLowercase(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		lower := strings.ToLower(s)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}
