package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat 宽容的数字类型：LLM输出的数字字段可能是数字、数字字符串或null。
// 无法转换的值按0处理，只影响单个字段，不中断整个匹配流程。
type FlexFloat float64

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = 0
		return nil
	}

	// 先按数字解析
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}

	// 再尝试数字字符串，例如 "3" 或 "3.5"
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if parsed, perr := strconv.ParseFloat(strings.TrimSpace(str), 64); perr == nil {
			*f = FlexFloat(parsed)
			return nil
		}
	}

	// 结构性不匹配：该字段按缺失处理
	*f = 0
	return nil
}

// Float64 返回底层数值
func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// SectorValue 行业字段的标记联合：上游抽取可能给出单个字符串，也可能给出字符串列表。
// 两种形态都必须接受，并能归一化为一个规范字符串。
type SectorValue struct {
	values []string
	single bool
}

// NewSector 用单个字符串构造行业值
func NewSector(s string) SectorValue {
	return SectorValue{values: []string{s}, single: true}
}

// NewSectorList 用字符串列表构造行业值
func NewSectorList(list []string) SectorValue {
	return SectorValue{values: list}
}

// UnmarshalJSON 接受字符串或字符串数组两种形态
func (s *SectorValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = SectorValue{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = NewSector(str)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = NewSectorList(list)
		return nil
	}

	// 形态错误的列表按空处理，交由评分器得出0分
	*s = SectorValue{}
	return nil
}

// MarshalJSON 保留原始形态输出
func (s SectorValue) MarshalJSON() ([]byte, error) {
	if s.single {
		return json.Marshal(s.values[0])
	}
	if s.values == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.values)
}

// IsEmpty 判断行业值是否缺失或为空
func (s SectorValue) IsEmpty() bool {
	if len(s.values) == 0 {
		return true
	}
	if s.single {
		return strings.TrimSpace(s.values[0]) == ""
	}
	return false
}

// Canonical 归一化为规范字符串：小写、去除首尾空白；
// 列表以 " and " 连接，单值将逗号替换为 " and"。
func (s SectorValue) Canonical() string {
	if s.single {
		v := strings.TrimSpace(strings.ToLower(s.values[0]))
		return strings.ReplaceAll(v, ",", " and")
	}
	parts := make([]string, 0, len(s.values))
	for _, v := range s.values {
		parts = append(parts, strings.TrimSpace(strings.ToLower(v)))
	}
	return strings.Join(parts, " and ")
}

// Display 返回展示用的原始文本：列表以 " and " 连接，单值原样返回
func (s SectorValue) Display() string {
	if s.single {
		return s.values[0]
	}
	return strings.Join(s.values, " and ")
}

// EducationRequirement 岗位的学历要求。Number为0表示"不要求最低学历"，
// 而不是"要求0级学历"，该哨兵值必须全程保留。
type EducationRequirement struct {
	Field  string    `json:"field"`
	Number FlexFloat `json:"number"`
	Min    string    `json:"min"`
}

// ExperienceRequirement 岗位的经验年限要求。Min缺失表示无最低要求，
// Max缺失表示无上限（按9999处理）。
type ExperienceRequirement struct {
	Min *FlexFloat `json:"min"`
	Max *FlexFloat `json:"max"`
}

// DefaultMaxExperienceYears 经验上限的哨兵值，表示"无上限"
const DefaultMaxExperienceYears = 9999.0

// MinYears 返回最低经验年限，缺失时为0
func (e *ExperienceRequirement) MinYears() float64 {
	if e == nil || e.Min == nil {
		return 0
	}
	return e.Min.Float64()
}

// MaxYears 返回最高经验年限，缺失时为9999（无上限）
func (e *ExperienceRequirement) MaxYears() float64 {
	if e == nil || e.Max == nil {
		return DefaultMaxExperienceYears
	}
	return e.Max.Float64()
}

// OfferRecord 岗位的结构化要求，由LLM抽取并已按固定schema裁剪
type OfferRecord struct {
	Company            string                 `json:"company"`
	Role               string                 `json:"role"`
	Sector             SectorValue            `json:"sector"`
	Education          *EducationRequirement  `json:"education"`
	Experience         *ExperienceRequirement `json:"experience"`
	TechnicalAbilities []string               `json:"technical_abilities"`
	SoftSkills         []string               `json:"soft_skills"`
}

// MinEducationLevel 返回岗位要求的最低学历等级，未指定时为0
func (o *OfferRecord) MinEducationLevel() float64 {
	if o.Education == nil {
		return 0
	}
	return o.Education.Number.Float64()
}

// EducationField 返回岗位要求的学历专业，未指定时为空字符串
func (o *OfferRecord) EducationField() string {
	if o.Education == nil {
		return ""
	}
	return o.Education.Field
}

// EducationEntry 候选人的一条教育经历
type EducationEntry struct {
	Degree string    `json:"degree"`
	Number FlexFloat `json:"number"`
	Field  string    `json:"field"`
}

// RoleEntry 候选人在某公司担任的一个职位
type RoleEntry struct {
	Position string    `json:"position"`
	Years    FlexFloat `json:"years"`
}

// CompanyExperience 候选人在一家公司的完整经历
type CompanyExperience struct {
	Company    string      `json:"company"`
	Roles      []RoleEntry `json:"roles"`
	TotalYears FlexFloat   `json:"total_years"`
}

// CandidateRecord 简历的结构化事实，由LLM抽取并已按固定schema裁剪
type CandidateRecord struct {
	Education          []EducationEntry    `json:"education"`
	Experience         []CompanyExperience `json:"experience"`
	PrimarySector      SectorValue         `json:"primary_sector"`
	SoftSkills         []string            `json:"soft_skills"`
	TechnicalAbilities []string            `json:"technical_abilities"`
}

// SkillsDetail 技能维度的展示结果。岗位技能数≥6时只给出前3和后3，
// 否则按相似度降序给出完整列表。两种形态互斥。
type SkillsDetail struct {
	Title         string   `json:"title,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	TopMatches    []string `json:"top_matches,omitempty"`
	BottomMatches []string `json:"bottom_matches,omitempty"`
}

// RoleExperienceFacts 经验维度的原始事实
type RoleExperienceFacts struct {
	Role            string  `json:"role"`
	MinYears        float64 `json:"min_years"`
	MaxYears        float64 `json:"max_years"`
	TotalExperience float64 `json:"total_experience"`
}

// RoleExperienceDetail 经验维度的解释块
type RoleExperienceDetail struct {
	Explanation string              `json:"explanation"`
	Details     RoleExperienceFacts `json:"details"`
}

// EducationFacts 学历维度的原始事实
type EducationFacts struct {
	MinimumRequiredLevel   string   `json:"minimum_required_level"`
	MinimumRequiredField   string   `json:"minimum_required_field"`
	EquivalentLevelCV      string   `json:"equivalent_level_cv"`
	EquivalentFieldCV      string   `json:"equivalent_field_cv"`
	HigherEducationDegrees []string `json:"higher_education_degrees"`
	MeetsRequirement       bool     `json:"meets_requirement"`
}

// EducationDetail 学历维度的解释块
type EducationDetail struct {
	Explanation string         `json:"explanation"`
	Details     EducationFacts `json:"details"`
}

// SectorFacts 行业维度的原始事实，Similarity为百分比（1位小数）
type SectorFacts struct {
	OfferSector string  `json:"offer_sector"`
	CVSector    string  `json:"cv_sector"`
	Similarity  float64 `json:"similarity"`
}

// SectorDetail 行业维度的解释块
type SectorDetail struct {
	Explanation string      `json:"explanation"`
	Details     SectorFacts `json:"details"`
}

// MatchResult 匹配引擎的最终输出，构建完成后不再修改
type MatchResult struct {
	TechnicalSkillsScore int `json:"technical_skills_score"`
	SoftSkillsScore      int `json:"soft_skills_score"`
	RoleExperienceScore  int `json:"role_experience_score"`
	EducationScore       int `json:"education_score"`
	SectorScore          int `json:"sector_score"`

	TechnicalSkills SkillsDetail `json:"technical_skills"`
	SoftSkills      SkillsDetail `json:"soft_skills"`

	RoleExperience RoleExperienceDetail `json:"role_experience"`
	Education      EducationDetail      `json:"education"`
	Sector         SectorDetail         `json:"sector"`
}
