package models

import (
	"time"

	"gorm.io/datatypes"
)

// MatchRecord 一次岗位-简历匹配的持久化记录。
// Result保存完整的匹配结果JSON，五个分数列冗余出来便于查询统计。
type MatchRecord struct {
	MatchUUID string `gorm:"type:varchar(36);primaryKey"`

	OfferCompany string `gorm:"type:varchar(255)"`
	OfferRole    string `gorm:"type:varchar(255);index"`

	// 原始输入的指纹，也是缓存键的组成部分
	OfferTextMD5  string `gorm:"type:varchar(32);not null;index:idx_match_inputs"`
	ResumeFileMD5 string `gorm:"type:varchar(32);not null;index:idx_match_inputs"`

	// 原始简历在对象存储中的路径
	ResumeObjectKey string `gorm:"type:varchar(512)"`

	TechnicalSkillsScore int `gorm:"not null"`
	SoftSkillsScore      int `gorm:"not null"`
	RoleExperienceScore  int `gorm:"not null"`
	EducationScore       int `gorm:"not null"`
	SectorScore          int `gorm:"not null"`

	// 完整的匹配结果（分数+解释块）
	Result datatypes.JSON `gorm:"type:json;not null"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index"`
}

// TableName 指定表名
func (MatchRecord) TableName() string {
	return "match_records"
}
