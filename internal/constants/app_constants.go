package constants

import "time"

const (
	// 简历文本长度边界（字符数），超出范围视为提取失败
	MinResumeTextLength = 10
	MaxResumeTextLength = 10000

	// 岗位描述文本长度边界（字符数）
	MinOfferTextLength = 100
	MaxOfferTextLength = 10000

	// MaxResumeFileSize 上传简历文件的大小上限（字节）
	MaxResumeFileSize = 5 * 1024 * 1024
	// MinResumeFileSize 上传简历文件的大小下限（字节）
	MinResumeFileSize = 10

	// MatchCacheDuration 匹配结果缓存的有效期
	MatchCacheDuration = 24 * time.Hour
)
