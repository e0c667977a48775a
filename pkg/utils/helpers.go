package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"gorm.io/datatypes"
)

// CalculateMD5 计算字节切片的MD5哈希
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// CalculateStringMD5 计算字符串的MD5哈希
func CalculateStringMD5(s string) string {
	return CalculateMD5([]byte(s))
}

// MarshalToJSON 辅助函数: 将任意值序列化为数据库JSON列
func MarshalToJSON(v interface{}) datatypes.JSON {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		// 序列化失败时退回空对象，调用方按缺失处理
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(jsonBytes)
}
