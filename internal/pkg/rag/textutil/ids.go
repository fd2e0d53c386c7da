package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// HashString 计算字符串的 MD5 哈希值（十六进制）。
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// DocID 由文件名派生文档 ID。同名文件得到相同的 ID。
func DocID(fileName string) string {
	return HashString(fileName)
}

// PointID 由文档 ID 与分块序号派生向量点 ID，格式为 UUID。
// 相同的 (docID, index) 总是得到相同的 ID。
func PointID(docID string, index int) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s_%d", docID, index)))
	return uuid.Must(uuid.FromBytes(hash[:])).String()
}
