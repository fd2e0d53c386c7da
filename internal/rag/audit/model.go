// Package audit 将流水线事件持久化到 SQL 数据库，形成文档与查询的审计记录。
package audit

import (
	"time"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
)

// Record 审计记录。
type Record struct {
	ID        string `json:"id" gorm:"primaryKey;size:26;comment:ULID"`
	Type      string `json:"type" gorm:"size:64;index;comment:事件类型"`
	Message   string `json:"message" gorm:"size:1024;comment:事件描述"`
	DocID     string `json:"doc_id,omitempty" gorm:"size:64;index;comment:文档ID"`
	FileName  string `json:"file_name,omitempty" gorm:"size:512;comment:文件名"`
	Mode      string `json:"mode,omitempty" gorm:"size:16;comment:回答模式"`
	Count     int    `json:"count" gorm:"default:0;comment:分块数或命中数"`
	Error     string `json:"error,omitempty" gorm:"size:1024;comment:错误信息"`
	CreatedAt int64  `json:"created_at" gorm:"index;comment:事件时间(毫秒时间戳)"`
}

// TableName returns the table name for GORM.
func (r *Record) TableName() string {
	return "rag_audit_records"
}

func recordFromEvent(id string, e biz.Event) *Record {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Record{
		ID:        id,
		Type:      string(e.Type),
		Message:   e.Message,
		DocID:     e.DocID,
		FileName:  e.FileName,
		Mode:      e.Mode,
		Count:     e.Count,
		Error:     e.Error,
		CreatedAt: ts.UnixMilli(),
	}
}
