package audit

import (
	"context"

	"gorm.io/gorm"
)

// ListOptions 审计记录查询条件。
type ListOptions struct {
	// Type 按事件类型过滤，空表示全部。
	Type string
	// DocID 按文档过滤，空表示全部。
	DocID string
	// Limit 最多返回条数。
	Limit int
}

// Store 审计记录存储。
type Store struct {
	db *gorm.DB
}

// NewStore 创建存储实例。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate 创建或更新审计表。
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Record{})
}

// Create 写入一条记录。
func (s *Store) Create(ctx context.Context, r *Record) error {
	return s.db.WithContext(ctx).Create(r).Error
}

// List 按时间倒序返回记录。
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}

	q := s.db.WithContext(ctx).Model(&Record{})
	if opts.Type != "" {
		q = q.Where("type = ?", opts.Type)
	}
	if opts.DocID != "" {
		q = q.Where("doc_id = ?", opts.DocID)
	}

	var records []Record
	err := q.Order("created_at DESC").Order("id DESC").Limit(opts.Limit).Find(&records).Error
	return records, err
}
