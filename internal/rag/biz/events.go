package biz

import (
	"context"
	"time"

	"github.com/kart-io/sentinel-rag/internal/pkg/pubsub"
)

// 流水线事件类型。
const (
	EventDocumentIngested     pubsub.EventType = "document.ingested"
	EventDocumentIngestFailed pubsub.EventType = "document.ingest_failed"
	EventDocumentDeleted      pubsub.EventType = "document.deleted"
	EventQueryAnswered        pubsub.EventType = "query.answered"
	EventQueryFailed          pubsub.EventType = "query.failed"
)

// 传输层事件类型，由上传与查询入口发出。
const (
	EventDocumentUploaded     pubsub.EventType = "document.uploaded"
	EventDocumentUploadFailed pubsub.EventType = "document.upload_failed"
	EventQueryReceived        pubsub.EventType = "query.received"
)

// Event 是流水线发出的结构化事件。
type Event struct {
	Type      pubsub.EventType `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	DocID     string           `json:"doc_id,omitempty"`
	FileName  string           `json:"file_name,omitempty"`
	Mode      string           `json:"mode,omitempty"`
	Count     int              `json:"count,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// EventSink 接收流水线事件。实现不得阻塞调用方。
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink 丢弃所有事件。
type NopSink struct{}

// Emit 实现 EventSink。
func (NopSink) Emit(context.Context, Event) {}

// MultiSink 将事件依次投递给多个 sink。
type MultiSink []EventSink

// Emit 实现 EventSink。
func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

// BrokerSink 将事件发布到内存 Broker，供 WebSocket 日志流订阅。
type BrokerSink struct {
	broker *pubsub.Broker[Event]
}

// NewBrokerSink 创建 BrokerSink。
func NewBrokerSink(broker *pubsub.Broker[Event]) *BrokerSink {
	return &BrokerSink{broker: broker}
}

// Emit 实现 EventSink。
func (s *BrokerSink) Emit(_ context.Context, event Event) {
	s.broker.Publish(event.Type, event)
}
