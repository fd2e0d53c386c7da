// Package pubsub 提供基于内存的泛型发布/订阅 Broker。
//
// 发布永不阻塞：订阅者缓冲区已满时丢弃该订阅者的本次事件。
package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize 是每个订阅者通道的默认缓冲区大小。
const DefaultBufferSize = 64

// EventType 标识事件类型。
type EventType string

// Event 是一次发布的事件。
type Event[T any] struct {
	Type    EventType
	Payload T
}

// Broker 将事件扇出给所有活跃订阅者。
type Broker[T any] struct {
	mu         sync.RWMutex
	subs       map[chan Event[T]]struct{}
	done       chan struct{}
	bufferSize int
	dropped    atomic.Int64
}

// NewBroker 使用默认缓冲区大小创建 Broker。
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBufferSize)
}

// NewBrokerWithBuffer 创建指定订阅缓冲区大小的 Broker。
func NewBrokerWithBuffer[T any](bufferSize int) *Broker[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
}

// Subscribe 注册订阅者。ctx 结束或 Broker 关闭时通道被关闭。
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// Publish 将事件发送给所有订阅者，不阻塞调用方。
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{Type: t, Payload: payload}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount 返回当前订阅者数量。
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped 返回因订阅者缓冲区已满而丢弃的事件总数。
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Shutdown 关闭 Broker 及所有订阅通道，可重复调用。
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
