// Package store 提供文档块向量的存储抽象。
//
// VectorStore 有三种实现：Qdrant（REST 或 gRPC）、Milvus 以及进程内的
// MemoryStore。点的 payload 在所有实现中保持同一结构。
package store
