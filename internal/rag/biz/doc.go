// Package biz 实现检索增强生成（RAG）流水线。
//
// 流水线由 Indexer（分块、向量化、写入）、Retriever（相似度检索与阈值判定）
// 和 Generator（提示词组装与 LLM 调用）组成，RAGService 在其上提供文档的
// 导入、删除、列举以及问答操作。所有公开操作都返回带状态的结果，不向调用方
// 暴露原始错误。
package biz
