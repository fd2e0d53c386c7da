package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

const ragPromptTemplate = "Answer the question using the following documents.\n\n" +
	"Reference documents:\n%s\n\n" +
	"Question: %s\n\n" +
	"Answer:"

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// SystemPrompt 可选系统提示词。
	SystemPrompt string
	// Timeout 单次生成超时。
	Timeout time.Duration
}

// Generator 负责提示词组装与答案生成。
type Generator struct {
	chat   llm.ChatProvider
	config *GeneratorConfig
}

// NewGenerator 创建生成器实例。
func NewGenerator(chat llm.ChatProvider, config *GeneratorConfig) *Generator {
	return &Generator{chat: chat, config: config}
}

// BuildPrompt 用命中分块的文本组装 RAG 提示词。
// hits 为空时直接返回问题本身。
func BuildPrompt(question string, hits []store.ScoredPoint) string {
	if len(hits) == 0 {
		return question
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Payload.Text
	}
	return fmt.Sprintf(ragPromptTemplate, strings.Join(texts, "\n\n"), question)
}

// Generate 调用 LLM 生成回答。
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	answer, err := g.chat.Generate(ctx, prompt, g.config.SystemPrompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
