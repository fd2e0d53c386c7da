// Package deepseek 提供 DeepSeek 文本生成供应商。
// DeepSeek API 兼容 OpenAI chat/completions 格式，不提供 Embedding。
package deepseek

import (
	"fmt"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/openai"
)

// ProviderName 是 DeepSeek 供应商的名称标识符。
const ProviderName = "deepseek"

// DefaultBaseURL 是 DeepSeek 官方 API 地址。
const DefaultBaseURL = "https://api.deepseek.com"

func init() {
	llm.RegisterChatProvider(ProviderName, NewProvider)
}

// Provider 复用 OpenAI 兼容实现，仅覆盖名称。
type Provider struct {
	*openai.Provider
}

// NewProvider 从配置 map 创建 DeepSeek 供应商。
func NewProvider(configMap map[string]any) (llm.ChatProvider, error) {
	cfg := openai.DefaultConfig()
	cfg.BaseURL = DefaultBaseURL
	cfg.ChatModel = "deepseek-chat"
	cfg.EmbedModel = ""

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["temperature"].(float64); ok {
		cfg.Temperature = v
	}
	if v, ok := configMap["max_tokens"].(int); ok {
		cfg.MaxTokens = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek: api_key 是必需的")
	}
	return &Provider{Provider: openai.NewProviderWithConfig(cfg)}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}
