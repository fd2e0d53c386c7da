// Package textutil 提供 RAG 相关的文本处理工具函数。
package textutil

import (
	"unicode"
)

const (
	// DefaultChunkSize 默认分块大小（Unicode 字符数）。
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 默认相邻分块的重叠大小。
	DefaultChunkOverlap = 200
)

// Chunk 是文档文本中连续的一段。
type Chunk struct {
	// Index 是分块在文档中的序号，从 0 开始。
	Index int
	// Text 是分块文本。
	Text string
	// Start 是分块在原文中的起始字符偏移（按 rune 计）。
	Start int
	// Overlap 是与前一分块重叠的字符数，第一个分块为 0。
	Overlap int
}

// Chunker 将文本切分为有界长度、相互重叠的分块。
//
// 切分点依次优先选择段落边界、句子边界、单词边界，都找不到时按长度硬切。
// 相同输入与配置总是得到相同的结果，去掉重叠部分后依次拼接可还原原文。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建分块器。size <= 0 时使用默认值，overlap 被限制在 [0, size) 内。
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size 返回最大分块长度。
func (c *Chunker) Size() int { return c.size }

// Overlap 返回配置的重叠长度。
func (c *Chunker) Overlap() int { return c.overlap }

// Split 切分文本。空文本返回 nil。
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start, prevEnd := 0, 0
	for {
		overlap := 0
		if len(chunks) > 0 {
			overlap = prevEnd - start
		}

		if n-start <= c.size {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:]), Start: start, Overlap: overlap})
			return chunks
		}

		end := c.breakPoint(runes, start)
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:end]), Start: start, Overlap: overlap})

		prevEnd = end
		start = c.nextStart(runes, start, end)
	}
}

// SplitText 切分文本并只返回分块文本。
func (c *Chunker) SplitText(text string) []string {
	chunks := c.Split(text)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}

// breakPoint 在 (start+minAdvance, start+size] 内寻找最合适的切分位置。
// 返回值始终大于 start+overlap，保证下一个分块向前推进。
func (c *Chunker) breakPoint(runes []rune, start int) int {
	limit := start + c.size
	lo := start + c.overlap + 1
	if half := start + c.size/2; half > lo {
		lo = half
	}

	// 段落：切在空行之后
	for i := limit; i >= lo; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// 句子：切在句末标点及其后的空白之后
	for i := limit; i >= lo; i-- {
		if i >= 2 && isSentenceEnd(runes[i-2]) && unicode.IsSpace(runes[i-1]) {
			return i
		}
		if isCJKSentenceEnd(runes[i-1]) || runes[i-1] == '\n' {
			return i
		}
	}
	// 单词：切在空白之后
	for i := limit; i >= lo; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}

// nextStart 计算下一分块的起点：从 end-overlap 开始，尽量对齐到单词开头。
func (c *Chunker) nextStart(runes []rune, start, end int) int {
	next := end - c.overlap
	if next <= start {
		next = start + 1
	}
	if c.overlap == 0 || next == end {
		return next
	}
	if next > 0 && unicode.IsSpace(runes[next-1]) {
		return next
	}
	for i := next; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return next
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCJKSentenceEnd(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}
