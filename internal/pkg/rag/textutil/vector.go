package textutil

import "math"

// CosineSimilarity 计算两个向量的余弦相似度，范围 [-1, 1]。
// 长度不一致或存在零向量时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RoundScore 将分数四舍五入到 4 位小数。
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
