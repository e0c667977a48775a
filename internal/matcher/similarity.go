package matcher

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// 各维度的校准加成：短语间的余弦相似度系统性偏低，
// 加一个小的固定值补偿，上限始终钳制在1.0。
// 角色权重使用原始余弦值，不加成。
const (
	sectorBoost    = 0.1
	skillBoost     = 0.1
	educationBoost = 0.05
)

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本批量转换为向量表示，保持输入顺序
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)
}

// EmbedderProvider 延迟构造向量化器。首次调用承担模型加载/连接开销，
// 之后在引擎的整个生命周期内复用同一实例，不再重新初始化。
type EmbedderProvider func() (TextEmbedder, error)

// embedderHandle 对EmbedderProvider做一次性初始化守卫
type embedderHandle struct {
	provider EmbedderProvider
	once     sync.Once
	embedder TextEmbedder
	err      error
}

func newEmbedderHandle(provider EmbedderProvider) *embedderHandle {
	return &embedderHandle{provider: provider}
}

// get 返回已初始化的向量化器；初始化失败的结果同样被缓存
func (h *embedderHandle) get() (TextEmbedder, error) {
	h.once.Do(func() {
		if h.provider == nil {
			h.err = fmt.Errorf("未提供EmbedderProvider")
			return
		}
		h.embedder, h.err = h.provider()
		if h.err == nil && h.embedder == nil {
			h.err = fmt.Errorf("EmbedderProvider返回了空的向量化器")
		}
	})
	return h.embedder, h.err
}

// embedBatch 将一组文本向量化，校验返回数量与输入一致
func (h *embedderHandle) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	embedder, err := h.get()
	if err != nil {
		return nil, fmt.Errorf("初始化向量化器失败: %w", err)
	}
	vectors, err := embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("向量化失败: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("向量化结果数量不一致: 期望%d个, 实际%d个", len(texts), len(vectors))
	}
	return vectors, nil
}

// cosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致或任一向量为零向量时返回0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// boosted 加成后钳制在1.0以内；加成单调，不会降低任何原始分数
func boosted(sim, boost float64) float64 {
	return math.Min(1.0, sim+boost)
}
