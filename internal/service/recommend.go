package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/utils"
)

// 推荐检索参数
const (
	searchTopK        = 5 // 向量检索候选数
	recommendLimit    = 3 // 最终返回条数
	recommendCacheSz  = 256
	recommendCacheTTL = 10 * time.Minute
)

// VectorSearcher 向量检索接口，由 repository 实现
type VectorSearcher interface {
	SearchByEmbedding(vec []float32, category string, tags []string, topK int) ([]model.ContentItem, error)
}

// RecommendService 画像驱动的语义推荐
type RecommendService struct {
	searcher VectorSearcher
	embedder utils.Embedder
	cache    *utils.ResultCache[[]model.ContentItem]
}

// NewRecommendService 创建推荐服务
func NewRecommendService(searcher VectorSearcher, embedder utils.Embedder) *RecommendService {
	return &RecommendService{
		searcher: searcher,
		embedder: embedder,
		cache:    utils.NewResultCache[[]model.ContentItem](recommendCacheSz, recommendCacheTTL),
	}
}

// Recommend 按用户画像返回推荐列表
// 向量化或检索失败都按零结果处理，不把错误抛给调用方
func (s *RecommendService) Recommend(profile model.UserProfile) ([]model.ContentItem, error) {
	if !model.ValidCategory(profile.Category) {
		return nil, fmt.Errorf("无效的分类: %s", profile.Category)
	}
	if len(profile.MoodIDs) > 2 {
		profile.MoodIDs = profile.MoodIDs[:2]
	}

	cacheKey := profile.CacheKey()
	if cached, found := s.cache.Get(cacheKey); found {
		return cached, nil
	}

	// 画像 → 检索文本 → 向量
	queryText := s.buildQueryText(profile)
	vec, err := s.embedder.Embed(queryText)
	if err != nil {
		// 向量服务不可用时退化为空列表
		log.Printf("[推荐] 检索向量生成失败: %v", err)
		return []model.ContentItem{}, nil
	}

	// 预过滤标签：所选氛围的粗粒度标签并集
	filterTags := s.filterTags(profile.MoodIDs)

	items, err := s.searcher.SearchByEmbedding(vec, profile.Category, filterTags, searchTopK)
	if err != nil {
		log.Printf("[推荐] 向量检索失败: %v", err)
		return []model.ContentItem{}, nil
	}

	// 无可播平台的条目不进入结果
	filtered := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if len(item.ProviderList()) == 0 {
			continue
		}
		filtered = append(filtered, item)
	}

	if len(filtered) > recommendLimit {
		filtered = filtered[:recommendLimit]
	}

	s.cache.Set(cacheKey, filtered)
	return filtered, nil
}

// buildQueryText 画像拼接成检索文本：氛围展示名 + 分类展示名
func (s *RecommendService) buildQueryText(profile model.UserProfile) string {
	var parts []string
	for _, moodID := range profile.MoodIDs {
		if mood, ok := moodTable[moodID]; ok {
			parts = append(parts, mood.NameZH)
		}
	}
	if name, ok := categoryNamesZH[profile.Category]; ok {
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

// filterTags 所选氛围的检索预过滤标签并集
func (s *RecommendService) filterTags(moodIDs []string) []string {
	var tags []string
	for _, moodID := range moodIDs {
		if mood, ok := moodTable[moodID]; ok {
			for _, tag := range mood.FilterTags {
				if !containsString(tags, tag) {
					tags = append(tags, tag)
				}
			}
		}
	}
	return tags
}

// InvalidateCache 清空推荐缓存（采集运行结束后调用）
func (s *RecommendService) InvalidateCache() {
	s.cache.Clear()
}
