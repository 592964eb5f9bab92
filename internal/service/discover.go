package service

import (
	"log"
	"time"

	"github.com/user/moovibe/internal/model"
)

// 发现查询的默认严格度
const (
	defaultMinVoteCount = 200
	defaultMinRating    = 6.5
	relaxedVoteCount    = 50
	recencyYears        = 10
	defaultSortBy       = "vote_average.desc"
)

// FilterSpec 发现查询的过滤条件，松弛链在它的副本上逐步放宽
type FilterSpec struct {
	MediaType     string // 端点类别，一次运行内不变
	GenreIDs      []int
	KeywordIDs    []int
	MinVoteCount  int
	MinRating     float64
	ReleasedAfter time.Time // 零值表示不限时间窗
	SortBy        string
}

// EndpointClass 由分类决定端点类别：电影走 movie，其余走 tv
func EndpointClass(category string) string {
	if category == model.CategoryMovie {
		return "movie"
	}
	return "tv"
}

// BuildFilterSpec 由（分类, 氛围）构造初始过滤条件
func BuildFilterSpec(category string, moodIDs []string, now time.Time) FilterSpec {
	spec := FilterSpec{
		MediaType:     EndpointClass(category),
		MinVoteCount:  defaultMinVoteCount,
		MinRating:     defaultMinRating,
		ReleasedAfter: now.AddDate(-recencyYears, 0, 0),
		SortBy:        defaultSortBy,
	}

	// 类型集合：剧集/动画用分类对应的类型 ID；
	// 氛围派生的类型只在电影端点并入；综艺不带类型过滤
	switch category {
	case model.CategoryDrama:
		spec.GenreIDs = []int{genreIDDrama}
	case model.CategoryAnimation:
		spec.GenreIDs = []int{genreIDAnimation}
	case model.CategoryMovie:
		for _, moodID := range moodIDs {
			if mood, ok := moodTable[moodID]; ok {
				for _, id := range mood.GenreIDs {
					if !containsInt(spec.GenreIDs, id) {
						spec.GenreIDs = append(spec.GenreIDs, id)
					}
				}
			}
		}
	}

	// 关键词集合（OR 组合），综艺整体跳过
	if category != model.CategoryVariety {
		for _, moodID := range moodIDs {
			if mood, ok := moodTable[moodID]; ok {
				for _, id := range mood.KeywordIDs {
					if !containsInt(spec.KeywordIDs, id) {
						spec.KeywordIDs = append(spec.KeywordIDs, id)
					}
				}
			}
		}
	}

	// 排序键取第一个声明了偏好的氛围
	for _, moodID := range moodIDs {
		if mood, ok := moodTable[moodID]; ok && mood.SortBy != "" {
			spec.SortBy = mood.SortBy
			break
		}
	}

	return spec
}

// relaxStep 松弛链的一步：命名 + 对过滤条件的放宽动作
type relaxStep struct {
	Name  string
	Apply func(*FilterSpec)
}

// relaxSteps 固定顺序的松弛链，逐步累加放宽，首个非空结果即停
var relaxSteps = []relaxStep{
	{"放开最低评分", func(s *FilterSpec) { s.MinRating = 0 }},
	{"降低最低票数", func(s *FilterSpec) { s.MinVoteCount = relaxedVoteCount }},
	{"放开时间窗口", func(s *FilterSpec) { s.ReleasedAfter = time.Time{} }},
	{"放开关键词过滤", func(s *FilterSpec) { s.KeywordIDs = nil }}, // 类型过滤始终保留
}

// Discoverer 发现查询的执行器：松弛 + 翻页聚合
type Discoverer struct {
	catalog  CatalogAPI
	maxPages int
}

// NewDiscoverer 创建执行器
func NewDiscoverer(catalog CatalogAPI) *Discoverer {
	return &Discoverer{
		catalog:  catalog,
		maxPages: 5,
	}
}

// Collect 执行发现查询，必要时松弛过滤条件并翻页，返回去重且截断后的列表
// 翻页失败只中止翻页，不让调用失败；返回已累积的结果（可能为空）
func (d *Discoverer) Collect(spec FilterSpec, want int) []CatalogItem {
	items := d.fetchPage(spec, 1)

	// 零结果时按固定顺序放宽，首个非空即停；端点类别不变
	if len(items) == 0 {
		relaxed := spec
		for _, step := range relaxSteps {
			step.Apply(&relaxed)
			items = d.fetchPage(relaxed, 1)
			if len(items) > 0 {
				log.Printf("[发现] 松弛生效: %s", step.Name)
				spec = relaxed
				break
			}
		}
	}

	// 结果不足则带着同一份过滤条件继续翻页
	for page := 2; len(items) < want && page <= d.maxPages; page++ {
		pageItems, err := d.catalog.Discover(spec, page)
		if err != nil {
			log.Printf("[发现] 第 %d 页请求失败，停止翻页: %v", page, err)
			break
		}
		if len(pageItems) == 0 {
			break
		}
		items = append(items, pageItems...)
	}

	items = dedupeItems(items)
	if len(items) > want {
		items = items[:want]
	}
	return items
}

// fetchPage 拉取单页，请求失败按空页处理
func (d *Discoverer) fetchPage(spec FilterSpec, page int) []CatalogItem {
	items, err := d.catalog.Discover(spec, page)
	if err != nil {
		log.Printf("[发现] 查询失败，按零结果处理: %v", err)
		return nil
	}
	return items
}

// dedupeItems 按条目 ID 去重，保留首次出现顺序
func dedupeItems(items []CatalogItem) []CatalogItem {
	seen := make(map[int]bool, len(items))
	result := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		result = append(result, item)
	}
	return result
}
