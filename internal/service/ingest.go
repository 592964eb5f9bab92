package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/utils"
	"golang.org/x/sync/singleflight"
)

// ContentStore 内容写入接口，由 repository 实现
type ContentStore interface {
	Save(item *model.ContentItem) error
}

// IngestRequest 一次采集运行的输入（由调度器或手动触发提供）
type IngestRequest struct {
	Category          string   `json:"category"`
	MoodIDs           []string `json:"mood_ids"`
	Count             int      `json:"count"`
	ForceMood         bool     `json:"force_mood"`         // 跳过氛围与类型的交集判断
	ForceAvailability bool     `json:"force_availability"` // 无平台也强制入库
}

// runKey 相同（分类, 氛围）的并发触发合并为一次运行
func (r IngestRequest) runKey() string {
	return r.Category + ":" + strings.Join(r.MoodIDs, ",")
}

// IngestResult 运行统计
type IngestResult struct {
	Discovered int `json:"discovered"` // 发现的条目数
	Saved      int `json:"saved"`      // 成功写入数
	Skipped    int `json:"skipped"`    // 跳过数（采集失败或无平台）
}

// IngestService 采集管线：发现 → 补全 → 打标 → 向量化 → 幂等写入
type IngestService struct {
	catalog    CatalogAPI
	store      ContentStore
	embedder   utils.Embedder
	discoverer *Discoverer
	enricher   *Enricher
	itemDelay  time.Duration // 条目之间的固定间隔，尊重提供方限流
	sf         singleflight.Group
}

// NewIngestService 创建采集服务
func NewIngestService(catalog CatalogAPI, store ContentStore, embedder utils.Embedder, region string, itemDelay time.Duration) *IngestService {
	return &IngestService{
		catalog:    catalog,
		store:      store,
		embedder:   embedder,
		discoverer: NewDiscoverer(catalog),
		enricher:   NewEnricher(catalog, region),
		itemDelay:  itemDelay,
	}
}

// Run 执行一次采集运行
// 单条目错误不会中止批次；返回值统计成功与跳过的数量
func (s *IngestService) Run(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if !model.ValidCategory(req.Category) {
		return nil, fmt.Errorf("无效的分类: %s", req.Category)
	}
	if len(req.MoodIDs) > 2 {
		req.MoodIDs = req.MoodIDs[:2]
	}
	if req.Count <= 0 {
		req.Count = 20
	}

	// 查找表每次运行拉取一次，之后只读
	genres, err := LoadGenreTable(s.catalog)
	if err != nil {
		return nil, fmt.Errorf("加载类型表失败: %w", err)
	}

	spec := BuildFilterSpec(req.Category, req.MoodIDs, time.Now())
	items := s.discoverer.Collect(spec, req.Count)
	log.Printf("[采集] 运行开始 (分类: %s, 氛围: %v)，发现 %d 条", req.Category, req.MoodIDs, len(items))

	result := &IngestResult{Discovered: len(items)}

	for i, item := range items {
		// 条目之间保持固定间隔
		if i > 0 && s.itemDelay > 0 {
			time.Sleep(s.itemDelay)
		}

		enrichment, err := s.enricher.Enrich(ctx, spec.MediaType, item)
		if err != nil {
			// 单条目致命错误：跳过并继续批次
			log.Printf("[采集] 条目补全失败，跳过 (ID: %d): %v", item.ID, err)
			result.Skipped++
			continue
		}

		saved, err := s.processOne(enrichment, genres, req)
		if err != nil {
			log.Printf("[采集] 条目写入失败，跳过 (ID: %d): %v", item.ID, err)
			result.Skipped++
			continue
		}
		if saved == nil {
			result.Skipped++
			continue
		}
		result.Saved++
	}

	log.Printf("[采集] 运行结束 (分类: %s)：写入 %d，跳过 %d", req.Category, result.Saved, result.Skipped)
	return result, nil
}

// processOne 单条目的打标、向量化和带可用性门禁的写入
// 返回写入后的条目；条目被门禁拦下（无平台且未强制）时返回 nil
func (s *IngestService) processOne(enrichment *Enrichment, genres *GenreTable, req IngestRequest) (*model.ContentItem, error) {
	item := s.buildContentItem(enrichment, genres, req)
	if item.TitleZH == "" {
		return nil, fmt.Errorf("无法解析出标题 (ID: %d)", enrichment.Item.ID)
	}

	// 可用性门禁：无平台且未强制时不入库
	providers := enrichment.Providers
	if len(providers) == 0 {
		if !req.ForceAvailability {
			log.Printf("[采集] 无播放平台，跳过: %s", item.TitleZH)
			return nil, nil
		}
		// 强制入库时补一条占位平台，同时作为强制收录的标记
		providers = []model.Provider{model.PlaceholderProvider()}
	}
	item.SetProviders(providers)

	// 向量化失败不阻塞写入，embedding 置空继续
	if text := enrichment.EmbeddingText(); text != "" {
		item.EmbeddingContent = text
		if vec, err := s.embedder.Embed(text); err != nil {
			log.Printf("[采集] 向量生成失败 (标题: %s): %v", item.TitleZH, err)
		} else {
			v := pgvector.NewVector(vec)
			item.Embedding = &v
		}
	}

	if err := s.store.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// buildContentItem 把多源采集结果归并为内容条目
func (s *IngestService) buildContentItem(enrichment *Enrichment, genres *GenreTable, req IngestRequest) *model.ContentItem {
	detail := enrichment.Detail
	summary := enrichment.Item

	tags := Classify(TagInput{
		GenreIDs:  enrichment.GenreIDs(),
		Keywords:  detail.Keywords,
		MoodIDs:   req.MoodIDs,
		ForceMood: req.ForceMood,
		Category:  req.Category,
		Rating:    detail.VoteAverage,
	}, genres)

	item := &model.ContentItem{
		TMDBID:        summary.ID,
		TitleZH:       detail.Title,
		DescriptionZH: detail.Overview,
		Rating:        detail.VoteAverage / 2, // 0-10 归一化到 0-5
		Year:          detail.Year,
		Category:      tags.Category,
		TagsZH:        tags.TagsZH,
		TagsEN:        tags.TagsEN,
	}
	item.SetExternalID(detail.IMDbID)

	if item.TitleZH == "" {
		item.TitleZH = summary.DisplayTitle()
	}
	if item.DescriptionZH == "" {
		item.DescriptionZH = summary.Overview
	}
	if item.Year == 0 {
		item.Year = summary.Year()
	}

	if enrichment.DetailEN != nil {
		item.TitleEN = enrichment.DetailEN.Title
		item.DescriptionEN = enrichment.DetailEN.Overview
	}

	posterPath := detail.PosterPath
	if posterPath == "" {
		posterPath = summary.PosterPath
	}
	if posterPath != "" {
		item.Poster = "https://image.tmdb.org/t/p/w500" + posterPath
	}

	return item
}

// RunSafe 合并并发触发：相同运行键同一时间只执行一次
func (s *IngestService) RunSafe(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	val, err, _ := s.sf.Do(req.runKey(), func() (interface{}, error) {
		return s.Run(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return val.(*IngestResult), nil
}

// RunAsync 异步触发一次采集运行
func (s *IngestService) RunAsync(req IngestRequest) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[采集] 异步运行发生恐慌 (分类: %s): %v", req.Category, r)
			}
		}()

		if _, err := s.RunSafe(context.Background(), req); err != nil {
			log.Printf("[采集] 异步运行失败 (分类: %s): %v", req.Category, err)
		}
	}()
}

// Backfill 按标题回填单个条目：搜索 → 补全 → 写入
// 手动触发的回填默认强制入库
func (s *IngestService) Backfill(ctx context.Context, category, title string) (*model.ContentItem, error) {
	if !model.ValidCategory(category) {
		return nil, fmt.Errorf("无效的分类: %s", category)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("标题不能为空")
	}

	genres, err := LoadGenreTable(s.catalog)
	if err != nil {
		return nil, fmt.Errorf("加载类型表失败: %w", err)
	}

	mediaType := EndpointClass(category)
	results, err := s.catalog.SearchByTitle(mediaType, title, LocaleZH)
	if err != nil {
		return nil, fmt.Errorf("标题搜索失败: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("未找到标题: %s", title)
	}

	enrichment, err := s.enricher.Enrich(ctx, mediaType, results[0])
	if err != nil {
		return nil, err
	}

	req := IngestRequest{Category: category, ForceAvailability: true}
	item, err := s.processOne(enrichment, genres, req)
	if err != nil {
		return nil, err
	}
	return item, nil
}
