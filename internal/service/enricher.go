package service

import (
	"context"
	"fmt"
	"log"

	"github.com/user/moovibe/internal/model"
	"golang.org/x/sync/errgroup"
)

// enrichConcurrency 单条目内并发子请求的上限
const enrichConcurrency = 3

// Enrichment 单条目的多源采集结果
// 主语言详情是必需项；副语言详情和平台列表失败时退化为空，
// 对应的错误按字段记录，便于调用方统一归并
type Enrichment struct {
	Item      CatalogItem
	Detail    *CatalogDetail   // 主语言详情（含 credits/external_ids/keywords）
	DetailEN  *CatalogDetail   // 副语言详情，失败为 nil
	Providers []model.Provider // 播放平台，失败为空

	DetailENErr  error
	ProvidersErr error
}

// GenreIDs 摘要与详情的类型 ID 并集
func (e *Enrichment) GenreIDs() []int {
	ids := make([]int, 0, len(e.Item.GenreIDs))
	ids = append(ids, e.Item.GenreIDs...)
	if e.Detail != nil {
		for _, g := range e.Detail.Genres {
			if !containsInt(ids, g.ID) {
				ids = append(ids, g.ID)
			}
		}
	}
	return ids
}

// EmbeddingText 向量化文本：概述和标题里第一个非空者
func (e *Enrichment) EmbeddingText() string {
	candidates := []string{
		e.Detail.Overview,
		e.Detail.Title,
		e.Item.Overview,
		e.Item.DisplayTitle(),
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// Enricher 详情补全器
type Enricher struct {
	catalog CatalogAPI
	region  string // 播放平台查询的固定地区
}

// NewEnricher 创建补全器
func NewEnricher(catalog CatalogAPI, region string) *Enricher {
	return &Enricher{
		catalog: catalog,
		region:  region,
	}
}

// Enrich 补全单个条目
// 主语言详情失败对该条目是致命的；副语言详情与平台列表失败只降级
func (e *Enricher) Enrich(ctx context.Context, mediaType string, item CatalogItem) (*Enrichment, error) {
	detail, err := e.catalog.Detail(mediaType, item.ID, LocaleZH, true)
	if err != nil {
		return nil, fmt.Errorf("主语言详情获取失败 (ID: %d): %w", item.ID, err)
	}

	enrichment := &Enrichment{
		Item:   item,
		Detail: detail,
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	g.Go(func() error {
		detailEN, err := e.catalog.Detail(mediaType, item.ID, LocaleEN, false)
		if err != nil {
			// 非致命：副语言字段退化为空
			enrichment.DetailENErr = err
			log.Printf("[采集] 副语言详情获取失败 (ID: %d): %v", item.ID, err)
			return nil
		}
		enrichment.DetailEN = detailEN
		return nil
	})

	g.Go(func() error {
		providers, err := e.catalog.WatchProviders(mediaType, item.ID, e.region)
		if err != nil {
			// 非致命：平台列表退化为空
			enrichment.ProvidersErr = err
			log.Printf("[采集] 播放平台获取失败 (ID: %d): %v", item.ID, err)
			return nil
		}
		enrichment.Providers = providers
		return nil
	})

	// 子任务都把错误吞在字段里，这里不会返回错误
	_ = g.Wait()

	return enrichment, nil
}
