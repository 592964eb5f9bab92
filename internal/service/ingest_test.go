package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/utils"
)

func TestMain(m *testing.M) {
	utils.InitCache()
	os.Exit(m.Run())
}

// fakeStore 记录写入条目的 ContentStore 测试替身
type fakeStore struct {
	saved   []*model.ContentItem
	saveErr error
}

func (s *fakeStore) Save(item *model.ContentItem) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, item)
	return nil
}

// fakeEmbedder 可注入失败的 Embedder 测试替身
type fakeEmbedder struct {
	err error
}

func (e fakeEmbedder) Embed(text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, utils.EmbeddingDim)
	vec[0] = 1
	return vec, nil
}

// ingestCatalog 两个候选条目的固定目录：1 号无平台，2 号有平台
func ingestCatalog() *fakeCatalog {
	return &fakeCatalog{
		discover: func(spec FilterSpec, page int) ([]CatalogItem, error) {
			if page > 1 {
				return nil, nil
			}
			return []CatalogItem{
				{ID: 1, Title: "无平台的电影", GenreIDs: []int{28}},
				{ID: 2, Title: "有平台的电影", GenreIDs: []int{28}},
			}, nil
		},
		detail: func(mediaType string, id int, language string, full bool) (*CatalogDetail, error) {
			return &CatalogDetail{
				ID:          id,
				Title:       fmt.Sprintf("电影 %d", id),
				Overview:    "剧情概述",
				VoteAverage: 8.0,
				Year:        2020,
				IMDbID:      fmt.Sprintf("tt%07d", id),
				PosterPath:  "/poster.jpg",
			}, nil
		},
		watchProviders: func(mediaType string, id int, region string) ([]model.Provider, error) {
			if id == 1 {
				return nil, nil
			}
			return []model.Provider{{ID: 8, Name: "某平台"}}, nil
		},
	}
}

func TestRunSkipsItemsWithoutProviders(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(ingestCatalog(), store, fakeEmbedder{}, "CN", 0)

	result, err := svc.Run(context.Background(), IngestRequest{Category: model.CategoryMovie})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Skipped)

	require.Len(t, store.saved, 1)
	item := store.saved[0]
	assert.Equal(t, "tt0000002", item.ExternalIDValue())
	assert.Equal(t, 2, item.TMDBID)
	// 0-10 原始分归一化到 0-5
	assert.InDelta(t, 4.0, item.Rating, 0.001)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", item.Poster)
	assert.Len(t, item.ProviderList(), 1)
}

func TestRunForceAvailabilityUsesPlaceholder(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(ingestCatalog(), store, fakeEmbedder{}, "CN", 0)

	result, err := svc.Run(context.Background(), IngestRequest{
		Category:          model.CategoryMovie,
		ForceAvailability: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)

	// 无平台的条目带占位平台入库
	providers := store.saved[0].ProviderList()
	require.Len(t, providers, 1)
	assert.Equal(t, model.PlaceholderProviderID, providers[0].ID)
	assert.Equal(t, "暂无平台", providers[0].Name)
}

func TestRunEmbeddingFailureDoesNotBlockSave(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(ingestCatalog(), store, fakeEmbedder{err: errors.New("ollama down")}, "CN", 0)

	result, err := svc.Run(context.Background(), IngestRequest{Category: model.CategoryMovie})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	// 向量生成失败时条目照常入库，embedding 置空
	assert.Nil(t, store.saved[0].Embedding)
	assert.NotEmpty(t, store.saved[0].EmbeddingContent)
}

func TestRunPopulatesEmbedding(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(ingestCatalog(), store, fakeEmbedder{}, "CN", 0)

	_, err := svc.Run(context.Background(), IngestRequest{Category: model.CategoryMovie})

	require.NoError(t, err)
	require.NotNil(t, store.saved[0].Embedding)
	assert.Equal(t, "剧情概述", store.saved[0].EmbeddingContent)
}

func TestRunWithoutIMDbIDStoresNullExternalID(t *testing.T) {
	catalog := ingestCatalog()
	catalog.detail = func(mediaType string, id int, language string, full bool) (*CatalogDetail, error) {
		// 无 IMDb ID 的条目
		return &CatalogDetail{
			ID:          id,
			Title:       fmt.Sprintf("电影 %d", id),
			Overview:    "剧情概述",
			VoteAverage: 7.5,
			Year:        2020 + id,
		}, nil
	}

	store := &fakeStore{}
	svc := NewIngestService(catalog, store, fakeEmbedder{}, "CN", 0)

	result, err := svc.Run(context.Background(), IngestRequest{
		Category:          model.CategoryMovie,
		ForceAvailability: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	// 缺失外部 ID 写 NULL，不落空串占用唯一索引，(标题, 年份) 兜底去重
	for _, item := range store.saved {
		assert.Nil(t, item.ExternalID)
		assert.NotEmpty(t, item.TitleZH)
		assert.NotZero(t, item.Year)
	}
}

// upsertStore 按外部 ID 收敛的 ContentStore 测试替身
type upsertStore struct {
	byExternalID map[string]*model.ContentItem
}

func (s *upsertStore) Save(item *model.ContentItem) error {
	if s.byExternalID == nil {
		s.byExternalID = make(map[string]*model.ContentItem)
	}
	s.byExternalID[item.ExternalIDValue()] = item
	return nil
}

func TestRunTwiceConvergesToSameState(t *testing.T) {
	store := &upsertStore{}
	svc := NewIngestService(ingestCatalog(), store, fakeEmbedder{}, "CN", 0)

	req := IngestRequest{Category: model.CategoryMovie, ForceAvailability: true}

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	// 两次运行写入量一致，存量按外部 ID 收敛不翻倍
	assert.Equal(t, first.Saved, second.Saved)
	assert.Len(t, store.byExternalID, 2)
}

func TestRunRejectsInvalidCategory(t *testing.T) {
	svc := NewIngestService(ingestCatalog(), &fakeStore{}, fakeEmbedder{}, "CN", 0)

	_, err := svc.Run(context.Background(), IngestRequest{Category: "music"})
	assert.Error(t, err)
}

func TestRunEnrichFailureSkipsItem(t *testing.T) {
	catalog := ingestCatalog()
	catalog.detail = func(mediaType string, id int, language string, full bool) (*CatalogDetail, error) {
		if language == LocaleZH && id == 1 {
			return nil, errors.New("upstream down")
		}
		return &CatalogDetail{ID: id, Title: "电影", VoteAverage: 7.0, IMDbID: "tt0000002"}, nil
	}

	store := &fakeStore{}
	svc := NewIngestService(catalog, store, fakeEmbedder{}, "CN", 0)

	result, err := svc.Run(context.Background(), IngestRequest{Category: model.CategoryMovie})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Skipped)
}

func TestBackfillForcesAvailability(t *testing.T) {
	catalog := ingestCatalog()
	catalog.searchByTitle = func(mediaType, query, language string) ([]CatalogItem, error) {
		assert.Equal(t, "movie", mediaType)
		assert.Equal(t, "无平台的电影", query)
		return []CatalogItem{{ID: 1, Title: "无平台的电影"}}, nil
	}

	store := &fakeStore{}
	svc := NewIngestService(catalog, store, fakeEmbedder{}, "CN", 0)

	item, err := svc.Backfill(context.Background(), model.CategoryMovie, "无平台的电影")

	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	// 回填即便无平台也强制入库
	assert.Equal(t, "tt0000001", item.ExternalIDValue())

	// 返回的是写入后的条目：占位平台和向量与库里一致
	assert.Same(t, store.saved[0], item)
	providers := item.ProviderList()
	require.Len(t, providers, 1)
	assert.Equal(t, model.PlaceholderProviderID, providers[0].ID)
	assert.NotNil(t, item.Embedding)
}

func TestBackfillNoResult(t *testing.T) {
	catalog := ingestCatalog()
	catalog.searchByTitle = func(mediaType, query, language string) ([]CatalogItem, error) {
		return nil, nil
	}

	svc := NewIngestService(catalog, &fakeStore{}, fakeEmbedder{}, "CN", 0)
	_, err := svc.Backfill(context.Background(), model.CategoryMovie, "不存在的片名")
	assert.Error(t, err)
}
