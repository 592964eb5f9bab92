package repository

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moovibe/internal/model"
	"gorm.io/gorm"
)

type ContentItemRepository struct {
	DB *gorm.DB
}

func NewContentItemRepository(db *gorm.DB) *ContentItemRepository {
	return &ContentItemRepository{DB: db}
}

// FindByExternalID 根据外部 ID（IMDb ID）查找内容
func (r *ContentItemRepository) FindByExternalID(externalID string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.Where("external_id = ?", externalID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FindByTitleYear 根据（主语言标题, 年份）精确查找，用于没有外部 ID 的条目
func (r *ContentItemRepository) FindByTitleYear(titleZH string, year int) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.Where("title_zh = ? AND year = ?", titleZH, year).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FindByID 根据主键查找内容
func (r *ContentItemRepository) FindByID(id int) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Save 幂等写入：有外部 ID 走 upsert，没有则按（标题, 年份）查找后更新或插入
// 缺失的外部 ID 以 NULL 入库，不占用唯一索引
func (r *ContentItemRepository) Save(item *model.ContentItem) error {
	if item.ExternalIDValue() != "" {
		return r.upsertByExternalID(item)
	}

	existing, err := r.FindByTitleYear(item.TitleZH, item.Year)
	if err != nil {
		return err
	}
	if existing != nil {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = time.Now()
		return r.DB.Save(item).Error
	}

	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	return r.DB.Create(item).Error
}

// upsertByExternalID 按外部 ID 的 insert-or-update，字段级 last-write-wins
func (r *ContentItemRepository) upsertByExternalID(item *model.ContentItem) error {
	return r.DB.Exec(`
		INSERT INTO content_items (external_id, tmdb_id, title_zh, title_en,
		                           description_zh, description_en, poster, rating, year, category,
		                           tags_zh, tags_en, providers, embedding_content, embedding,
		                           created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			tmdb_id = EXCLUDED.tmdb_id,
			title_zh = EXCLUDED.title_zh,
			title_en = EXCLUDED.title_en,
			description_zh = EXCLUDED.description_zh,
			description_en = EXCLUDED.description_en,
			poster = EXCLUDED.poster,
			rating = EXCLUDED.rating,
			year = EXCLUDED.year,
			category = EXCLUDED.category,
			tags_zh = EXCLUDED.tags_zh,
			tags_en = EXCLUDED.tags_en,
			providers = EXCLUDED.providers,
			embedding_content = EXCLUDED.embedding_content,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`, item.ExternalID, item.TMDBID, item.TitleZH, item.TitleEN,
		item.DescriptionZH, item.DescriptionEN, item.Poster, item.Rating, item.Year, item.Category,
		item.TagsZH, item.TagsEN, item.Providers, item.EmbeddingContent, item.Embedding).Error
}

// SearchByEmbedding 向量相似度检索
// 先按分类相等和主语言标签重叠做预过滤，再按余弦距离取 topK
// tags 为空时跳过标签重叠过滤
func (r *ContentItemRepository) SearchByEmbedding(vec []float32, category string, tags []string, topK int) ([]model.ContentItem, error) {
	var items []model.ContentItem
	query := pgvector.NewVector(vec)

	sql := `
		SELECT id, external_id, tmdb_id, title_zh, title_en,
		       description_zh, description_en, poster, rating, year, category,
		       tags_zh, tags_en, providers, embedding_content, created_at, updated_at
		FROM content_items
		WHERE embedding IS NOT NULL
		  AND category = ?`
	args := []interface{}{category}

	if len(tags) > 0 {
		sql += `
		  AND tags_zh && ?`
		args = append(args, pq.StringArray(tags))
	}

	sql += `
		ORDER BY embedding <=> ?
		LIMIT ?`
	args = append(args, query, topK)

	err := r.DB.Raw(sql, args...).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
