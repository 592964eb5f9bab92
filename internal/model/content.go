package model

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// 内容分类枚举，category 字段只允许这四个值
const (
	CategoryMovie     = "movie"     // 电影
	CategoryDrama     = "drama"     // 剧集
	CategoryAnimation = "animation" // 动画
	CategoryVariety   = "variety"   // 综艺
)

// ValidCategory 校验分类是否合法
func ValidCategory(category string) bool {
	switch category {
	case CategoryMovie, CategoryDrama, CategoryAnimation, CategoryVariety:
		return true
	}
	return false
}

// ContentItem 内容条目（双语字段：ZH 为主语言，EN 为副语言）
type ContentItem struct {
	ID               int              `json:"id" db:"id"`
	ExternalID       *string          `json:"external_id,omitempty" db:"external_id" gorm:"unique"` // IMDb ID，缺失时存 NULL，唯一索引允许多个 NULL
	TMDBID           int              `json:"tmdb_id" db:"tmdb_id"`
	TitleZH          string           `json:"title_zh" db:"title_zh"`
	TitleEN          string           `json:"title_en" db:"title_en"`
	DescriptionZH    string           `json:"description_zh" db:"description_zh"`
	DescriptionEN    string           `json:"description_en" db:"description_en"`
	Poster           string           `json:"poster" db:"poster"`
	Rating           float64          `json:"rating" db:"rating" gorm:"index"` // 0-5 分
	Year             int              `json:"year" db:"year"`
	Category         string           `json:"category" db:"category" gorm:"index"`
	TagsZH           pq.StringArray   `json:"tags_zh" db:"tags_zh" gorm:"type:text[]"`
	TagsEN           pq.StringArray   `json:"tags_en" db:"tags_en" gorm:"type:text[]"`
	Providers        string           `json:"providers" db:"providers"` // Provider 列表的 JSON 串
	EmbeddingContent string           `json:"embedding_content" db:"embedding_content"`
	Embedding        *pgvector.Vector `json:"embedding" db:"embedding" gorm:"type:vector(768)"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at" gorm:"index"`
}

// Provider 播放平台
type Provider struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// PlaceholderProviderID 强制入库时使用的占位平台 ID
const PlaceholderProviderID = 0

// PlaceholderProvider 占位平台条目，同时作为"强制收录"的标记
func PlaceholderProvider() Provider {
	return Provider{ID: PlaceholderProviderID, Name: "暂无平台"}
}

// SetExternalID 设置外部 ID，空串按缺失处理
func (c *ContentItem) SetExternalID(id string) {
	if id == "" {
		c.ExternalID = nil
		return
	}
	c.ExternalID = &id
}

// ExternalIDValue 读取外部 ID，缺失返回空串
func (c *ContentItem) ExternalIDValue() string {
	if c.ExternalID == nil {
		return ""
	}
	return *c.ExternalID
}

// ProviderList 解析 Providers JSON 串，解析失败按空列表处理
func (c *ContentItem) ProviderList() []Provider {
	if c.Providers == "" {
		return nil
	}
	var providers []Provider
	if err := json.Unmarshal([]byte(c.Providers), &providers); err != nil {
		return nil
	}
	return providers
}

// SetProviders 序列化平台列表到 Providers 字段
func (c *ContentItem) SetProviders(providers []Provider) {
	if len(providers) == 0 {
		c.Providers = "[]"
		return
	}
	data, _ := json.Marshal(providers)
	c.Providers = string(data)
}
