package model

import "strings"

// UserProfile 推荐请求的用户画像
// UserID 由认证层透传，这里只作为不透明外键使用
type UserProfile struct {
	UserID      string   `json:"user_id,omitempty"`
	Category    string   `json:"category"`
	MoodIDs     []string `json:"mood_ids"`               // 最多 2 个
	ProviderIDs []int    `json:"provider_ids,omitempty"` // 用户订阅的平台
}

// CacheKey 画像对应的缓存键
func (p UserProfile) CacheKey() string {
	return p.Category + ":" + strings.Join(p.MoodIDs, ",")
}
