package service

import (
	"strings"

	"github.com/user/moovibe/internal/model"
)

// TagInput 打标输入
// Keywords 是目录方返回的关键词（只有英文），同一份列表既参与
// 主语言标签匹配，也原样进入副语言标签
type TagInput struct {
	GenreIDs  []int    // 摘要与详情的类型 ID 并集
	Keywords  []string // 关键词子资源
	MoodIDs   []string // 本次运行请求的氛围，最多 2 个
	ForceMood bool     // 跳过氛围与类型的交集判断，强制派生氛围标签
	Category  string   // 请求的分类，可为空
	Rating    float64  // 0-10 原始分，用于电影兜底的"经典"判定
}

// TagResult 打标输出
type TagResult struct {
	TagsZH   []string
	TagsEN   []string
	Category string
}

// Classify 纯函数打标：类型、关键词、氛围、翻译表 → 双语标签 + 分类
func Classify(in TagInput, genres *GenreTable) TagResult {
	var tagsZH, tagsEN []string

	// 1. 类型 ID 映射为双语名称，"&" 复合名拆成原子标签
	for _, id := range in.GenreIDs {
		if name, ok := genres.NameZH(id); ok {
			tagsZH = append(tagsZH, splitCompound(name)...)
		}
		if name, ok := genres.NameEN(id); ok {
			tagsEN = append(tagsEN, splitCompound(name)...)
		}
	}

	// 2. 副语言标签翻译回主语言，只增不删
	for _, tag := range tagsEN {
		if zh, ok := tagTranslations[tag]; ok && !containsString(tagsZH, zh) {
			tagsZH = append(tagsZH, zh)
		}
	}

	// 3. 关键词：规范化后先查短语词典，再做子串兜底；副语言侧原样追加
	for _, kw := range in.Keywords {
		norm := strings.ToLower(strings.TrimSpace(kw))
		if norm == "" {
			continue
		}
		if tag, ok := keywordPhrases[norm]; ok {
			tagsZH = append(tagsZH, tag)
		} else {
			for _, fb := range keywordFallback {
				if strings.Contains(norm, fb.Substr) {
					tagsZH = append(tagsZH, fb.TagZH)
					break
				}
			}
		}
		tagsEN = append(tagsEN, kw)
	}

	// 4. 氛围派生：强制标记、类型交集命中、或氛围不关联类型时生效
	var moodOrder []string // 记录氛围标签的首次派生顺序
	for _, moodID := range in.MoodIDs {
		mood, ok := moodTable[moodID]
		if !ok {
			continue
		}
		if !in.ForceMood && len(mood.GenreIDs) > 0 && !intersects(in.GenreIDs, mood.GenreIDs) {
			continue
		}
		for _, pair := range mood.Tags {
			tagsEN = append(tagsEN, pair.EN)
			tagsZH = append(tagsZH, pair.ZH)
			if !containsString(moodOrder, pair.ZH) {
				moodOrder = append(moodOrder, pair.ZH)
			}
		}
	}

	// 5. 去重（保留首次出现顺序），氛围标签整体前移
	tagsZH = dedupeStrings(tagsZH)
	tagsEN = dedupeStrings(tagsEN)
	tagsZH = moodTagsFirst(tagsZH, moodOrder)

	// 6. 分类探测：有序规则表，先命中者生效，命中的触发词从标签中移除
	detected := ""
	for _, rule := range categoryRules {
		matched := intersection(tagsZH, rule.Triggers)
		if len(matched) > 0 {
			detected = rule.Category
			tagsZH = removeStrings(tagsZH, matched)
			break
		}
	}

	// 7. 最终分类：显式请求 > 探测结果 > 类型 ID 启发 > 电影
	category := finalCategory(in.Category, detected, in.GenreIDs)

	// 8. 两侧标签都为空时按分类兜底
	if len(tagsZH) == 0 && len(tagsEN) == 0 {
		pairs, ok := defaultTagPairs[category]
		if !ok {
			// 电影：高分给"经典"，否则给通用"电影"标签
			if in.Rating >= classicRatingThreshold {
				pairs = []TagPair{{"经典", "Classic"}}
			} else {
				pairs = []TagPair{{"电影", "Movie"}}
			}
		}
		for _, pair := range pairs {
			tagsZH = append(tagsZH, pair.ZH)
			tagsEN = append(tagsEN, pair.EN)
		}
	}

	return TagResult{
		TagsZH:   tagsZH,
		TagsEN:   tagsEN,
		Category: category,
	}
}

// finalCategory 分类优先级判定
func finalCategory(requested, detected string, genreIDs []int) string {
	if model.ValidCategory(requested) {
		return requested
	}
	if detected != "" {
		return detected
	}
	// 类型 ID 启发，固定顺序检查
	if containsInt(genreIDs, genreIDDrama) {
		return model.CategoryDrama
	}
	if containsInt(genreIDs, genreIDAnimation) {
		return model.CategoryAnimation
	}
	if containsInt(genreIDs, genreIDReality) || containsInt(genreIDs, genreIDTalk) {
		return model.CategoryVariety
	}
	return model.CategoryMovie
}

// splitCompound 拆分含 "&" 的复合类型名
func splitCompound(name string) []string {
	if !strings.Contains(name, "&") {
		return []string{name}
	}
	parts := strings.Split(name, "&")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// moodTagsFirst 氛围派生的标签按派生顺序排到最前
func moodTagsFirst(tags, moodOrder []string) []string {
	if len(moodOrder) == 0 {
		return tags
	}
	result := make([]string, 0, len(tags))
	for _, m := range moodOrder {
		if containsString(tags, m) {
			result = append(result, m)
		}
	}
	for _, t := range tags {
		if !containsString(moodOrder, t) {
			result = append(result, t)
		}
	}
	return result
}

// dedupeStrings 去重，保留首次出现顺序
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

func containsString(slice []string, value string) bool {
	for _, s := range slice {
		if s == value {
			return true
		}
	}
	return false
}

func containsInt(slice []int, value int) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}

func intersects(a, b []int) bool {
	for _, v := range a {
		if containsInt(b, v) {
			return true
		}
	}
	return false
}

func intersection(values, targets []string) []string {
	var result []string
	for _, v := range values {
		if containsString(targets, v) {
			result = append(result, v)
		}
	}
	return result
}

func removeStrings(values, toRemove []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !containsString(toRemove, v) {
			result = append(result, v)
		}
	}
	return result
}
