package service

import (
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/utils"
)

// TMDB 类型 ID（分类推断会用到的几个）
const (
	genreIDAnimation = 16
	genreIDDrama     = 18
	genreIDReality   = 10764
	genreIDTalk      = 10767
)

// TagPair 双语标签对
type TagPair struct {
	ZH string
	EN string
}

// Mood 氛围词条：固定词表里的一项
type Mood struct {
	ID         string
	NameZH     string    // 展示名，用于拼接检索文本
	Tags       []TagPair // 命中后派生的标签
	GenreIDs   []int     // 关联的类型 ID，为空表示对所有内容生效
	KeywordIDs []int     // 发现查询的候选关键词 ID
	SortBy     string    // 偏好的排序键，为空用默认
	FilterTags []string  // 检索预过滤用的粗粒度标签（与条目打标逻辑无关）
}

// moodTable 固定的氛围词表
var moodTable = map[string]Mood{
	"01": {ID: "01", NameZH: "开心",
		Tags:       []TagPair{{"喜剧", "Comedy"}, {"搞笑", "Hilarious"}},
		GenreIDs:   []int{35},
		KeywordIDs: []int{9675, 11860},
		SortBy:     "popularity.desc",
		FilterTags: []string{"喜剧", "搞笑"}},
	"02": {ID: "02", NameZH: "治愈",
		Tags:       []TagPair{{"治愈", "Heartwarming"}, {"温情", "Tender"}},
		GenreIDs:   []int{10751, 16},
		KeywordIDs: []int{158718},
		SortBy:     "vote_average.desc",
		FilterTags: []string{"治愈", "家庭", "温情"}},
	"03": {ID: "03", NameZH: "刺激",
		Tags:       []TagPair{{"刺激", "Thrilling"}, {"动作", "Action"}},
		GenreIDs:   []int{28, 53},
		KeywordIDs: []int{9748},
		SortBy:     "popularity.desc",
		FilterTags: []string{"动作", "惊悚", "刺激"}},
	"04": {ID: "04", NameZH: "浪漫",
		Tags:       []TagPair{{"浪漫", "Romantic"}, {"爱情", "Romance"}},
		GenreIDs:   []int{10749},
		KeywordIDs: []int{9840},
		FilterTags: []string{"爱情", "浪漫"}},
	"05": {ID: "05", NameZH: "烧脑",
		Tags:       []TagPair{{"烧脑", "Mind-bending"}, {"悬疑", "Mystery"}},
		GenreIDs:   []int{9648, 53},
		KeywordIDs: []int{10052, 4565},
		FilterTags: []string{"悬疑", "烧脑"}},
	"06": {ID: "06", NameZH: "感动",
		Tags:       []TagPair{{"感动", "Moving"}, {"催泪", "Tearjerker"}},
		GenreIDs:   []int{18},
		KeywordIDs: []int{6054},
		SortBy:     "vote_average.desc",
		FilterTags: []string{"剧情", "感动"}},
	"07": {ID: "07", NameZH: "奇幻",
		Tags:       []TagPair{{"奇幻", "Fantasy"}, {"冒险", "Adventure"}},
		GenreIDs:   []int{14, 12},
		KeywordIDs: []int{177912},
		FilterTags: []string{"奇幻", "冒险"}},
	"08": {ID: "08", NameZH: "怀旧",
		Tags: []TagPair{{"怀旧", "Nostalgic"}, {"经典", "Classic"}},
		// 不关联类型 ID，对所有内容生效
		GenreIDs:   nil,
		KeywordIDs: []int{207317},
		SortBy:     "vote_average.desc",
		FilterTags: []string{"经典", "怀旧"}},
	"09": {ID: "09", NameZH: "恐怖",
		Tags:       []TagPair{{"恐怖", "Horror"}, {"惊悚", "Thriller"}},
		GenreIDs:   []int{27},
		KeywordIDs: []int{6152},
		FilterTags: []string{"恐怖", "惊悚"}},
}

// LookupMood 查找氛围词条
func LookupMood(id string) (Mood, bool) {
	m, ok := moodTable[id]
	return m, ok
}

// categoryRule 分类探测规则：触发词命中 tags_A 即判定
type categoryRule struct {
	Category string
	Triggers []string
}

// categoryRules 有序规则表，先命中者生效
var categoryRules = []categoryRule{
	{model.CategoryVariety, []string{"真人秀", "脱口秀", "综艺", "新闻"}},
	{model.CategoryAnimation, []string{"动画", "动漫"}},
	{model.CategoryDrama, []string{"肥皂剧", "电视剧", "剧集"}},
}

// categoryNamesZH 分类的主语言展示名
var categoryNamesZH = map[string]string{
	model.CategoryMovie:     "电影",
	model.CategoryDrama:     "剧集",
	model.CategoryAnimation: "动画",
	model.CategoryVariety:   "综艺",
}

// tagTranslations 副语言标签 → 主语言标签的静态翻译表
var tagTranslations = map[string]string{
	"Action":          "动作",
	"Adventure":       "冒险",
	"Animation":       "动画",
	"Comedy":          "喜剧",
	"Crime":           "犯罪",
	"Documentary":     "纪录",
	"Drama":           "剧情",
	"Family":          "家庭",
	"Fantasy":         "奇幻",
	"History":         "历史",
	"Horror":          "恐怖",
	"Kids":            "儿童",
	"Music":           "音乐",
	"Mystery":         "悬疑",
	"News":            "新闻",
	"Politics":        "政治",
	"Reality":         "真人秀",
	"Romance":         "爱情",
	"Sci-Fi":          "科幻",
	"Science Fiction": "科幻",
	"Soap":            "肥皂剧",
	"Talk":            "脱口秀",
	"Thriller":        "惊悚",
	"TV Movie":        "电视电影",
	"War":             "战争",
	"Western":         "西部",
}

// keywordPhrases 关键词短语词典（规范化后的英文短语 → 主语言标签）
var keywordPhrases = map[string]string{
	"martial arts":         "武侠",
	"kung fu":              "功夫",
	"time travel":          "时空穿越",
	"based on novel":       "原著改编",
	"wuxia":                "武侠",
	"superhero":            "超级英雄",
	"coming of age":        "成长",
	"revenge":              "复仇",
	"serial killer":        "犯罪",
	"post-apocalyptic":     "末世",
	"space":                "太空",
	"zombie":               "丧尸",
	"high school":          "校园",
	"friendship":           "友情",
	"family relationships": "家庭",
}

// keywordFallback 短语词典未命中时的子串兜底集合，按声明顺序检查
var keywordFallback = []struct {
	Substr string
	TagZH  string
}{
	{"romance", "爱情"},
	{"history", "历史"},
	{"martial", "武侠"},
	{"sword", "剑戟"},
	{"politic", "政治"},
	{"love", "爱情"},
}

// defaultTagPairs 两侧标签都为空时按分类兜底
var defaultTagPairs = map[string][]TagPair{
	model.CategoryVariety:   {{"喜剧", "Comedy"}, {"真人秀", "Reality"}},
	model.CategoryAnimation: {{"动画", "Animation"}},
	model.CategoryDrama:     {{"剧集", "Drama"}},
}

// classicRatingThreshold 电影兜底时"经典"标签的评分线（0-10 原始分）
const classicRatingThreshold = 7.0

// GenreTable 类型 ID→名称的双语对照表，每次运行拉取一次后只读
type GenreTable struct {
	ZH map[int]string
	EN map[int]string
}

// NameZH 查主语言类型名
func (t *GenreTable) NameZH(id int) (string, bool) {
	name, ok := t.ZH[id]
	return name, ok
}

// NameEN 查副语言类型名
func (t *GenreTable) NameEN(id int) (string, bool) {
	name, ok := t.EN[id]
	return name, ok
}

const (
	genreTableCacheKey = "catalog:genre_table"
	genreTableStaleKey = "catalog:genre_table:last_good"
)

// LoadGenreTable 拉取电影+剧集两套类型表并按语言合并，结果缓存 12 小时
// 拉取失败时沿用上一次成功的结果，瞬时故障不中断整轮运行
func LoadGenreTable(catalog CatalogAPI) (*GenreTable, error) {
	if cached, found := utils.CacheGet(genreTableCacheKey); found {
		if table, ok := cached.(*GenreTable); ok {
			return table, nil
		}
	}

	table, err := fetchGenreTable(catalog)
	if err != nil {
		if stale, found := utils.CacheGet(genreTableStaleKey); found {
			if last, ok := stale.(*GenreTable); ok {
				log.Printf("[采集] 类型表拉取失败，沿用上次结果: %v", err)
				return last, nil
			}
		}
		return nil, err
	}

	utils.CacheSet(genreTableCacheKey, table, 12*time.Hour)
	utils.CacheSet(genreTableStaleKey, table, gocache.NoExpiration)
	return table, nil
}

// fetchGenreTable 实际拉取两套类型表并按语言合并
func fetchGenreTable(catalog CatalogAPI) (*GenreTable, error) {
	table := &GenreTable{
		ZH: make(map[int]string),
		EN: make(map[int]string),
	}

	for _, mediaType := range []string{"movie", "tv"} {
		zh, err := catalog.GenreList(mediaType, LocaleZH)
		if err != nil {
			return nil, fmt.Errorf("拉取 %s 类型表失败: %w", mediaType, err)
		}
		en, err := catalog.GenreList(mediaType, LocaleEN)
		if err != nil {
			return nil, fmt.Errorf("拉取 %s 类型表失败: %w", mediaType, err)
		}
		for id, name := range zh {
			table.ZH[id] = name
		}
		for id, name := range en {
			table.EN[id] = name
		}
	}

	return table, nil
}
