package service

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/utils"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// 主语言 / 副语言
const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"
)

// CatalogItem 发现接口返回的条目摘要
type CatalogItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"` // TV 条目的标题字段
	Overview     string  `json:"overview"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
}

// DisplayTitle 条目标题（电影和 TV 字段名不同）
func (i CatalogItem) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Name
}

// Year 从上映/首播日期解析年份，解析失败返回 0
func (i CatalogItem) Year() int {
	date := i.ReleaseDate
	if date == "" {
		date = i.FirstAirDate
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

// CatalogGenre 详情接口里的类型条目
type CatalogGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CatalogDetail 详情接口返回（含展开的子资源）
type CatalogDetail struct {
	ID          int
	Title       string
	Overview    string
	PosterPath  string
	VoteAverage float64
	VoteCount   int
	Year        int
	Genres      []CatalogGenre
	IMDbID      string   // external_ids 交叉引用
	Keywords    []string // TMDB 关键词只有英文
	Directors   []string
	Cast        []string
}

// CatalogAPI 媒体目录提供方的只读接口
type CatalogAPI interface {
	// Discover 按过滤条件发现内容；限流按零结果处理，不报错
	Discover(spec FilterSpec, page int) ([]CatalogItem, error)
	// Detail 获取详情；full 为 true 时展开 credits/external_ids/keywords 子资源
	Detail(mediaType string, id int, language string, full bool) (*CatalogDetail, error)
	// WatchProviders 查询固定地区的播放平台列表
	WatchProviders(mediaType string, id int, region string) ([]model.Provider, error)
	// GenreList 拉取指定语言的类型 id→名称表
	GenreList(mediaType, language string) (map[int]string, error)
	// SearchByTitle 按标题搜索
	SearchByTitle(mediaType, query, language string) ([]CatalogItem, error)
}

// TMDBCatalog TMDB v3 客户端
type TMDBCatalog struct {
	client  *utils.HTTPClient
	baseURL string
}

// NewTMDBCatalog 创建 TMDB 客户端
func NewTMDBCatalog(token string) *TMDBCatalog {
	return &TMDBCatalog{
		client:  utils.NewHTTPClient(token),
		baseURL: tmdbBaseURL,
	}
}

type discoverResponse struct {
	Page         int           `json:"page"`
	Results      []CatalogItem `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// Discover 执行发现查询
func (t *TMDBCatalog) Discover(spec FilterSpec, page int) ([]CatalogItem, error) {
	params := url.Values{}
	params.Set("language", LocaleZH)
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", spec.SortBy)
	if len(spec.GenreIDs) > 0 {
		params.Set("with_genres", joinInts(spec.GenreIDs, ","))
	}
	if len(spec.KeywordIDs) > 0 {
		// 关键词之间取 OR
		params.Set("with_keywords", joinInts(spec.KeywordIDs, "|"))
	}
	if spec.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(spec.MinVoteCount))
	}
	if spec.MinRating > 0 {
		params.Set("vote_average.gte", fmt.Sprintf("%.1f", spec.MinRating))
	}
	if !spec.ReleasedAfter.IsZero() {
		dateField := "primary_release_date.gte"
		if spec.MediaType == "tv" {
			dateField = "first_air_date.gte"
		}
		params.Set(dateField, spec.ReleasedAfter.Format("2006-01-02"))
	}

	reqURL := fmt.Sprintf("%s/discover/%s?%s", t.baseURL, spec.MediaType, params.Encode())

	var resp discoverResponse
	if err := t.client.GetJSON(reqURL, &resp); err != nil {
		if errors.Is(err, utils.ErrRateLimited) {
			log.Printf("[TMDB] 发现接口被限流，按零结果处理")
			return []CatalogItem{}, nil
		}
		return nil, err
	}
	return resp.Results, nil
}

type detailResponse struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Name          string         `json:"name"`
	Overview      string         `json:"overview"`
	PosterPath    string         `json:"poster_path"`
	VoteAverage   float64        `json:"vote_average"`
	VoteCount     int            `json:"vote_count"`
	ReleaseDate   string         `json:"release_date"`
	FirstAirDate  string         `json:"first_air_date"`
	Genres        []CatalogGenre `json:"genres"`
	ExternalIDs   struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
	Keywords struct {
		Keywords []CatalogGenre `json:"keywords"` // 电影
		Results  []CatalogGenre `json:"results"`  // 电视剧
	} `json:"keywords"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// Detail 获取详情
func (t *TMDBCatalog) Detail(mediaType string, id int, language string, full bool) (*CatalogDetail, error) {
	params := url.Values{}
	params.Set("language", language)
	if full {
		params.Set("append_to_response", "credits,external_ids,keywords")
	}
	reqURL := fmt.Sprintf("%s/%s/%d?%s", t.baseURL, mediaType, id, params.Encode())

	var resp detailResponse
	if err := t.client.GetJSON(reqURL, &resp); err != nil {
		return nil, fmt.Errorf("获取详情失败 (%s/%d): %w", mediaType, id, err)
	}

	detail := &CatalogDetail{
		ID:          resp.ID,
		Overview:    resp.Overview,
		PosterPath:  resp.PosterPath,
		VoteAverage: resp.VoteAverage,
		VoteCount:   resp.VoteCount,
		Genres:      resp.Genres,
		IMDbID:      resp.ExternalIDs.IMDbID,
	}

	detail.Title = resp.Title
	if detail.Title == "" {
		detail.Title = resp.Name
	}

	date := resp.ReleaseDate
	if date == "" {
		date = resp.FirstAirDate
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			detail.Year = y
		}
	}

	keywordEntries := resp.Keywords.Keywords
	if len(keywordEntries) == 0 {
		keywordEntries = resp.Keywords.Results
	}
	for _, kw := range keywordEntries {
		detail.Keywords = append(detail.Keywords, kw.Name)
	}

	for _, crew := range resp.Credits.Crew {
		if crew.Job == "Director" {
			detail.Directors = append(detail.Directors, crew.Name)
		}
	}
	for i, cast := range resp.Credits.Cast {
		if i >= 5 {
			break // 只取前5个演员，避免文本过长
		}
		detail.Cast = append(detail.Cast, cast.Name)
	}

	return detail, nil
}

type providersResponse struct {
	Results map[string]struct {
		Flatrate []struct {
			ProviderID   int    `json:"provider_id"`
			ProviderName string `json:"provider_name"`
			LogoPath     string `json:"logo_path"`
		} `json:"flatrate"`
	} `json:"results"`
}

// WatchProviders 查询播放平台（只取订阅制 flatrate 列表）
func (t *TMDBCatalog) WatchProviders(mediaType string, id int, region string) ([]model.Provider, error) {
	reqURL := fmt.Sprintf("%s/%s/%d/watch/providers", t.baseURL, mediaType, id)

	var resp providersResponse
	if err := t.client.GetJSON(reqURL, &resp); err != nil {
		return nil, fmt.Errorf("获取播放平台失败 (%s/%d): %w", mediaType, id, err)
	}

	entry, ok := resp.Results[region]
	if !ok {
		return nil, nil
	}

	var providers []model.Provider
	for _, p := range entry.Flatrate {
		providers = append(providers, model.Provider{
			ID:   p.ProviderID,
			Name: p.ProviderName,
			Logo: p.LogoPath,
		})
	}
	return providers, nil
}

type genreListResponse struct {
	Genres []CatalogGenre `json:"genres"`
}

// GenreList 拉取类型表
func (t *TMDBCatalog) GenreList(mediaType, language string) (map[int]string, error) {
	reqURL := fmt.Sprintf("%s/genre/%s/list?language=%s", t.baseURL, mediaType, language)

	var resp genreListResponse
	if err := t.client.GetJSON(reqURL, &resp); err != nil {
		return nil, fmt.Errorf("获取类型表失败 (%s): %w", mediaType, err)
	}

	table := make(map[int]string, len(resp.Genres))
	for _, g := range resp.Genres {
		table[g.ID] = g.Name
	}
	return table, nil
}

// SearchByTitle 按标题搜索
func (t *TMDBCatalog) SearchByTitle(mediaType, query, language string) ([]CatalogItem, error) {
	params := url.Values{}
	params.Set("language", language)
	params.Set("query", query)
	reqURL := fmt.Sprintf("%s/search/%s?%s", t.baseURL, mediaType, params.Encode())

	var resp discoverResponse
	if err := t.client.GetJSON(reqURL, &resp); err != nil {
		if errors.Is(err, utils.ErrRateLimited) {
			return []CatalogItem{}, nil
		}
		return nil, err
	}
	return resp.Results, nil
}

// joinInts 拼接整数列表
func joinInts(ids []int, sep string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, sep)
}
