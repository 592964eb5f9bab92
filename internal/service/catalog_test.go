package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moovibe/internal/utils"
)

func testCatalog(handler http.Handler) (*TMDBCatalog, *httptest.Server) {
	srv := httptest.NewServer(handler)
	catalog := &TMDBCatalog{
		client:  utils.NewHTTPClient("test-token"),
		baseURL: srv.URL,
	}
	return catalog, srv
}

func TestDiscoverRateLimitedReturnsEmpty(t *testing.T) {
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	items, err := catalog.Discover(FilterSpec{MediaType: "movie", SortBy: defaultSortBy}, 1)

	// 限流按零结果处理，不报错
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDiscoverBuildsQuery(t *testing.T) {
	var gotQuery map[string][]string
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"黑客帝国","genre_ids":[28,878]}]}`))
	}))
	defer srv.Close()

	spec := FilterSpec{
		MediaType:     "movie",
		GenreIDs:      []int{28, 53},
		KeywordIDs:    []int{9748, 9840},
		MinVoteCount:  200,
		MinRating:     6.5,
		ReleasedAfter: time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC),
		SortBy:        "popularity.desc",
	}
	items, err := catalog.Discover(spec, 2)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 603, items[0].ID)
	assert.Equal(t, []int{28, 878}, items[0].GenreIDs)

	assert.Equal(t, []string{"28,53"}, gotQuery["with_genres"])
	// 关键词之间取 OR
	assert.Equal(t, []string{"9748|9840"}, gotQuery["with_keywords"])
	assert.Equal(t, []string{"200"}, gotQuery["vote_count.gte"])
	assert.Equal(t, []string{"6.5"}, gotQuery["vote_average.gte"])
	assert.Equal(t, []string{"2016-08-01"}, gotQuery["primary_release_date.gte"])
	assert.Equal(t, []string{"popularity.desc"}, gotQuery["sort_by"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
}

func TestDiscoverTVUsesFirstAirDate(t *testing.T) {
	var gotQuery map[string][]string
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/tv", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	_, err := catalog.Discover(FilterSpec{
		MediaType:     "tv",
		ReleasedAfter: time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC),
		SortBy:        defaultSortBy,
	}, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{"2016-08-01"}, gotQuery["first_air_date.gte"])
	assert.Empty(t, gotQuery["primary_release_date.gte"])
}

func TestDetailFullExpandsSubresources(t *testing.T) {
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "credits,external_ids,keywords", r.URL.Query().Get("append_to_response"))
		w.Write([]byte(`{
			"id": 603,
			"title": "黑客帝国",
			"overview": "矩阵中的世界",
			"vote_average": 8.2,
			"release_date": "1999-03-30",
			"genres": [{"id": 28, "name": "动作"}],
			"external_ids": {"imdb_id": "tt0133093"},
			"keywords": {"keywords": [{"id": 1, "name": "martial arts"}, {"id": 2, "name": "dystopia"}]},
			"credits": {
				"crew": [{"name": "Lana Wachowski", "job": "Director"}, {"name": "Bill Pope", "job": "Director of Photography"}],
				"cast": [{"name": "Keanu Reeves"}, {"name": "Carrie-Anne Moss"}]
			}
		}`))
	}))
	defer srv.Close()

	detail, err := catalog.Detail("movie", 603, LocaleZH, true)

	require.NoError(t, err)
	assert.Equal(t, "黑客帝国", detail.Title)
	assert.Equal(t, "tt0133093", detail.IMDbID)
	assert.Equal(t, 1999, detail.Year)
	assert.Equal(t, []string{"martial arts", "dystopia"}, detail.Keywords)
	// 只有 Director 职位进导演列表
	assert.Equal(t, []string{"Lana Wachowski"}, detail.Directors)
	assert.Equal(t, []string{"Keanu Reeves", "Carrie-Anne Moss"}, detail.Cast)
}

func TestDetailTVKeywordsAndName(t *testing.T) {
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 1396,
			"name": "绝命毒师",
			"first_air_date": "2008-01-20",
			"keywords": {"results": [{"id": 3, "name": "drug cartel"}]}
		}`))
	}))
	defer srv.Close()

	detail, err := catalog.Detail("tv", 1396, LocaleZH, true)

	require.NoError(t, err)
	// TV 条目标题在 name 字段，关键词在 results 字段
	assert.Equal(t, "绝命毒师", detail.Title)
	assert.Equal(t, 2008, detail.Year)
	assert.Equal(t, []string{"drug cartel"}, detail.Keywords)
}

func TestWatchProvidersRegionFilter(t *testing.T) {
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603/watch/providers", r.URL.Path)
		w.Write([]byte(`{"results": {
			"CN": {"flatrate": [{"provider_id": 8, "provider_name": "某平台", "logo_path": "/logo.png"}]},
			"US": {"flatrate": [{"provider_id": 9, "provider_name": "Other"}]}
		}}`))
	}))
	defer srv.Close()

	providers, err := catalog.WatchProviders("movie", 603, "CN")

	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, 8, providers[0].ID)
	assert.Equal(t, "某平台", providers[0].Name)

	// 地区未收录时返回空
	missing, err := catalog.WatchProviders("movie", 603, "JP")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestGenreList(t *testing.T) {
	catalog, srv := testCatalog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genre/movie/list", r.URL.Path)
		assert.Equal(t, LocaleZH, r.URL.Query().Get("language"))
		w.Write([]byte(`{"genres": [{"id": 28, "name": "动作"}, {"id": 12, "name": "冒险"}]}`))
	}))
	defer srv.Close()

	table, err := catalog.GenreList("movie", LocaleZH)

	require.NoError(t, err)
	assert.Equal(t, map[int]string{28: "动作", 12: "冒险"}, table)
}
