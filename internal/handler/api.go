package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moovibe/internal/middleware"
	"github.com/user/moovibe/internal/model"
	"github.com/user/moovibe/internal/service"
	"github.com/user/moovibe/internal/utils"
)

// TriggerIngest 手动触发一次采集运行（异步执行，立即返回）
// POST /api/ingest
func (h *Handler) TriggerIngest(c *gin.Context) {
	var req service.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误")
		return
	}
	if !model.ValidCategory(req.Category) {
		utils.BadRequest(c, "无效的分类: "+req.Category)
		return
	}

	h.Ingest.RunAsync(req)
	utils.SuccessWithMessage(c, "采集任务已触发", gin.H{
		"category": req.Category,
		"mood_ids": req.MoodIDs,
	})
}

// Backfill 按标题回填单个条目（同步执行）
// POST /api/ingest/backfill
func (h *Handler) Backfill(c *gin.Context) {
	var req struct {
		Category string `json:"category" binding:"required"`
		Title    string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误")
		return
	}

	item, err := h.Ingest.Backfill(c.Request.Context(), req.Category, req.Title)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, item)
}

// GetRecommend 按画像返回推荐列表
// GET /api/recommend?category=movie&moods=01,05
func (h *Handler) GetRecommend(c *gin.Context) {
	category := c.Query("category")
	if !model.ValidCategory(category) {
		utils.BadRequest(c, "无效的分类: "+category)
		return
	}

	profile := model.UserProfile{
		UserID:      middleware.GetUserID(c),
		Category:    category,
		MoodIDs:     splitMoods(c.Query("moods")),
		ProviderIDs: splitInts(c.Query("providers")),
	}

	items, err := h.Recommend.Recommend(profile)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	utils.Success(c, items)
}

// GetContent 查询单个内容条目
// GET /api/content/:id
func (h *Handler) GetContent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的内容 ID")
		return
	}

	item, err := h.Repos.Content.FindByID(id)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if item == nil {
		utils.NotFound(c, "")
		return
	}
	utils.Success(c, item)
}

// Health 健康检查
// GET /health
func (h *Handler) Health(c *gin.Context) {
	utils.Success(c, gin.H{"status": "ok"})
}

// splitMoods 解析逗号分隔的氛围 ID 列表，未知 ID 忽略，最多保留 2 个
func splitMoods(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if _, ok := service.LookupMood(id); ok {
			ids = append(ids, id)
		}
		if len(ids) == 2 {
			break
		}
	}
	return ids
}

// splitInts 解析逗号分隔的整数列表，非法项忽略
func splitInts(raw string) []int {
	if raw == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
