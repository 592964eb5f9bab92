package handler

import (
	"github.com/user/moovibe/internal/config"
	"github.com/user/moovibe/internal/repository"
	"github.com/user/moovibe/internal/service"
	"github.com/user/moovibe/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos     *repository.Repositories
	Config    *config.Config
	Ingest    *service.IngestService
	Recommend *service.RecommendService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	catalog := service.NewTMDBCatalog(cfg.TMDBToken)
	embedder := utils.OllamaEmbedder{}

	ingest := service.NewIngestService(
		catalog,
		repos.Content,
		embedder,
		cfg.ProviderRegion,
		cfg.IngestDelay,
	)

	recommend := service.NewRecommendService(repos.Content, embedder)

	return &Handler{
		Repos:     repos,
		Config:    cfg,
		Ingest:    ingest,
		Recommend: recommend,
	}
}
