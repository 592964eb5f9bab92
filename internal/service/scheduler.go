package service

import (
	"context"
	"log"
	"time"

	"github.com/user/moovibe/internal/model"
)

// Scheduler 定时采集调度器
// 周期性地对每个分类执行一次默认采集运行，保持目录新鲜
type Scheduler struct {
	ingest   *IngestService
	interval time.Duration
	stop     chan struct{}
}

// NewScheduler 创建调度器
func NewScheduler(ingest *IngestService, interval time.Duration) *Scheduler {
	return &Scheduler{
		ingest:   ingest,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动定时采集任务
func (s *Scheduler) Start() {
	// 启动时先运行一轮
	go s.runAll()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runAll()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止调度器（已在执行中的运行不会被打断）
func (s *Scheduler) Stop() {
	close(s.stop)
}

// runAll 对每个分类执行一次默认采集运行
func (s *Scheduler) runAll() {
	log.Println("[调度] 开始定时采集...")

	categories := []string{
		model.CategoryMovie,
		model.CategoryDrama,
		model.CategoryAnimation,
		model.CategoryVariety,
	}

	for _, category := range categories {
		result, err := s.ingest.RunSafe(context.Background(), IngestRequest{
			Category: category,
			Count:    20,
		})
		if err != nil {
			log.Printf("[调度] 分类 %s 采集失败: %v", category, err)
			continue
		}
		log.Printf("[调度] 分类 %s 采集完成: 写入 %d，跳过 %d", category, result.Saved, result.Skipped)
	}

	log.Println("[调度] 定时采集结束")
}
