package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Task 佇列中執行的工作
type Task func(ctx context.Context) error

// job 隊列請求
type job struct {
	ctx    context.Context
	task   Task
	result chan error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 固定數量 worker 的有界工作佇列（圖片下載與轉檔）
type Manager struct {
	config    config.QueueConfig
	queue     chan *job
	done      chan struct{}
	wg        sync.WaitGroup
	processed int64
	failed    int64
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewManager 創建隊列管理器並啟動 worker
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = cfg.Workers
	}

	m := &Manager{
		config: cfg,
		queue:  make(chan *job, cfg.MaxSize),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	return m
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for j := range m.queue {
		// 呼叫者已放棄的工作直接略過
		if err := j.ctx.Err(); err != nil {
			j.result <- err
			continue
		}
		err := j.task(j.ctx)
		if err != nil {
			atomic.AddInt64(&m.failed, 1)
			common.LogDebug("Queue task failed", zap.Int("worker", id), zap.Error(err))
		}
		atomic.AddInt64(&m.processed, 1)
		j.result <- err
	}
}

// Do 將工作放入佇列並等待完成；佇列已滿時立即回傳 ErrQueueFull
func (m *Manager) Do(ctx context.Context, task Task) error {
	j := &job{ctx: ctx, task: task, result: make(chan error, 1)}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return common.ErrServiceUnavailable.WithMessage("queue manager is closed")
	}
	select {
	case m.queue <- j:
		m.mu.RUnlock()
	default:
		m.mu.RUnlock()
		common.LogWarn("Queue full",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return common.ErrQueueFull
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止接收新工作，等待已排隊工作完成
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
		close(m.done)
	})
	m.wg.Wait()
}
