package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Config Worker Pool 配置
type Config struct {
	Workers int // worker 数量
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{Workers: 4}
}

// Statistics 统计信息快照
type Statistics struct {
	Workers   int   `json:"workers"`   // worker 上限
	Idle      int   `json:"idle"`      // 空闲 worker
	Submitted int64 `json:"submitted"` // 已提交
	Completed int64 `json:"completed"` // 已完成
	Failed    int64 `json:"failed"`    // 失败(返回错误或 panic)
	Running   int64 `json:"running"`   // 运行中
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
}

// Pool 基于 ants 的 worker pool,用于并行拉取会话数据
type Pool struct {
	pool   *ants.Pool
	stats  counters
	closed atomic.Bool
	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil || config.Workers <= 0 {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{logger: logger}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			p.stats.failed.Add(1)
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	p.pool = antsPool

	return p, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.stats.submitted.Add(1)
	err := p.pool.Submit(func() {
		p.stats.running.Add(1)
		defer p.stats.running.Add(-1)
		task()
		p.stats.completed.Add(1)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// RunAll 并行执行所有任务并等待完成,返回与任务下标对应的错误
// ctx 取消时尚未开始的任务直接返回 ctx.Err()
func (p *Pool) RunAll(ctx context.Context, tasks ...func(ctx context.Context) error) []error {
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			if err := task(ctx); err != nil {
				p.stats.failed.Add(1)
				errs[i] = err
			}
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	return errs
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Workers:   p.pool.Cap(),
		Idle:      p.pool.Free(),
		Submitted: p.stats.submitted.Load(),
		Completed: p.stats.completed.Load(),
		Failed:    p.stats.failed.Load(),
		Running:   p.stats.running.Load(),
	}
}

// Shutdown 关闭(幂等)
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.pool.Release()
}
