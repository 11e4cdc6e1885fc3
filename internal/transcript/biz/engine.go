package biz

import (
	"context"
	"sync/atomic"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

const defaultQueueSize = 64

// NotificationKind 意图应用后发布的信号类型
type NotificationKind string

const (
	NotifyTranscriptUpdated  NotificationKind = "transcript.updated"
	NotifyGenerationFinished NotificationKind = "generation.finished"
	NotifySessionError       NotificationKind = "session.error"
)

// Notification 发给展示层的信号
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Version   uint64           `json:"version"`
	MessageID string           `json:"messageID,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Notifier 在引擎 goroutine 上接收通知,实现不得阻塞,也不得提交意图
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc 函数适配为 Notifier
type NotifierFunc func(Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Intent 对 transcript 的一次串行写入
type Intent interface {
	apply(e *Engine) (Effect, error)
}

// ApplyEvent 应用一个解码后的服务端事件
type ApplyEvent struct {
	Event types.ServerEvent
}

// LoadHistory 用拉取的历史替换 transcript
type LoadHistory struct {
	SessionID string
	Messages  []types.Message
	Session   *types.Session
}

// AppendOptimistic 追加用户消息的本地回显
type AppendOptimistic struct {
	Message types.Message
}

// RemoveMessage 服务端确认删除后移除消息
type RemoveMessage struct {
	ID string
}

// DropOptimistic 请求失败时移除本地回显,拒绝乐观命名空间之外的 ID
type DropOptimistic struct {
	ID string
}

// SetSession 记录会话快照
type SetSession struct {
	Session types.Session
}

// ResetTranscript 清空 transcript
type ResetTranscript struct{}

func (i ApplyEvent) apply(e *Engine) (Effect, error) {
	if i.Event == nil {
		return Effect{}, nil
	}
	return e.reconciler.Apply(i.Event), nil
}

func (i LoadHistory) apply(e *Engine) (Effect, error) {
	e.store.Load(i.SessionID, i.Messages)
	if i.Session != nil {
		e.store.SetSession(*i.Session)
	}
	return Effect{Changed: true}, nil
}

func (i AppendOptimistic) apply(e *Engine) (Effect, error) {
	if err := e.store.AppendOptimistic(i.Message); err != nil {
		return Effect{}, err
	}
	return Effect{Changed: true}, nil
}

func (i RemoveMessage) apply(e *Engine) (Effect, error) {
	return Effect{Changed: e.store.Remove(i.ID)}, nil
}

func (i DropOptimistic) apply(e *Engine) (Effect, error) {
	if !types.IsPendingID(i.ID) {
		return Effect{}, apperrors.New(apperrors.ErrInvalidPendingID, i.ID)
	}
	return Effect{Changed: e.store.Remove(i.ID)}, nil
}

func (i SetSession) apply(e *Engine) (Effect, error) {
	return Effect{Changed: e.store.SetSession(i.Session)}, nil
}

func (ResetTranscript) apply(e *Engine) (Effect, error) {
	e.store.Reset()
	return Effect{Changed: true}, nil
}

type result struct {
	effect Effect
	err    error
}

type request struct {
	intent Intent
	reply  chan result
}

// EngineConfig 引擎配置
type EngineConfig struct {
	QueueSize int
}

// Engine Store 的唯一写入者,意图按提交顺序由运行 Run 的 goroutine 逐个应用
type Engine struct {
	store      *Store
	reconciler *Reconciler
	notifier   Notifier
	log        *logger.Logger

	requests chan request
	stopped  chan struct{}
	running  atomic.Bool
}

// NewEngine 创建持有 store 的引擎
func NewEngine(cfg EngineConfig, store *Store, reconciler *Reconciler, notifier Notifier, log *logger.Logger) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Engine{
		store:      store,
		reconciler: reconciler,
		notifier:   notifier,
		log:        log.Named("engine"),
		requests:   make(chan request, cfg.QueueSize),
		stopped:    make(chan struct{}),
	}
}

// Run 应用意图直到 ctx 结束,只能调用一次
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return apperrors.New(apperrors.ErrInternalServer, "engine already running")
	}
	defer close(e.stopped)

	e.log.Debug("engine started")
	for {
		select {
		case <-ctx.Done():
			e.log.Debug("engine stopped")
			return ctx.Err()
		case req := <-e.requests:
			eff, err := req.intent.apply(e)
			if err == nil {
				e.publish(eff)
			}
			req.reply <- result{effect: eff, err: err}
		}
	}
}

// Submit 提交意图并等待其应用完成
func (e *Engine) Submit(ctx context.Context, intent Intent) (Effect, error) {
	req := request{intent: intent, reply: make(chan result, 1)}

	select {
	case e.requests <- req:
	case <-e.stopped:
		return Effect{}, apperrors.New(apperrors.ErrServiceUnavail, "transcript engine stopped")
	case <-ctx.Done():
		return Effect{}, apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
	}

	select {
	case res := <-req.reply:
		return res.effect, res.err
	case <-e.stopped:
		// Run may have exited after taking the request
		select {
		case res := <-req.reply:
			return res.effect, res.err
		default:
			return Effect{}, apperrors.New(apperrors.ErrServiceUnavail, "transcript engine stopped")
		}
	case <-ctx.Done():
		return Effect{}, apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
	}
}

// Snapshot 返回 transcript 的一致性拷贝
func (e *Engine) Snapshot() types.Transcript {
	return e.store.Snapshot()
}

// Message 返回单条消息的拷贝
func (e *Engine) Message(id string) (types.Message, bool) {
	return e.store.Message(id)
}

// SessionID 当前加载的会话
func (e *Engine) SessionID() string {
	return e.store.SessionID()
}

func (e *Engine) publish(eff Effect) {
	version := e.store.Version()
	if eff.Changed {
		e.notifier.Notify(Notification{Kind: NotifyTranscriptUpdated, Version: version})
	}
	if eff.GenerationFinished {
		e.notifier.Notify(Notification{
			Kind:      NotifyGenerationFinished,
			Version:   version,
			MessageID: eff.FinishedMessageID,
		})
	}
	if eff.SessionError != "" {
		e.log.Warn("session error reported", zap.String("error", eff.SessionError))
		e.notifier.Notify(Notification{
			Kind:    NotifySessionError,
			Version: version,
			Message: eff.SessionError,
		})
	}
}
