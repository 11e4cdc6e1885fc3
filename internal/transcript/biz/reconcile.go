package biz

import (
	"time"

	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// Effect 应用事件在 store 变更之外的影响
type Effect struct {
	// Changed is set when the transcript or session snapshot changed
	Changed bool

	// GenerationFinished is set when an assistant message reports completion
	GenerationFinished bool
	FinishedMessageID  string

	// ClearLoading asks the caller to drop any in-flight loading indicator
	ClearLoading bool

	Connected    bool
	SessionError string

	PlaceholderCreated bool
	RemovedPending     int
}

// Merge 将 other 合并进 e
func (e Effect) Merge(other Effect) Effect {
	e.Changed = e.Changed || other.Changed
	e.GenerationFinished = e.GenerationFinished || other.GenerationFinished
	if other.FinishedMessageID != "" {
		e.FinishedMessageID = other.FinishedMessageID
	}
	e.ClearLoading = e.ClearLoading || other.ClearLoading
	e.Connected = e.Connected || other.Connected
	if other.SessionError != "" {
		e.SessionError = other.SessionError
	}
	e.PlaceholderCreated = e.PlaceholderCreated || other.PlaceholderCreated
	e.RemovedPending += other.RemovedPending
	return e
}

// ReconcilerOption Reconciler 选项
type ReconcilerOption func(*Reconciler)

// WithClock 设置占位时间戳所用时钟
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithReconcilerLogger 设置日志
func WithReconcilerLogger(log *logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.log = log
	}
}

// Reconciler 将解码后的服务端事件应用到 Store
//
// 服务端在同一条流上发布项目内所有会话的事件,
// store 确定自身会话后,明确属于其他会话的事件会被跳过
type Reconciler struct {
	store *Store
	now   func() time.Time
	log   *logger.Logger
}

// NewReconciler 创建写入 store 的 reconciler
func NewReconciler(store *Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store: store,
		now:   time.Now,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("reconcile")
	return r
}

// Apply 应用 ev 并返回其影响,不会失败:与当前 transcript 不符的事件不做处理
func (r *Reconciler) Apply(ev types.ServerEvent) Effect {
	switch e := ev.(type) {
	case types.MessageUpdated:
		return r.messageUpdated(e.Info)
	case types.PartUpdated:
		return r.partUpdated(e)
	case types.SessionUpdated:
		if r.foreign(e.Session.ID) {
			return Effect{}
		}
		return Effect{Changed: r.store.SetSession(e.Session)}
	case types.MessageRemoved:
		return Effect{Changed: r.store.Remove(e.MessageID)}
	case types.Connected:
		return Effect{Connected: true}
	case types.SessionError:
		return Effect{ClearLoading: true, SessionError: e.Message}
	}
	return Effect{}
}

func (r *Reconciler) messageUpdated(info types.MessageInfo) Effect {
	if r.foreign(info.SessionID) {
		r.log.Debug("skipping message of another session",
			zap.String("message_id", info.ID),
			zap.String("session_id", info.SessionID),
		)
		return Effect{}
	}

	var eff Effect
	if info.Role == types.RoleUser && !r.store.Has(info.ID) {
		// the server echo of a user message supersedes the local echo
		eff.RemovedPending = r.store.RemovePendingUsers()
	}
	m := r.store.UpsertInfo(info)
	eff.Changed = m.Changed || eff.RemovedPending > 0

	if info.Role == types.RoleAssistant && info.IsCompleted() {
		eff.GenerationFinished = true
		eff.FinishedMessageID = info.ID
		eff.ClearLoading = true
	}
	return eff
}

func (r *Reconciler) partUpdated(e types.PartUpdated) Effect {
	if e.MessageID == "" || e.Part == nil {
		return Effect{}
	}
	if r.foreign(e.SessionID) {
		return Effect{}
	}

	m := r.store.ApplyPart(e.MessageID, e.Part, r.placeholder)
	if m.Created {
		r.log.Debug("part arrived before its message",
			zap.String("message_id", e.MessageID),
			zap.String("part_type", string(e.Part.Kind())),
		)
	}
	return Effect{Changed: m.Changed, PlaceholderCreated: m.Created}
}

// placeholder is the info of a message synthesized for an orphan part
func (r *Reconciler) placeholder(sessionID string) types.MessageInfo {
	return types.MessageInfo{
		SessionID: sessionID,
		Role:      types.RoleAssistant,
		Time:      types.MessageTime{Created: EpochMillis(r.now())},
	}
}

func (r *Reconciler) foreign(sessionID string) bool {
	own := r.store.SessionID()
	return sessionID != "" && own != "" && sessionID != own
}

// EpochMillis 转换为服务端使用的毫秒时间戳
func EpochMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}
