package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/sse"
	"github.com/lk2023060901/vibe-remote/internal/pkg/workerpool"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"github.com/lk2023060901/vibe-remote/internal/transcript/codec"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// TranscriptResource 所有通知发布的 hub 资源
const TranscriptResource = "transcript"

// 引擎通知之外的 hub 事件类型
const (
	EventState   = "state"
	EventLoading = "loading"
	EventFatal   = "fatal"
)

const (
	defaultHealthRetries    = 3
	defaultHealthRetryDelay = time.Second
	defaultSessionTitle     = "vibe-remote"
	defaultRestartStopWait  = time.Second
	defaultRestartStartWait = 2 * time.Second
)

// ControllerConfig SessionController 配置
type ControllerConfig struct {
	// Project is the gateway project name; empty when talking to the agent
	// server directly
	Project      string
	SessionID    string
	SessionTitle string
	Model        *types.ModelRef

	HealthRetries    int
	HealthRetryDelay time.Duration
	RestartStopWait  time.Duration
	RestartStartWait time.Duration
	QueueSize        int

	Supervisor SupervisorConfig
}

// Deps SessionController 的依赖
type Deps struct {
	Agent   biz.AgentRepo
	Gateway biz.GatewayRepo // optional
	Source  biz.EventSource
	Decoder *codec.Decoder
	Pool    *workerpool.Pool
	Hub     *sse.Hub
}

// Status 会话最近一次的待办、变更摘要和工具服务器状态
type Status struct {
	Todos []types.Todo      `json:"todos"`
	Diffs []types.FileDiff  `json:"diffs"`
	MCP   []types.MCPStatus `json:"mcp"`
	LSP   []types.LSPStatus `json:"lsp"`
}

// subscription is the running supervisor; cancel and wait on done to
// release it
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// SessionController 管理一个远端会话:启动引导、事件订阅以及用户操作
type SessionController struct {
	cfg  ControllerConfig
	deps Deps
	log  *logger.Logger

	engine *biz.Engine

	lifetime context.Context
	shutdown context.CancelFunc
	engineWG sync.WaitGroup

	mu        sync.Mutex
	state     types.ConnectionState
	loading   bool
	sessionID string
	model     *types.ModelRef
	providers *types.Providers
	commands  []types.Command
	status    Status
	sub       *subscription

	// epoch changes on every Connect and Close; a bootstrap that finishes
	// under a different epoch must not subscribe
	epoch         uint64
	cancelConnect context.CancelFunc

	restarting atomic.Bool
}

// NewController 创建控制器并启动 transcript 引擎,使用完需调用 Shutdown
func NewController(cfg ControllerConfig, deps Deps, log *logger.Logger) *SessionController {
	if cfg.HealthRetries <= 0 {
		cfg.HealthRetries = defaultHealthRetries
	}
	if cfg.HealthRetryDelay <= 0 {
		cfg.HealthRetryDelay = defaultHealthRetryDelay
	}
	if cfg.SessionTitle == "" {
		cfg.SessionTitle = defaultSessionTitle
	}
	if cfg.RestartStopWait <= 0 {
		cfg.RestartStopWait = defaultRestartStopWait
	}
	if cfg.RestartStartWait <= 0 {
		cfg.RestartStartWait = defaultRestartStartWait
	}
	if log == nil {
		log = logger.Nop()
	}
	if deps.Decoder == nil {
		deps.Decoder = codec.NewDecoder(log)
	}
	if deps.Hub == nil {
		deps.Hub = sse.NewHub()
	}

	c := &SessionController{
		cfg:       cfg,
		deps:      deps,
		log:       log.Named("controller"),
		state:     types.StateDisconnected(),
		sessionID: cfg.SessionID,
	}

	store := biz.NewStore()
	reconciler := biz.NewReconciler(store, biz.WithReconcilerLogger(log))
	c.engine = biz.NewEngine(biz.EngineConfig{QueueSize: cfg.QueueSize}, store, reconciler, c, log)

	c.lifetime, c.shutdown = context.WithCancel(context.Background())
	c.engineWG.Add(1)
	go func() {
		defer c.engineWG.Done()
		_ = c.engine.Run(c.lifetime)
	}()
	return c
}

// Connect 引导会话并开始订阅事件,仅在未连接或出错时生效
func (c *SessionController) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(logger.ToContext(ctx, c.log))
	defer cancel()

	c.mu.Lock()
	if !c.state.CanConnect() {
		c.mu.Unlock()
		return nil
	}
	c.epoch++
	epoch := c.epoch
	c.cancelConnect = cancel
	c.setStateLocked(types.StateConnecting())
	c.mu.Unlock()

	err := c.bootstrap(ctx)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Info("connect abandoned, session closed")
		return apperrors.New(apperrors.ErrCancelled, "session closed while connecting")
	}
	c.cancelConnect = nil
	if err != nil {
		c.setStateLocked(types.StateErrored(reasonOf(err)))
		c.mu.Unlock()
		c.log.Error("connect failed", zap.Error(err))
		return err
	}
	c.mu.Unlock()

	if !c.subscribe(epoch) {
		return apperrors.New(apperrors.ErrCancelled, "session closed while connecting")
	}
	c.log.Info("connected", zap.String("session_id", c.SessionID()))
	return nil
}

// Close 取消进行中的连接与订阅,并等待订阅停止,之后不再重连
func (c *SessionController) Close() {
	c.mu.Lock()
	c.epoch++
	if c.cancelConnect != nil {
		c.cancelConnect()
		c.cancelConnect = nil
	}
	c.mu.Unlock()

	c.stopSubscription()
	c.setState(types.StateDisconnected())
}

func (c *SessionController) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Shutdown 关闭会话并停止引擎
func (c *SessionController) Shutdown() {
	c.Close()
	c.shutdown()
	c.engineWG.Wait()
}

// bootstrap runs the full session setup: project start, health check,
// session resolution and the initial loads
func (c *SessionController) bootstrap(ctx context.Context) error {
	if err := c.startProject(ctx); err != nil {
		return err
	}
	if err := c.waitHealthy(ctx); err != nil {
		return err
	}
	session, err := c.resolveSession(ctx)
	if err != nil {
		return err
	}
	return c.load(logger.WithSessionID(ctx, session.ID), session)
}

func (c *SessionController) startProject(ctx context.Context) error {
	if c.deps.Gateway == nil || c.cfg.Project == "" {
		return nil
	}
	log := logger.FromContext(ctx)
	action, err := c.deps.Gateway.StartProject(ctx, c.cfg.Project)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrProjectNotFound) || ctx.Err() != nil {
			return err
		}
		log.Warn("failed to start project, connecting anyway",
			zap.String("project", c.cfg.Project),
			zap.Error(err),
		)
		return nil
	}
	log.Info("project running",
		zap.String("project", c.cfg.Project),
		zap.Int("port", action.Port),
		zap.String("status", action.Status),
	)
	return nil
}

// waitHealthy polls the health endpoint. Transport errors count as an
// unhealthy answer until the retries run out.
func (c *SessionController) waitHealthy(ctx context.Context) error {
	log := logger.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= c.cfg.HealthRetries; attempt++ {
		healthy, err := c.deps.Agent.Health(ctx)
		if ctx.Err() != nil {
			return apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
		}
		if healthy {
			return nil
		}
		lastErr = err
		log.Info("health check failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < c.cfg.HealthRetries {
			if err := sleep(ctx, c.cfg.HealthRetryDelay); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCancelled)
			}
		}
	}
	if lastErr != nil {
		return apperrors.Wrap(lastErr, apperrors.ErrHealthCheck, "agent server not responding after start")
	}
	return apperrors.New(apperrors.ErrHealthCheck, "agent server not responding after start")
}

// resolveSession uses the configured session when the server still has it
// and otherwise creates a new one. It never falls back to another
// existing session.
func (c *SessionController) resolveSession(ctx context.Context) (*types.Session, error) {
	log := logger.FromContext(ctx)
	sessions, err := c.deps.Agent.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	want := c.SessionID()
	if want != "" {
		for i := range sessions {
			if sessions[i].ID == want {
				log.Info("using existing session",
					zap.String("session_id", want),
					zap.String("title", sessions[i].Title),
				)
				return &sessions[i], nil
			}
		}
		log.Warn("configured session not found, creating a new one", zap.String("session_id", want))
	}

	session, err := c.deps.Agent.CreateSession(ctx, c.cfg.SessionTitle)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.sessionID = session.ID
	c.mu.Unlock()
	return session, nil
}

// load fetches history, providers and commands in parallel. Failures are
// logged and never abort the bootstrap.
func (c *SessionController) load(ctx context.Context, session *types.Session) error {
	c.mu.Lock()
	c.sessionID = session.ID
	c.mu.Unlock()
	log := logger.FromContext(ctx)

	var (
		history   []types.Message
		providers *types.Providers
		commands  []types.Command
	)
	errs := c.runAll(ctx,
		func(ctx context.Context) (err error) {
			history, err = c.deps.Agent.ListMessages(ctx, session.ID)
			return err
		},
		func(ctx context.Context) (err error) {
			providers, err = c.deps.Agent.Providers(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			commands, err = c.deps.Agent.Commands(ctx)
			return err
		},
	)
	if ctx.Err() != nil {
		return apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
	}

	intent := biz.LoadHistory{SessionID: session.ID, Messages: history, Session: session}
	if errs[0] != nil {
		log.Error("failed to load messages", zap.Error(errs[0]))
		if c.engine.SessionID() == session.ID {
			// keep what we have; the stream fills in the gap
			intent.Messages = c.engine.Snapshot().Messages
		}
	}
	if _, err := c.engine.Submit(ctx, intent); err != nil {
		return err
	}

	if errs[1] != nil {
		log.Error("failed to load providers", zap.Error(errs[1]))
	}
	if errs[2] != nil {
		log.Error("failed to load commands", zap.Error(errs[2]))
	}

	c.mu.Lock()
	if providers != nil {
		c.providers = providers
		c.model = providers.Select(c.preferredModelLocked())
	}
	if commands != nil {
		c.commands = commands
	}
	model := c.model
	c.mu.Unlock()

	if model != nil {
		log.Info("model selected",
			zap.String("provider", model.ProviderID),
			zap.String("model", model.ModelID),
		)
	} else {
		log.Warn("no model available")
	}
	return nil
}

// preferredModelLocked keeps a model picked earlier over the configured one
func (c *SessionController) preferredModelLocked() *types.ModelRef {
	if c.model.Complete() {
		return c.model
	}
	return c.cfg.Model
}

func (c *SessionController) runAll(ctx context.Context, tasks ...func(context.Context) error) []error {
	if c.deps.Pool != nil {
		return c.deps.Pool.RunAll(ctx, tasks...)
	}
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		errs[i] = task(ctx)
	}
	return errs
}

// subscribe starts the supervisor and marks the session connected. It
// reports false when Close ran since epoch was taken.
func (c *SessionController) subscribe(epoch uint64) bool {
	c.stopSubscription()

	ctx := logger.WithSessionID(logger.ToContext(c.lifetime, c.log), c.SessionID())
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	sup := NewSupervisor(
		c.cfg.Supervisor,
		c.deps.Source,
		c.deps.Decoder,
		c.engine,
		c.bootstrap,
		SupervisorHooks{OnState: c.setState, OnFatal: c.onFatal},
		c.log,
	)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		cancel()
		return false
	}
	c.sub = sub
	c.setStateLocked(types.StateConnected())
	c.mu.Unlock()

	go func() {
		defer close(sub.done)
		_ = sup.Run(ctx)
	}()
	return true
}

func (c *SessionController) stopSubscription() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub == nil {
		return
	}
	sub.cancel()
	<-sub.done
}

func (c *SessionController) onFatal(err error) {
	c.setLoading(false)
	c.deps.Hub.Broadcast(TranscriptResource, sse.Event{
		Type: EventFatal,
		Data: map[string]string{"message": reasonOf(err)},
	})
}

// SendMessage 追加本地回显并发送,请求失败时移除回显,返回回显的 pending ID
func (c *SessionController) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.New(apperrors.ErrEmptyMessage)
	}
	sessionID, err := c.activeSession()
	if err != nil {
		return "", err
	}
	ctx = logger.WithSessionID(logger.ToContext(ctx, c.log), sessionID)

	now := biz.EpochMillis(time.Now())
	echo := types.Message{
		Info: types.MessageInfo{
			ID:        types.NewPendingID(),
			SessionID: sessionID,
			Role:      types.RoleUser,
			Time:      types.MessageTime{Created: now, Completed: &now},
		},
		Parts: []types.Part{types.TextPart{Text: text}},
	}
	if _, err := c.engine.Submit(ctx, biz.AppendOptimistic{Message: echo}); err != nil {
		return "", err
	}
	c.setLoading(true)

	log := logger.FromContext(ctx)
	model := c.Model()
	if model != nil {
		log.Info("sending message",
			zap.String("provider", model.ProviderID),
			zap.String("model", model.ModelID),
		)
	}
	if err := c.deps.Agent.SendMessage(ctx, sessionID, text, model); err != nil {
		log.Error("failed to send message", zap.Error(err))
		if _, dropErr := c.engine.Submit(c.lifetime, biz.DropOptimistic{ID: echo.Info.ID}); dropErr != nil {
			log.Warn("failed to drop local echo", zap.Error(dropErr))
		}
		c.setLoading(false)
		return "", err
	}
	return echo.Info.ID, nil
}

// DeleteMessage 先在服务端删除,再本地删除,未到达服务端的本地回显只在本地移除
func (c *SessionController) DeleteMessage(ctx context.Context, messageID string) error {
	if _, ok := c.engine.Message(messageID); !ok {
		return apperrors.New(apperrors.ErrMessageNotFound, messageID)
	}
	if types.IsPendingID(messageID) {
		_, err := c.engine.Submit(ctx, biz.DropOptimistic{ID: messageID})
		return err
	}

	sessionID, err := c.activeSession()
	if err != nil {
		return err
	}
	ctx = logger.WithMessageID(logger.WithSessionID(ctx, sessionID), messageID)
	if err := c.deps.Agent.DeleteMessage(ctx, sessionID, messageID); err != nil {
		c.log.WithContext(ctx).Error("failed to delete message", zap.Error(err))
		return err
	}
	_, err = c.engine.Submit(ctx, biz.RemoveMessage{ID: messageID})
	return err
}

// Abort 停止正在进行的生成
func (c *SessionController) Abort(ctx context.Context) error {
	sessionID, err := c.activeSession()
	if err != nil {
		return err
	}
	if err := c.deps.Agent.Abort(ctx, sessionID); err != nil {
		c.log.Error("failed to abort", zap.Error(err))
		return err
	}
	c.setLoading(false)
	return nil
}

// RefreshStatus 并发拉取待办、变更以及 MCP 和 LSP 状态
func (c *SessionController) RefreshStatus(ctx context.Context) (Status, error) {
	sessionID, err := c.activeSession()
	if err != nil {
		return Status{}, err
	}
	ctx = logger.WithSessionID(ctx, sessionID)

	var status Status
	errs := c.runAll(ctx,
		func(ctx context.Context) (err error) {
			status.Todos, err = c.deps.Agent.Todos(ctx, sessionID)
			return err
		},
		func(ctx context.Context) (err error) {
			status.Diffs, err = c.deps.Agent.Diffs(ctx, sessionID)
			return err
		},
		func(ctx context.Context) (err error) {
			status.MCP, err = c.deps.Agent.MCPStatus(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			status.LSP, err = c.deps.Agent.LSPStatus(ctx)
			return err
		},
	)
	for _, err := range errs {
		if err != nil {
			c.log.WithContext(ctx).Error("failed to refresh status", zap.Error(err))
			return Status{}, err
		}
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	return status, nil
}

// Revert 撤销会话的文件变更并清空缓存的变更
func (c *SessionController) Revert(ctx context.Context) error {
	sessionID, err := c.activeSession()
	if err != nil {
		return err
	}
	if err := c.deps.Agent.Revert(ctx, sessionID); err != nil {
		c.log.Error("failed to revert", zap.Error(err))
		return err
	}
	c.mu.Lock()
	c.status.Diffs = nil
	c.mu.Unlock()
	return nil
}

// ConnectMCP 连接 MCP 服务器并返回刷新后的 MCP 列表
func (c *SessionController) ConnectMCP(ctx context.Context, name string) ([]types.MCPStatus, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "mcp server name is required")
	}
	log := c.log.WithContext(ctx).With(zap.String("mcp", name))
	if err := c.deps.Agent.ConnectMCP(ctx, name); err != nil {
		log.Error("failed to connect mcp server", zap.Error(err))
		return nil, err
	}
	servers, err := c.deps.Agent.MCPStatus(ctx)
	if err != nil {
		log.Error("failed to refresh mcp status", zap.Error(err))
		return nil, err
	}
	log.Info("mcp server connected")

	c.mu.Lock()
	c.status.MCP = servers
	c.mu.Unlock()
	return servers, nil
}

// Restart 通过网关停止并启动项目后重连,没有网关时只重连,并发调用会被忽略
func (c *SessionController) Restart(ctx context.Context) error {
	if !c.restarting.CompareAndSwap(false, true) {
		return nil
	}
	defer c.restarting.Store(false)

	c.stopSubscription()
	if c.deps.Gateway == nil || c.cfg.Project == "" {
		c.log.Info("no gateway project, reconnecting")
		c.setState(types.StateDisconnected())
		return c.Connect(ctx)
	}
	epoch := c.currentEpoch()
	c.setState(types.StateConnecting())

	err := func() error {
		c.log.Info("stopping project", zap.String("project", c.cfg.Project))
		if _, err := c.deps.Gateway.StopProject(ctx, c.cfg.Project); err != nil {
			return err
		}
		if err := sleep(ctx, c.cfg.RestartStopWait); err != nil {
			return err
		}
		if _, err := c.deps.Gateway.StartProject(ctx, c.cfg.Project); err != nil {
			return err
		}
		return sleep(ctx, c.cfg.RestartStartWait)
	}()
	if err != nil {
		c.log.Error("restart failed", zap.Error(err))
		c.setState(types.StateErrored("Restart failed: " + reasonOf(err)))
		return err
	}

	if c.currentEpoch() != epoch {
		return apperrors.New(apperrors.ErrCancelled, "session closed while restarting")
	}
	c.setState(types.StateDisconnected())
	return c.Connect(ctx)
}

// Projects 列出网关项目,当前项目排在最前
func (c *SessionController) Projects(ctx context.Context) ([]types.Project, error) {
	if c.deps.Gateway == nil {
		return nil, apperrors.New(apperrors.ErrBadRequest, "no gateway configured")
	}
	projects, err := c.deps.Gateway.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].Name == c.cfg.Project && projects[j].Name != c.cfg.Project
	})
	return projects, nil
}

// ProjectStatus 当前项目的服务端是否运行
func (c *SessionController) ProjectStatus(ctx context.Context) (*types.Project, error) {
	if c.deps.Gateway == nil || c.cfg.Project == "" {
		return nil, apperrors.New(apperrors.ErrBadRequest, "no gateway project configured")
	}
	return c.deps.Gateway.ProjectStatus(ctx, c.cfg.Project)
}

// State 连接状态
func (c *SessionController) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot 当前 transcript
func (c *SessionController) Snapshot() types.Transcript {
	return c.engine.Snapshot()
}

// IsLoading 是否正在生成回复
func (c *SessionController) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// SessionID 当前会话 ID
func (c *SessionController) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Model 发送提示所用模型
func (c *SessionController) Model() *types.ModelRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	m := *c.model
	return &m
}

// SelectModel 固定之后发送提示所用模型,目录加载后只接受其中的模型
func (c *SessionController) SelectModel(ref types.ModelRef) error {
	if !ref.Complete() {
		return apperrors.New(apperrors.ErrInvalidParams, "providerID and modelID are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.providers != nil {
		if got := c.providers.Select(&ref); got == nil || *got != ref {
			return apperrors.Newf(apperrors.ErrInvalidParams, "unknown model %s/%s", ref.ProviderID, ref.ModelID)
		}
	}
	c.model = &ref
	return nil
}

// Providers 引导时加载的提供商目录
func (c *SessionController) Providers() *types.Providers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers
}

// Commands 引导时加载的斜杠命令
func (c *SessionController) Commands() []types.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Command(nil), c.commands...)
}

// Status 最近一次刷新的状态
func (c *SessionController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PoolStats 工作池计数,未配置工作池时 ok 为 false
func (c *SessionController) PoolStats() (stats workerpool.Statistics, ok bool) {
	if c.deps.Pool == nil {
		return workerpool.Statistics{}, false
	}
	return c.deps.Pool.Stats(), true
}

// Hub 发布通知的 hub
func (c *SessionController) Hub() *sse.Hub {
	return c.deps.Hub
}

// Notify 实现 biz.Notifier,运行在引擎 goroutine 上
func (c *SessionController) Notify(n biz.Notification) {
	switch n.Kind {
	case biz.NotifyGenerationFinished, biz.NotifySessionError:
		c.setLoading(false)
	}
	c.deps.Hub.Broadcast(TranscriptResource, sse.Event{Type: string(n.Kind), Data: n})
}

func (c *SessionController) activeSession() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" || c.state.Status == types.StatusDisconnected {
		return "", apperrors.New(apperrors.ErrNotConnected)
	}
	return c.sessionID, nil
}

func (c *SessionController) setState(s types.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(s)
}

func (c *SessionController) setStateLocked(s types.ConnectionState) {
	if c.state == s {
		return
	}
	c.log.Debug("connection state", zap.String("from", c.state.String()), zap.String("to", s.String()))
	c.state = s
	c.deps.Hub.Broadcast(TranscriptResource, sse.Event{Type: EventState, Data: s})
}

func (c *SessionController) setLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading == loading {
		return
	}
	c.loading = loading
	c.deps.Hub.Broadcast(TranscriptResource, sse.Event{Type: EventLoading, Data: map[string]bool{"loading": loading}})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
