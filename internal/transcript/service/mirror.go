package service

import (
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/response"
	"github.com/lk2023060901/vibe-remote/internal/pkg/sse"
	"github.com/lk2023060901/vibe-remote/internal/pkg/workerpool"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// mirrorBufferSize bounds events queued for one slow mirror client
const mirrorBufferSize = 128

// MirrorService 通过本地 HTTP 暴露会话,供其他工具跟随和驱动
type MirrorService struct {
	ctrl      *SessionController
	heartbeat time.Duration
	log       *logger.Logger
}

// NewMirrorService 创建镜像服务
func NewMirrorService(ctrl *SessionController, heartbeat time.Duration, log *logger.Logger) *MirrorService {
	if log == nil {
		log = logger.Nop()
	}
	return &MirrorService{
		ctrl:      ctrl,
		heartbeat: heartbeat,
		log:       log.Named("mirror"),
	}
}

// RegisterRoutes 注册路由
func (s *MirrorService) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/state", s.GetState)
	r.GET("/transcript", s.GetTranscript)
	r.GET("/events", s.StreamEvents)
	r.POST("/messages", s.SendMessage)
	r.DELETE("/messages/:id", s.DeleteMessage)
	r.POST("/abort", s.Abort)
	r.POST("/connect", s.Connect)
	r.POST("/restart", s.Restart)
	r.POST("/mcp/:name/connect", s.ConnectMCP)
	r.GET("/status", s.GetStatus)
	r.POST("/revert", s.Revert)
	r.GET("/providers", s.GetProviders)
	r.PUT("/model", s.SelectModel)
}

// SendMessageRequest POST /messages 请求体
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessageResponse 本地回显的 ID
type SendMessageResponse struct {
	PendingID string `json:"pendingID"`
}

// StateResponse 不含 transcript 的会话摘要
type StateResponse struct {
	SessionID   string                 `json:"sessionID"`
	Connection  types.ConnectionState  `json:"connection"`
	Loading     bool                   `json:"loading"`
	Model       *types.ModelRef        `json:"model,omitempty"`
	Version     uint64                 `json:"version"`
	Messages    int                    `json:"messages"`
	Subscribers int                    `json:"subscribers"`
	Workers     *workerpool.Statistics `json:"workers,omitempty"`
}

// ProvidersResponse 提供商目录及当前选中模型
type ProvidersResponse struct {
	Providers *types.Providers `json:"providers"`
	Commands  []types.Command  `json:"commands"`
	Selected  *types.ModelRef  `json:"selected,omitempty"`
}

func (s *MirrorService) state() StateResponse {
	snap := s.ctrl.Snapshot()
	state := StateResponse{
		SessionID:   s.ctrl.SessionID(),
		Connection:  s.ctrl.State(),
		Loading:     s.ctrl.IsLoading(),
		Model:       s.ctrl.Model(),
		Version:     snap.Version,
		Messages:    len(snap.Messages),
		Subscribers: s.ctrl.Hub().GetClientCount(TranscriptResource),
	}
	if stats, ok := s.ctrl.PoolStats(); ok {
		state.Workers = &stats
	}
	return state
}

// fail logs err and writes the error response
func (s *MirrorService) fail(c *gin.Context, err error) {
	log := s.log.WithContext(c.Request.Context())
	code := apperrors.ExtractCode(err)
	if apperrors.IsServerError(code) {
		log.Error("mirror request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("mirror request rejected", zap.String("path", c.FullPath()), zap.Int("code", code))
	}
	response.HandleError(c, err)
}

// GetState 获取连接状态
func (s *MirrorService) GetState(c *gin.Context) {
	response.Success(c, s.state())
}

// GetTranscript 获取当前 transcript 快照
func (s *MirrorService) GetTranscript(c *gin.Context) {
	response.Success(c, s.ctrl.Snapshot())
}

// StreamEvents 推送通知,连接后首先发送当前状态与 transcript
func (s *MirrorService) StreamEvents(c *gin.Context) {
	var stream *sse.Stream
	stream = sse.NewStream(c, s.ctrl.Hub()).
		WithResource(TranscriptResource).
		WithHeartbeat(s.heartbeat).
		WithBufferSize(mirrorBufferSize).
		OnConnect(func(st *sse.Stream) {
			_ = st.Send(EventState, s.ctrl.State())
			_ = st.Send("snapshot", s.ctrl.Snapshot())
		}).
		OnDisconnect(func() {
			s.log.Debug("mirror client disconnected",
				zap.String("client_id", stream.GetClientID()),
				zap.Duration("duration", stream.GetDuration()),
			)
		}).
		OnError(func(err error) {
			s.log.Debug("mirror stream error", zap.Error(err))
		}).
		Build()

	s.log.Debug("mirror client connected", zap.String("client_id", stream.GetClientID()))
	stream.StartStreaming()
}

// SendMessage 发送用户消息,回复经事件流到达
func (s *MirrorService) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	id, err := s.ctrl.SendMessage(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	response.Accepted(c, SendMessageResponse{PendingID: id})
}

// DeleteMessage 删除消息
func (s *MirrorService) DeleteMessage(c *gin.Context) {
	if err := s.ctrl.DeleteMessage(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Abort 停止正在进行的生成
func (s *MirrorService) Abort(c *gin.Context) {
	if err := s.ctrl.Abort(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Connect 失败后重新连接会话
func (s *MirrorService) Connect(c *gin.Context) {
	if err := s.ctrl.Connect(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, s.state())
}

// ConnectMCP 连接 MCP 服务器并返回全部服务器状态
func (s *MirrorService) ConnectMCP(c *gin.Context) {
	servers, err := s.ctrl.ConnectMCP(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, servers)
}

// Restart 重启项目并重连,没有网关时只重连
func (s *MirrorService) Restart(c *gin.Context) {
	if err := s.ctrl.Restart(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, s.state())
}

// GetStatus 刷新并返回待办、变更与工具服务器状态
func (s *MirrorService) GetStatus(c *gin.Context) {
	status, err := s.ctrl.RefreshStatus(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, status)
}

// Revert 撤销会话的文件变更
func (s *MirrorService) Revert(c *gin.Context) {
	if err := s.ctrl.Revert(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// GetProviders 获取连接时加载的目录
func (s *MirrorService) GetProviders(c *gin.Context) {
	response.Success(c, ProvidersResponse{
		Providers: s.ctrl.Providers(),
		Commands:  s.ctrl.Commands(),
		Selected:  s.ctrl.Model(),
	})
}

// SelectModel 固定之后发送提示所用模型
func (s *MirrorService) SelectModel(c *gin.Context) {
	var ref types.ModelRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := s.ctrl.SelectModel(ref); err != nil {
		s.fail(c, err)
		return
	}
	response.Success(c, ref)
}
