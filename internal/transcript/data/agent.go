package data

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"github.com/lk2023060901/vibe-remote/internal/transcript/codec"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// AgentClient 服务端会话 API 客户端
type AgentClient struct {
	http    *httpClient
	decoder *codec.Decoder
	log     *logger.Logger
}

var _ biz.AgentRepo = (*AgentClient)(nil)

// NewAgentClient 创建客户端,cfg.BaseURL 为 API 根地址,
// 可以是服务端本身,也可以是网关的项目 API 地址
func NewAgentClient(cfg ClientConfig, decoder *codec.Decoder, log *logger.Logger) *AgentClient {
	if log == nil {
		log = logger.Nop()
	}
	if decoder == nil {
		decoder = codec.NewDecoder(log)
	}
	log = log.Named("agent-client")
	return &AgentClient{
		http:    newHTTPClient(cfg, agentStatusCode, log),
		decoder: decoder,
		log:     log,
	}
}

func agentStatusCode(status int) int {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusNotFound:
		return apperrors.ErrSessionNotFound
	default:
		return apperrors.ErrSession
	}
}

func sessionPath(id string, rest ...string) string {
	p := "session/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Health 健康检查接口是否返回 200,传输失败以错误返回
func (c *AgentClient) Health(ctx context.Context) (bool, error) {
	_, err := c.http.do(ctx, http.MethodGet, "global/health", nil)
	if err == nil {
		return true, nil
	}
	if apperrors.IsConnectionCode(apperrors.ExtractCode(err)) || apperrors.Is(err, apperrors.ErrCancelled) {
		return false, err
	}
	return false, nil
}

// ListSessions 列出项目会话
func (c *AgentClient) ListSessions(ctx context.Context) ([]types.Session, error) {
	var sessions []types.Session
	if err := c.http.doJSON(ctx, http.MethodGet, "session", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession 获取单个会话
func (c *AgentClient) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var session types.Session
	if err := c.http.doJSON(ctx, http.MethodGet, sessionPath(id), nil, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, apperrors.New(apperrors.ErrSessionNotFound, id)
	}
	return &session, nil
}

// CreateSession 创建会话
func (c *AgentClient) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	var session types.Session
	body := map[string]string{"title": title}
	if err := c.http.doJSON(ctx, http.MethodPost, "session", body, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, apperrors.New(apperrors.ErrSession, "server returned a session without id")
	}
	c.log.WithContext(ctx).Info("session created", zap.String("new_session_id", session.ID), zap.String("title", title))
	return &session, nil
}

// ListMessages 获取会话完整历史
func (c *AgentClient) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	data, err := c.http.do(ctx, http.MethodGet, sessionPath(sessionID, "message"), nil)
	if err != nil {
		return nil, err
	}
	return c.decoder.DecodeHistory(data)
}

type promptPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type promptRequest struct {
	Parts []promptPart    `json:"parts"`
	Model *types.ModelRef `json:"model,omitempty"`
}

// SendMessage 发送提示,不等待回复,回复经事件流到达
// 仅当两个 ID 都已设置时才发送 model
func (c *AgentClient) SendMessage(ctx context.Context, sessionID, text string, model *types.ModelRef) error {
	req := promptRequest{Parts: []promptPart{{Type: "text", Text: text}}}
	if model.Complete() {
		req.Model = model
	}
	_, err := c.http.do(ctx, http.MethodPost, sessionPath(sessionID, "prompt_async"), req)
	return err
}

// DeleteMessage 删除会话中的一条消息
func (c *AgentClient) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	_, err := c.http.do(ctx, http.MethodDelete, sessionPath(sessionID, "message", url.PathEscape(messageID)), nil)
	return err
}

// Abort 停止正在进行的生成
func (c *AgentClient) Abort(ctx context.Context, sessionID string) error {
	_, err := c.http.do(ctx, http.MethodPost, sessionPath(sessionID, "abort"), nil)
	return err
}

// Providers 获取提供商目录
func (c *AgentClient) Providers(ctx context.Context) (*types.Providers, error) {
	data, err := c.http.do(ctx, http.MethodGet, "config/providers", nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeProviders(data)
}

// Commands 列出斜杠命令
func (c *AgentClient) Commands(ctx context.Context) ([]types.Command, error) {
	var commands []types.Command
	if err := c.http.doJSON(ctx, http.MethodGet, "command", nil, &commands); err != nil {
		return nil, err
	}
	return commands, nil
}

// Todos 会话的待办列表
func (c *AgentClient) Todos(ctx context.Context, sessionID string) ([]types.Todo, error) {
	var todos []types.Todo
	if err := c.http.doJSON(ctx, http.MethodGet, sessionPath(sessionID, "todo"), nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Diffs 会话中的文件变更
func (c *AgentClient) Diffs(ctx context.Context, sessionID string) ([]types.FileDiff, error) {
	var diffs []types.FileDiff
	if err := c.http.doJSON(ctx, http.MethodGet, sessionPath(sessionID, "diff"), nil, &diffs); err != nil {
		return nil, err
	}
	return diffs, nil
}

// MCPStatus MCP 服务器及其连接状态,按名称排序
func (c *AgentClient) MCPStatus(ctx context.Context) ([]types.MCPStatus, error) {
	data, err := c.http.do(ctx, http.MethodGet, "mcp", nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeMCPStatus(data)
}

// ConnectMCP 请求服务端(重新)连接 MCP 服务器
func (c *AgentClient) ConnectMCP(ctx context.Context, name string) error {
	_, err := c.http.do(ctx, http.MethodPost, "mcp/"+url.PathEscape(name)+"/connect", nil)
	return err
}

// LSPStatus 服务端运行的语言服务器
func (c *AgentClient) LSPStatus(ctx context.Context) ([]types.LSPStatus, error) {
	var servers []types.LSPStatus
	if err := c.http.doJSON(ctx, http.MethodGet, "lsp", nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Revert 撤销会话的文件变更
func (c *AgentClient) Revert(ctx context.Context, sessionID string) error {
	_, err := c.http.do(ctx, http.MethodPost, sessionPath(sessionID, "revert"), nil)
	return err
}
