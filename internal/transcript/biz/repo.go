package biz

import (
	"context"
	"io"

	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
)

// AgentRepo 服务端请求/响应接口
type AgentRepo interface {
	Health(ctx context.Context) (bool, error)

	ListSessions(ctx context.Context) ([]types.Session, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	CreateSession(ctx context.Context, title string) (*types.Session, error)

	ListMessages(ctx context.Context, sessionID string) ([]types.Message, error)
	SendMessage(ctx context.Context, sessionID, text string, model *types.ModelRef) error
	DeleteMessage(ctx context.Context, sessionID, messageID string) error
	Abort(ctx context.Context, sessionID string) error

	Providers(ctx context.Context) (*types.Providers, error)
	Commands(ctx context.Context) ([]types.Command, error)
	Todos(ctx context.Context, sessionID string) ([]types.Todo, error)
	Diffs(ctx context.Context, sessionID string) ([]types.FileDiff, error)
	Revert(ctx context.Context, sessionID string) error

	MCPStatus(ctx context.Context) ([]types.MCPStatus, error)
	ConnectMCP(ctx context.Context, name string) error
	LSPStatus(ctx context.Context) ([]types.LSPStatus, error)
}

// GatewayRepo 网关的项目生命周期接口
type GatewayRepo interface {
	ListProjects(ctx context.Context) ([]types.Project, error)
	StartProject(ctx context.Context, name string) (*types.ProjectAction, error)
	StopProject(ctx context.Context, name string) (*types.ProjectAction, error)
	ProjectStatus(ctx context.Context, name string) (*types.Project, error)
}

// EventSource 打开按行分隔的事件流,关闭返回的 reader 或取消 ctx 即结束
type EventSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
