package data

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// GatewayClient 通过网关管理服务端进程
type GatewayClient struct {
	http *httpClient
	log  *logger.Logger
}

var _ biz.GatewayRepo = (*GatewayClient)(nil)

// NewGatewayClient 创建网关客户端
func NewGatewayClient(cfg ClientConfig, log *logger.Logger) *GatewayClient {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("gateway-client")
	return &GatewayClient{
		http: newHTTPClient(cfg, gatewayStatusCode, log),
		log:  log,
	}
}

func gatewayStatusCode(status int) int {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusNotFound:
		return apperrors.ErrProjectNotFound
	default:
		return apperrors.ErrServiceUnavail
	}
}

func projectPath(name string, rest string) string {
	return "projects/" + url.PathEscape(name) + "/" + rest
}

// APIURL 网关为项目代理的 API 根地址
func (c *GatewayClient) APIURL(name string) string {
	return c.http.url(projectPath(name, "api"))
}

// ListProjects 列出网关已知项目
func (c *GatewayClient) ListProjects(ctx context.Context) ([]types.Project, error) {
	var projects []types.Project
	if err := c.http.doJSON(ctx, http.MethodGet, "projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// StartProject 启动项目的服务端
func (c *GatewayClient) StartProject(ctx context.Context, name string) (*types.ProjectAction, error) {
	var action types.ProjectAction
	if err := c.http.doJSON(ctx, http.MethodPost, projectPath(name, "start"), nil, &action); err != nil {
		if apperrors.Is(err, apperrors.ErrProjectNotFound) {
			return nil, apperrors.Newf(apperrors.ErrProjectNotFound, "Project '%s' not found on server", name)
		}
		return nil, err
	}
	c.log.Info("project started",
		zap.String("project", name),
		zap.Int("port", action.Port),
		zap.String("status", action.Status),
	)
	return &action, nil
}

// StopProject 停止项目的服务端
func (c *GatewayClient) StopProject(ctx context.Context, name string) (*types.ProjectAction, error) {
	var action types.ProjectAction
	if err := c.http.doJSON(ctx, http.MethodDelete, projectPath(name, "stop"), nil, &action); err != nil {
		return nil, err
	}
	c.log.Info("project stopped", zap.String("project", name))
	return &action, nil
}

// ProjectStatus 项目是否运行中
func (c *GatewayClient) ProjectStatus(ctx context.Context, name string) (*types.Project, error) {
	var project types.Project
	if err := c.http.doJSON(ctx, http.MethodGet, projectPath(name, "status"), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}
