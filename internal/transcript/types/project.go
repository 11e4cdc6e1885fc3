package types

// Project 网关管理的工作区
type Project struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	HasGit         bool   `json:"has_git"`
	HasPackageJSON bool   `json:"has_package_json"`
	IsRunning      bool   `json:"is_running"`
	Port           *int   `json:"port,omitempty"`
}

// ProjectAction 网关对启动/停止请求的响应
type ProjectAction struct {
	Name   string `json:"name"`
	Port   int    `json:"port,omitempty"`
	Status string `json:"status"`
}
