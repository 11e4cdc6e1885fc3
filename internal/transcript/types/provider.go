package types

import "sort"

type ModelLimit struct {
	Context int `json:"context,omitempty"`
	Output  int `json:"output,omitempty"`
}

type Model struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Limit *ModelLimit `json:"limit,omitempty"`
}

// Provider LLM 提供商,模型按名称排序
type Provider struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Models []Model `json:"models"`
}

// HasModel 是否提供 modelID
func (p Provider) HasModel(modelID string) bool {
	for _, m := range p.Models {
		if m.ID == modelID {
			return true
		}
	}
	return false
}

// Providers 提供商目录及服务端默认值
// Default 为 {"provider": id, "model": id} 或 提供商 ID -> 模型 ID 的映射
type Providers struct {
	Providers []Provider        `json:"providers"`
	Default   map[string]string `json:"default,omitempty"`
}

// SortModels 按名称、再按 ID 排序
func SortModels(models []Model) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].Name != models[j].Name {
			return models[i].Name < models[j].Name
		}
		return models[i].ID < models[j].ID
	})
}

// Select 选择发送提示所用模型:目录中存在时用 want,
// 否则用第一个存在的服务端默认值,再否则用第一个提供商的第一个模型
// 目录为空时返回 nil
func (p Providers) Select(want *ModelRef) *ModelRef {
	find := func(providerID, modelID string) *ModelRef {
		for _, prov := range p.Providers {
			if prov.ID == providerID && prov.HasModel(modelID) {
				return &ModelRef{ProviderID: providerID, ModelID: modelID}
			}
		}
		return nil
	}

	if want.Complete() {
		if ref := find(want.ProviderID, want.ModelID); ref != nil {
			return ref
		}
	}

	// {"provider": ..., "model": ...} form
	if ref := find(p.Default["provider"], p.Default["model"]); ref != nil {
		return ref
	}
	// provider id -> model id form, walked in catalogue order
	for _, prov := range p.Providers {
		if modelID, ok := p.Default[prov.ID]; ok {
			if ref := find(prov.ID, modelID); ref != nil {
				return ref
			}
		}
	}

	for _, prov := range p.Providers {
		if len(prov.Models) > 0 {
			return &ModelRef{ProviderID: prov.ID, ModelID: prov.Models[0].ID}
		}
	}
	return nil
}

// Command 服务端提供的斜杠命令
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Todo struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// IsCompleted 待办是否完成
func (t Todo) IsCompleted() bool {
	return t.Status == "completed"
}

type FileDiff struct {
	File string `json:"file"`
	Diff string `json:"diff"`
}

// MCPStatus MCP 服务器连接状态
type MCPStatus struct {
	Name             string   `json:"name"`
	ConnectionStatus string   `json:"connectionStatus"`
	Tools            []string `json:"tools,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// IsConnected 是否已连接
func (s MCPStatus) IsConnected() bool {
	return s.ConnectionStatus == "connected"
}

// LSPStatus 语言服务器运行状态
type LSPStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsRunning 是否运行中
func (s LSPStatus) IsRunning() bool {
	return s.Status == "running"
}
