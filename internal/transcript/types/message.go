package types

import "strings"

// Role 消息作者角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// MessageTime 服务端时间戳,原样保存,不解释单位
type MessageTime struct {
	Created   float64  `json:"created"`
	Completed *float64 `json:"completed,omitempty"`
}

// ModelRef 提供商/模型对
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// Complete 两个 ID 是否都已设置
func (m *ModelRef) Complete() bool {
	return m != nil && m.ProviderID != "" && m.ModelID != ""
}

type CacheUsage struct {
	Read  int `json:"read"`
	Write int `json:"write"`
}

type TokenUsage struct {
	Input     int         `json:"input"`
	Output    int         `json:"output"`
	Reasoning *int        `json:"reasoning,omitempty"`
	Cache     *CacheUsage `json:"cache,omitempty"`
}

// Total 输入与输出 token 之和
func (t TokenUsage) Total() int {
	return t.Input + t.Output
}

type MessagePath struct {
	Cwd  string `json:"cwd,omitempty"`
	Root string `json:"root,omitempty"`
}

type MessageErrorData struct {
	Message string `json:"message,omitempty"`
}

// MessageError 服务端附加在消息上的终止错误
type MessageError struct {
	Name string            `json:"name,omitempty"`
	Data *MessageErrorData `json:"data,omitempty"`
}

type MessageSummary struct {
	Title string `json:"title,omitempty"`
	Diffs []any  `json:"diffs,omitempty"`
}

// MessageInfo 服务端维护的消息元信息,不含 parts
type MessageInfo struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionID"`
	Role       Role            `json:"role"`
	Time       MessageTime     `json:"time"`
	Model      *ModelRef       `json:"model,omitempty"`
	Cost       *float64        `json:"cost,omitempty"`
	Tokens     *TokenUsage     `json:"tokens,omitempty"`
	Agent      string          `json:"agent,omitempty"`
	ParentID   string          `json:"parentID,omitempty"`
	ModelID    string          `json:"modelID,omitempty"`
	ProviderID string          `json:"providerID,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	Path       *MessagePath    `json:"path,omitempty"`
	Error      *MessageError   `json:"error,omitempty"`
	Summary    *MessageSummary `json:"summary,omitempty"`
}

// EffectiveModelID 优先使用嵌套的模型引用
func (i MessageInfo) EffectiveModelID() string {
	if i.Model != nil && i.Model.ModelID != "" {
		return i.Model.ModelID
	}
	return i.ModelID
}

// EffectiveProviderID 优先使用嵌套的模型引用
func (i MessageInfo) EffectiveProviderID() string {
	if i.Model != nil && i.Model.ProviderID != "" {
		return i.Model.ProviderID
	}
	return i.ProviderID
}

// IsCompleted 服务端是否已标记消息完成
func (i MessageInfo) IsCompleted() bool {
	return i.Time.Completed != nil
}

// Message 一轮对话
// Parts == nil 表示尚未加载,非 nil 的空切片表示已加载但没有内容
type Message struct {
	Info  MessageInfo `json:"info"`
	Parts []Part      `json:"parts"`
}

// ID 消息 ID
func (m Message) ID() string {
	return m.Info.ID
}

// TextContent 以换行拼接所有文本 part
func (m Message) TextContent() string {
	var texts []string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ToolCalls 按顺序返回两种 wire 形态的工具 part
func (m Message) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Parts {
		switch p.(type) {
		case ToolPart, ToolInvocationPart:
			calls = append(calls, p)
		}
	}
	return calls
}

// Clone 深拷贝,不与 m 共享可变状态
func (m Message) Clone() Message {
	out := Message{Info: m.Info.clone()}
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = ClonePart(p)
		}
	}
	return out
}

func (i MessageInfo) clone() MessageInfo {
	out := i
	if i.Time.Completed != nil {
		v := *i.Time.Completed
		out.Time.Completed = &v
	}
	if i.Model != nil {
		v := *i.Model
		out.Model = &v
	}
	if i.Cost != nil {
		v := *i.Cost
		out.Cost = &v
	}
	if i.Tokens != nil {
		v := *i.Tokens
		if i.Tokens.Reasoning != nil {
			r := *i.Tokens.Reasoning
			v.Reasoning = &r
		}
		if i.Tokens.Cache != nil {
			c := *i.Tokens.Cache
			v.Cache = &c
		}
		out.Tokens = &v
	}
	if i.Path != nil {
		v := *i.Path
		out.Path = &v
	}
	if i.Error != nil {
		v := *i.Error
		if i.Error.Data != nil {
			d := *i.Error.Data
			v.Data = &d
		}
		out.Error = &v
	}
	if i.Summary != nil {
		v := *i.Summary
		v.Diffs = append([]any(nil), i.Summary.Diffs...)
		out.Summary = &v
	}
	return out
}
