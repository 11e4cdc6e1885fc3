package types

import (
	"encoding/json"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PartKind part 的 wire 类型标签
type PartKind string

const (
	PartText           PartKind = "text"
	PartToolInvocation PartKind = "tool-invocation"
	PartTool           PartKind = "tool"
	PartToolResult     PartKind = "tool-result"
	PartFile           PartKind = "file"
	PartReasoning      PartKind = "reasoning"
	PartUnknown        PartKind = "unknown"
)

// Part 消息内容的子单元,变体集合是封闭的:
// TextPart、ToolInvocationPart、ToolPart、ToolResultPart、FilePart、
// ReasoningPart 与 UnknownPart
//
// 负载(工具输入输出、参数)解码后视为不可变
type Part interface {
	Kind() PartKind
	isPart()
}

// TextPart 纯文本,每条消息至多一个
type TextPart struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// ToolInvocation 旧版 tool-invocation 形态的负载
type ToolInvocation struct {
	ToolName   string         `json:"toolName"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	State      string         `json:"state"`
}

// ToolInvocationPart tool-invocation 形态的工具调用
type ToolInvocationPart struct {
	ID         string         `json:"id,omitempty"`
	Invocation ToolInvocation `json:"toolInvocation"`
}

// ToolState ToolPart 的生命周期状态
type ToolState struct {
	Status   string `json:"status,omitempty"`
	Title    string `json:"title,omitempty"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ToolPart tool 形态的工具调用
type ToolPart struct {
	ID     string     `json:"id,omitempty"`
	CallID string     `json:"callID,omitempty"`
	Tool   string     `json:"tool"`
	State  *ToolState `json:"state,omitempty"`
}

type ToolResult struct {
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"isError"`
}

type ToolResultPart struct {
	ID     string     `json:"id,omitempty"`
	Result ToolResult `json:"toolResult"`
}

// FilePart 文件引用,本地路径或 URL
type FilePart struct {
	ID       string `json:"id,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Content  string `json:"content,omitempty"`
	Filename string `json:"filename,omitempty"`
	Mime     string `json:"mime,omitempty"`
	URL      string `json:"url,omitempty"`
}

type ReasoningPart struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// UnknownPart 保留无法识别的 part 的 wire 类型
type UnknownPart struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"originalType,omitempty"`
}

func (TextPart) Kind() PartKind           { return PartText }
func (ToolInvocationPart) Kind() PartKind { return PartToolInvocation }
func (ToolPart) Kind() PartKind           { return PartTool }
func (ToolResultPart) Kind() PartKind     { return PartToolResult }
func (FilePart) Kind() PartKind           { return PartFile }
func (ReasoningPart) Kind() PartKind      { return PartReasoning }
func (UnknownPart) Kind() PartKind        { return PartUnknown }

func (TextPart) isPart()           {}
func (ToolInvocationPart) isPart() {}
func (ToolPart) isPart()           {}
func (ToolResultPart) isPart()     {}
func (FilePart) isPart()           {}
func (ReasoningPart) isPart()      {}
func (UnknownPart) isPart()        {}

// The alias types drop the MarshalJSON method so the embedded body
// serializes field by field.
type (
	textAlias           TextPart
	toolInvocationAlias ToolInvocationPart
	toolAlias           ToolPart
	toolResultAlias     ToolResultPart
	fileAlias           FilePart
	reasoningAlias      ReasoningPart
	unknownAlias        UnknownPart
)

func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		textAlias
	}{PartText, textAlias(p)})
}

func (p ToolInvocationPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		toolInvocationAlias
	}{PartToolInvocation, toolInvocationAlias(p)})
}

func (p ToolPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		toolAlias
	}{PartTool, toolAlias(p)})
}

func (p ToolResultPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		toolResultAlias
	}{PartToolResult, toolResultAlias(p)})
}

func (p FilePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		fileAlias
	}{PartFile, fileAlias(p)})
}

func (p ReasoningPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		reasoningAlias
	}{PartReasoning, reasoningAlias(p)})
}

func (p UnknownPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		unknownAlias
	}{PartUnknown, unknownAlias(p)})
}

// ClonePart 拷贝 p 的可变容器
func ClonePart(p Part) Part {
	switch v := p.(type) {
	case ToolPart:
		if v.State != nil {
			s := *v.State
			v.State = &s
		}
		return v
	case ToolInvocationPart:
		v.Invocation.Args = maps.Clone(v.Invocation.Args)
		return v
	default:
		return p
	}
}

var toolDisplayNames = map[string]string{
	"read":                "Read",
	"write":               "Write",
	"edit":                "Edit",
	"bash":                "Bash",
	"glob":                "Glob",
	"grep":                "Grep",
	"task":                "Task",
	"todowrite":           "Todo",
	"todoread":            "Todo",
	"lsp_diagnostics":     "LSP Diagnostics",
	"lsp_hover":           "LSP Hover",
	"lsp_goto_definition": "LSP Go To Definition",
}

// ToolDisplayName 工具名的展示标签
func ToolDisplayName(tool string) string {
	if name, ok := toolDisplayNames[tool]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(tool, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// DisplayName 工具调用的展示名
func (p ToolPart) DisplayName() string {
	return ToolDisplayName(p.Tool)
}

// Status 工具状态,未知时返回 ""
func (p ToolPart) Status() string {
	if p.State == nil {
		return ""
	}
	return p.State.Status
}

// DisplayName 工具调用的展示名
func (p ToolInvocationPart) DisplayName() string {
	return ToolDisplayName(p.Invocation.ToolName)
}

// FilePath 调用参数中的 filePath
func (p ToolInvocationPart) FilePath() string {
	s, _ := p.Invocation.Args["filePath"].(string)
	return s
}

// Command 调用参数中的 command
func (p ToolInvocationPart) Command() string {
	s, _ := p.Invocation.Args["command"].(string)
	return s
}
