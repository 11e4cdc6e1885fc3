package codec

import (
	"fmt"

	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/tidwall/gjson"
)

// Part type tags that carry no displayable content
const (
	partStepStart  = "step-start"
	partStepFinish = "step-finish"
)

// reasoningFields lists where reasoning text may live, in priority order
var reasoningFields = []string{"text", "reasoning", "reasoning_content"}

// DecodePart maps a wire part object to a Part. ok is false for step
// markers, which decode to nothing without an error. Unrecognized part
// types become UnknownPart.
func DecodePart(raw gjson.Result) (part types.Part, ok bool, err error) {
	if !raw.IsObject() {
		return nil, false, fmt.Errorf("part is not an object")
	}
	typ := raw.Get("type")
	if typ.Type != gjson.String || typ.Str == "" {
		return nil, false, fmt.Errorf("part type missing")
	}
	id := raw.Get("id").String()

	switch typ.Str {
	case string(types.PartText):
		return types.TextPart{ID: id, Text: raw.Get("text").String()}, true, nil

	case string(types.PartTool):
		p := types.ToolPart{
			ID:     id,
			CallID: raw.Get("callID").String(),
			Tool:   raw.Get("tool").String(),
		}
		if state := raw.Get("state"); state.IsObject() {
			p.State = &types.ToolState{
				Status:   state.Get("status").String(),
				Title:    state.Get("title").String(),
				Input:    state.Get("input").Value(),
				Output:   state.Get("output").Value(),
				Metadata: state.Get("metadata").Value(),
				Error:    state.Get("error").String(),
			}
		}
		return p, true, nil

	case string(types.PartToolInvocation):
		inv := raw.Get("toolInvocation")
		if !inv.IsObject() {
			return nil, false, fmt.Errorf("tool-invocation part without toolInvocation object")
		}
		if inv.Get("toolName").Type != gjson.String {
			return nil, false, fmt.Errorf("tool-invocation part without toolName")
		}
		p := types.ToolInvocationPart{
			ID: id,
			Invocation: types.ToolInvocation{
				ToolName:   inv.Get("toolName").Str,
				ToolCallID: inv.Get("toolCallId").String(),
				State:      inv.Get("state").String(),
			},
		}
		if args, ok := inv.Get("args").Value().(map[string]interface{}); ok {
			p.Invocation.Args = args
		}
		return p, true, nil

	case string(types.PartToolResult):
		res := raw.Get("toolResult")
		if !res.IsObject() {
			return nil, false, fmt.Errorf("tool-result part without toolResult object")
		}
		return types.ToolResultPart{
			ID: id,
			Result: types.ToolResult{
				Result:  res.Get("result").String(),
				IsError: res.Get("isError").Bool(),
			},
		}, true, nil

	case string(types.PartFile):
		p := types.FilePart{
			ID:       id,
			FilePath: raw.Get("filePath").String(),
			Content:  raw.Get("content").String(),
			Filename: raw.Get("filename").String(),
			Mime:     raw.Get("mime").String(),
			URL:      raw.Get("url").String(),
		}
		if p.FilePath == "" && p.URL == "" {
			return nil, false, fmt.Errorf("file part without filePath or url")
		}
		return p, true, nil

	case string(types.PartReasoning):
		p := types.ReasoningPart{ID: id}
		for _, field := range reasoningFields {
			if v := raw.Get(field); v.Type == gjson.String {
				p.Text = v.Str
				break
			}
		}
		return p, true, nil

	case partStepStart, partStepFinish:
		return nil, false, nil

	default:
		return types.UnknownPart{ID: id, Type: typ.Str}, true, nil
	}
}
