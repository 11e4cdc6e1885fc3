package biz

import "github.com/lk2023060901/vibe-remote/internal/transcript/types"

// MergePart upserts incoming into parts and returns the resulting list.
// The input slice is never modified.
//
//   - text: at most one per message, replaced in place
//   - tool: matched on CallID
//   - tool-invocation: matched on Invocation.ToolCallID
//   - everything else is appended
//
// An empty call id never matches. Identity is per variant, so a tool part
// never replaces a tool-invocation part with the same call id.
func MergePart(parts []types.Part, incoming types.Part) []types.Part {
	out := make([]types.Part, len(parts), len(parts)+1)
	copy(out, parts)

	if idx := matchIndex(parts, incoming); idx >= 0 {
		out[idx] = incoming
		return out
	}
	return append(out, incoming)
}

// matchIndex returns the position incoming replaces, or -1 to append.
func matchIndex(parts []types.Part, incoming types.Part) int {
	switch in := incoming.(type) {
	case types.TextPart:
		for i, p := range parts {
			if _, ok := p.(types.TextPart); ok {
				return i
			}
		}
	case types.ToolPart:
		if in.CallID == "" {
			return -1
		}
		for i, p := range parts {
			if tp, ok := p.(types.ToolPart); ok && tp.CallID == in.CallID {
				return i
			}
		}
	case types.ToolInvocationPart:
		if in.Invocation.ToolCallID == "" {
			return -1
		}
		for i, p := range parts {
			if tp, ok := p.(types.ToolInvocationPart); ok && tp.Invocation.ToolCallID == in.Invocation.ToolCallID {
				return i
			}
		}
	case types.ToolResultPart, types.FilePart, types.ReasoningPart, types.UnknownPart:
		// no identity key; redelivery duplicates these
	}
	return -1
}
