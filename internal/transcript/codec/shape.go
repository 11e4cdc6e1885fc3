package codec

import (
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/tidwall/gjson"
)

type infoKind int

const (
	infoNone infoKind = iota
	infoMessage
	infoSession
)

func (k infoKind) String() string {
	switch k {
	case infoMessage:
		return "message"
	case infoSession:
		return "session"
	}
	return "none"
}

// infoShape is one candidate interpretation of properties.info
type infoShape struct {
	kind    infoKind
	matches func(gjson.Result) bool
}

// infoShapes is evaluated in order; the first match wins.
var infoShapes = []infoShape{
	{kind: infoMessage, matches: isMessageInfo},
	{kind: infoSession, matches: isSessionInfo},
}

func classifyInfo(info gjson.Result) infoKind {
	if !info.IsObject() {
		return infoNone
	}
	for _, shape := range infoShapes {
		if shape.matches(info) {
			return shape.kind
		}
	}
	return infoNone
}

func isNonEmptyString(v gjson.Result) bool {
	return v.Type == gjson.String && v.Str != ""
}

func isOptional(v gjson.Result, want gjson.Type) bool {
	return !v.Exists() || v.Type == gjson.Null || v.Type == want
}

func isOptionalObject(v gjson.Result) bool {
	return !v.Exists() || v.Type == gjson.Null || v.IsObject()
}

func isMessageInfo(info gjson.Result) bool {
	role := info.Get("role")
	return isNonEmptyString(info.Get("id")) &&
		info.Get("sessionID").Type == gjson.String &&
		role.Type == gjson.String && types.Role(role.Str).Valid() &&
		info.Get("time").IsObject() &&
		info.Get("time.created").Type == gjson.Number &&
		isOptional(info.Get("time.completed"), gjson.Number) &&
		isOptional(info.Get("cost"), gjson.Number) &&
		isOptionalObject(info.Get("model")) &&
		isOptionalObject(info.Get("tokens")) &&
		isOptionalObject(info.Get("path")) &&
		isOptionalObject(info.Get("error")) &&
		isOptionalObject(info.Get("summary"))
}

func isSessionInfo(info gjson.Result) bool {
	return isNonEmptyString(info.Get("id")) &&
		info.Get("projectID").Type == gjson.String &&
		info.Get("directory").Type == gjson.String &&
		info.Get("title").Type == gjson.String &&
		info.Get("time").IsObject() &&
		info.Get("time.created").Type == gjson.Number &&
		info.Get("time.updated").Type == gjson.Number &&
		isOptionalObject(info.Get("summary")) &&
		isOptionalObject(info.Get("cost")) &&
		isOptionalObject(info.Get("stats"))
}
