package types

// 事件类型标签
const (
	EventMessageUpdated     = "message.updated"
	EventMessagePartUpdated = "message.part.updated"
	EventMessageRemoved     = "message.removed"
	EventSessionUpdated     = "session.updated"
	EventSessionError       = "session.error"
	EventSessionStatus      = "session.status"
	EventSessionIdle        = "session.idle"
	EventSessionDiff        = "session.diff"
	EventServerConnected    = "server.connected"
	EventServerHeartbeat    = "server.heartbeat"
)

// ServerEvent 解码后的流事件,变体集合是封闭的:
// MessageUpdated、PartUpdated、SessionUpdated、MessageRemoved、Connected
// 与 SessionError
type ServerEvent interface {
	EventType() string
	isServerEvent()
}

// MessageUpdated 完整的消息元信息快照
type MessageUpdated struct {
	Info MessageInfo
}

// PartUpdated 单个 part 及其所属消息 ID
// wire 上未指明会话时 SessionID 为空
type PartUpdated struct {
	MessageID string
	SessionID string
	Part      Part
}

// SessionUpdated 完整的会话快照
type SessionUpdated struct {
	Session Session
}

type MessageRemoved struct {
	MessageID string
}

type Connected struct{}

// SessionError 服务端上报的应用层错误
type SessionError struct {
	Message string
}

func (MessageUpdated) EventType() string { return EventMessageUpdated }
func (PartUpdated) EventType() string    { return EventMessagePartUpdated }
func (SessionUpdated) EventType() string { return EventSessionUpdated }
func (MessageRemoved) EventType() string { return EventMessageRemoved }
func (Connected) EventType() string      { return EventServerConnected }
func (SessionError) EventType() string   { return EventSessionError }

func (MessageUpdated) isServerEvent() {}
func (PartUpdated) isServerEvent()    {}
func (SessionUpdated) isServerEvent() {}
func (MessageRemoved) isServerEvent() {}
func (Connected) isServerEvent()      {}
func (SessionError) isServerEvent()   {}
