package types

// ConnStatus 事件订阅的连接状态
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
	StatusError        ConnStatus = "error"
)

// ConnectionState 提供给展示层的连接状态,仅 StatusError 时设置 Reason
type ConnectionState struct {
	Status ConnStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

func StateDisconnected() ConnectionState { return ConnectionState{Status: StatusDisconnected} }
func StateConnecting() ConnectionState   { return ConnectionState{Status: StatusConnecting} }
func StateConnected() ConnectionState    { return ConnectionState{Status: StatusConnected} }

// StateErrored 返回带原因的错误状态
func StateErrored(reason string) ConnectionState {
	return ConnectionState{Status: StatusError, Reason: reason}
}

// IsError 是否为 error(reason) 状态
func (s ConnectionState) IsError() bool {
	return s.Status == StatusError
}

// CanConnect 当前状态下是否允许发起新的连接
func (s ConnectionState) CanConnect() bool {
	return s.Status == StatusDisconnected || s.Status == StatusError
}

func (s ConnectionState) String() string {
	if s.Status == StatusError {
		return "error(" + s.Reason + ")"
	}
	return string(s.Status)
}
