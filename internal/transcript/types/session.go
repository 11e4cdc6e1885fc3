package types

type SessionTime struct {
	Created float64 `json:"created"`
	Updated float64 `json:"updated"`
}

type SessionSummary struct {
	Additions *int `json:"additions,omitempty"`
	Deletions *int `json:"deletions,omitempty"`
	Files     *int `json:"files,omitempty"`
}

type SessionCost struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

type SessionStats struct {
	MessageCount  int     `json:"messageCount"`
	FilesModified int     `json:"filesModified"`
	ExecutionTime float64 `json:"executionTime"`
}

// Session 服务端的聊天会话
type Session struct {
	ID        string          `json:"id"`
	Version   string          `json:"version,omitempty"`
	ProjectID string          `json:"projectID"`
	Directory string          `json:"directory"`
	Title     string          `json:"title"`
	Time      SessionTime     `json:"time"`
	Summary   *SessionSummary `json:"summary,omitempty"`
	Cost      *SessionCost    `json:"cost,omitempty"`
	Stats     *SessionStats   `json:"stats,omitempty"`
}

// Clone 深拷贝,不与 s 共享指针
func (s Session) Clone() Session {
	out := s
	if s.Summary != nil {
		v := *s.Summary
		out.Summary = &v
	}
	if s.Cost != nil {
		v := *s.Cost
		out.Cost = &v
	}
	if s.Stats != nil {
		v := *s.Stats
		out.Stats = &v
	}
	return out
}

// Transcript 同步对话的只读快照
type Transcript struct {
	SessionID string        `json:"sessionID"`
	Session   *Session      `json:"session,omitempty"`
	Messages  []Message     `json:"messages"`
	Cost      *SessionCost  `json:"cost,omitempty"`
	Stats     *SessionStats `json:"stats,omitempty"`
	Version   uint64        `json:"version"`
}

// Message 按 ID 查找消息
func (t Transcript) Message(id string) (Message, bool) {
	for _, m := range t.Messages {
		if m.Info.ID == id {
			return m, true
		}
	}
	return Message{}, false
}
