package biz

import (
	"reflect"
	"sync"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
)

// Mutation 一次写入的结果
type Mutation struct {
	Created bool
	Changed bool
}

// Store 单个会话的有序 transcript
//
// 读取可来自任意 goroutine,总是返回深拷贝
// 写入必须来自唯一所有者(见 Engine),锁只保证写入对读者原子可见
type Store struct {
	mu        sync.RWMutex
	sessionID string
	session   *types.Session
	messages  []types.Message
	version   uint64
}

// NewStore 创建空 store
func NewStore() *Store {
	return &Store{}
}

// Load 用 msgs 替换 sessionID 的全部 transcript
// 重复 ID 合并到首次出现处:info 取最后一次,parts 按顺序合并
func (s *Store) Load(sessionID string, msgs []types.Message) {
	loaded := make([]types.Message, 0, len(msgs))
	pos := make(map[string]int, len(msgs))
	for _, m := range msgs {
		if i, ok := pos[m.Info.ID]; ok {
			loaded[i].Info = m.Clone().Info
			for _, p := range m.Parts {
				loaded[i].Parts = MergePart(loaded[i].Parts, types.ClonePart(p))
			}
			continue
		}
		pos[m.Info.ID] = len(loaded)
		loaded = append(loaded, m.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != sessionID {
		s.session = nil
	}
	s.sessionID = sessionID
	s.messages = loaded
	s.version++
}

// UpsertInfo 替换已有消息的 info 并保留 parts,否则追加一条未加载 parts 的新消息
func (s *Store) UpsertInfo(info types.MessageInfo) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(info.ID); i >= 0 {
		if reflect.DeepEqual(s.messages[i].Info, info) {
			return Mutation{}
		}
		s.messages[i].Info = types.Message{Info: info}.Clone().Info
		s.version++
		return Mutation{Changed: true}
	}

	s.messages = append(s.messages, types.Message{Info: info}.Clone())
	s.version++
	return Mutation{Created: true, Changed: true}
}

// RemovePendingUsers 移除全部乐观用户消息,返回移除数量
func (s *Store) RemovePendingUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	removed := 0
	for _, m := range s.messages {
		if m.Info.Role == types.RoleUser && types.IsPendingID(m.Info.ID) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	// clear the tail so removed messages can be collected
	for i := len(kept); i < len(s.messages); i++ {
		s.messages[i] = types.Message{}
	}
	s.messages = kept
	if removed > 0 {
		s.version++
	}
	return removed
}

// ApplyPart 将 part 合并进 messageID 对应的消息
// 消息未知时由 placeholder 提供新消息的 info,它接收 store 的会话 ID,
// 不得回调 store,返回的 ID 会被强制为 messageID
func (s *Store) ApplyPart(messageID string, part types.Part, placeholder func(sessionID string) types.MessageInfo) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	part = types.ClonePart(part)
	if i := s.indexOf(messageID); i >= 0 {
		merged := MergePart(s.messages[i].Parts, part)
		if s.messages[i].Parts != nil && reflect.DeepEqual(merged, s.messages[i].Parts) {
			return Mutation{}
		}
		s.messages[i].Parts = merged
		s.version++
		return Mutation{Changed: true}
	}

	info := placeholder(s.sessionID)
	info.ID = messageID
	s.messages = append(s.messages, types.Message{Info: info, Parts: []types.Part{part}})
	s.version++
	return Mutation{Created: true, Changed: true}
}

// Remove 删除消息,返回是否存在
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	s.version++
	return true
}

// AppendOptimistic 追加本地消息,ID 必须属于乐观命名空间,不会遮盖服务端消息
func (s *Store) AppendOptimistic(msg types.Message) error {
	if !types.IsPendingID(msg.Info.ID) {
		return apperrors.New(apperrors.ErrInvalidPendingID, msg.Info.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(msg.Info.ID) >= 0 {
		return apperrors.Newf(apperrors.ErrInvalidPendingID, "duplicate id %s", msg.Info.ID)
	}
	s.messages = append(s.messages, msg.Clone())
	s.version++
	return nil
}

// SetSession 记录最新会话快照(费用、统计、标题)
func (s *Store) SetSession(session types.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && reflect.DeepEqual(*s.session, session) {
		return false
	}
	c := session.Clone()
	s.session = &c
	s.version++
	return true
}

// Reset 清空 store
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = ""
	s.session = nil
	s.messages = nil
	s.version++
}

// Snapshot transcript 的一致性深拷贝
func (s *Store) Snapshot() types.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := types.Transcript{
		SessionID: s.sessionID,
		Messages:  make([]types.Message, len(s.messages)),
		Version:   s.version,
	}
	for i, m := range s.messages {
		t.Messages[i] = m.Clone()
	}
	if s.session != nil {
		c := s.session.Clone()
		t.Session = &c
		t.Cost = c.Cost
		t.Stats = c.Stats
	}
	return t
}

// Message 按 ID 返回消息拷贝
func (s *Store) Message(id string) (types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.messages[i].Clone(), true
	}
	return types.Message{}, false
}

// Has 是否存在该消息
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Len 消息数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Version 每次改变状态的写入都会递增
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SessionID 已加载会话的 ID
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// IDs 按 transcript 顺序返回消息 ID
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.messages))
	for i, m := range s.messages {
		ids[i] = m.Info.ID
	}
	return ids
}

func (s *Store) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].Info.ID == id {
			return i
		}
	}
	return -1
}
