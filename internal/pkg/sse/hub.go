package sse

import (
	"encoding/json"
	"strings"
	"sync"
)

// Event SSE 事件
type Event struct {
	Type string      `json:"type"` // 事件类型
	Data interface{} `json:"data"` // 事件数据
}

// Client SSE 客户端连接
type Client struct {
	ID       string
	Channel  chan Event
	Resource string // 订阅的资源 ID (如 session:xxx)
}

// Hub SSE 连接管理器
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // resource -> clients
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Resource] == nil {
		h.clients[client.Resource] = make(map[*Client]bool)
	}
	h.clients[client.Resource][client] = true
}

// Unregister 注销客户端并关闭其 Channel(幂等)
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.Resource]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.Channel)

			// 清理空资源
			if len(clients) == 0 {
				delete(h.clients, client.Resource)
			}
		}
	}
}

// Broadcast 向订阅指定资源的所有客户端广播消息,返回丢弃的数量
func (h *Hub) Broadcast(resource string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for client := range h.clients[resource] {
		select {
		case client.Channel <- event:
		default:
			// 客户端缓冲区满,跳过
			dropped++
		}
	}
	return dropped
}

// Deliver 向单个已注册客户端投递事件,客户端未注册或缓冲区满时返回 false
func (h *Hub) Deliver(client *Client, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client.Resource][client] {
		return false
	}
	select {
	case client.Channel <- event:
		return true
	default:
		return false
	}
}

// GetClientCount 获取订阅指定资源的客户端数量
func (h *Hub) GetClientCount(resource string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[resource])
}

// FormatSSE 格式化为 SSE 消息格式,多行数据拆分为多个 data 行
func (e Event) FormatSSE() string {
	data, err := json.Marshal(e.Data)
	if err != nil {
		data = []byte("null")
	}

	var sb strings.Builder
	if e.Type != "" {
		sb.WriteString("event: ")
		sb.WriteString(e.Type)
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(string(data), "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}
