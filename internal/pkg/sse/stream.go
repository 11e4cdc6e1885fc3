package sse

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stream SSE 流(封装 Client 和 gin.Context)
type Stream struct {
	client    *Client
	ctx       *gin.Context
	hub       *Hub
	heartbeat time.Duration

	// 生命周期钩子
	onConnect    func(s *Stream)
	onDisconnect func()
	onError      func(error)

	closed      atomic.Bool
	connectTime time.Time
}

// StreamBuilder 构建器
type StreamBuilder struct {
	ginCtx       *gin.Context
	hub          *Hub
	resource     string
	bufferSize   int
	heartbeat    time.Duration
	onConnect    func(s *Stream)
	onDisconnect func()
	onError      func(error)
}

// NewStream 创建 Stream 构建器
func NewStream(c *gin.Context, hub *Hub) *StreamBuilder {
	return &StreamBuilder{
		ginCtx:     c,
		hub:        hub,
		bufferSize: 32,               // 默认缓冲区
		heartbeat:  15 * time.Second, // 默认 15s 心跳
	}
}

// WithResource 设置资源 ID
func (b *StreamBuilder) WithResource(resource string) *StreamBuilder {
	b.resource = resource
	return b
}

// WithBufferSize 设置 Channel 缓冲区大小
func (b *StreamBuilder) WithBufferSize(size int) *StreamBuilder {
	if size > 0 {
		b.bufferSize = size
	}
	return b
}

// WithHeartbeat 设置心跳间隔(0 表示禁用心跳)
func (b *StreamBuilder) WithHeartbeat(interval time.Duration) *StreamBuilder {
	b.heartbeat = interval
	return b
}

// OnConnect 设置连接建立钩子,可在其中发送初始快照
func (b *StreamBuilder) OnConnect(fn func(s *Stream)) *StreamBuilder {
	b.onConnect = fn
	return b
}

// OnDisconnect 设置连接断开钩子
func (b *StreamBuilder) OnDisconnect(fn func()) *StreamBuilder {
	b.onDisconnect = fn
	return b
}

// OnError 设置错误处理钩子
func (b *StreamBuilder) OnError(fn func(error)) *StreamBuilder {
	b.onError = fn
	return b
}

// Build 构建 Stream
func (b *StreamBuilder) Build() *Stream {
	return &Stream{
		client: &Client{
			ID:       uuid.New().String(),
			Channel:  make(chan Event, b.bufferSize),
			Resource: b.resource,
		},
		ctx:          b.ginCtx,
		hub:          b.hub,
		heartbeat:    b.heartbeat,
		onConnect:    b.onConnect,
		onDisconnect: b.onDisconnect,
		onError:      b.onError,
		connectTime:  time.Now(),
	}
}

// Send 发送事件(并发安全)
func (s *Stream) Send(eventType string, data interface{}) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	// 经由 Hub 投递,与 Unregister 关闭 Channel 互斥
	if !s.hub.Deliver(s.client, Event{Type: eventType, Data: data}) {
		err := fmt.Errorf("stream buffer full, event dropped: %s", eventType)
		s.reportError(err)
		return err
	}
	return nil
}

// Close 关闭流(幂等)
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.hub.Unregister(s.client)

	if s.onDisconnect != nil {
		s.onDisconnect()
	}
	return nil
}

// StartStreaming 开始流式传输(阻塞直到客户端断开)
// 事件与心跳都在同一个 goroutine 中写出,避免并发写 ResponseWriter
func (s *Stream) StartStreaming() {
	s.ctx.Header("Content-Type", "text/event-stream")
	s.ctx.Header("Cache-Control", "no-cache")
	s.ctx.Header("Connection", "keep-alive")
	s.ctx.Header("X-Accel-Buffering", "no")

	s.hub.Register(s.client)
	defer s.Close()

	if err := s.write(Event{
		Type: "connected",
		Data: map[string]string{
			"client_id": s.client.ID,
			"resource":  s.client.Resource,
		},
	}.FormatSSE()); err != nil {
		return
	}

	if s.onConnect != nil {
		s.onConnect(s)
	}

	var heartbeat <-chan time.Time
	if s.heartbeat > 0 {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	clientGone := s.ctx.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-s.client.Channel:
			if !ok {
				return
			}
			if err := s.write(event.FormatSSE()); err != nil {
				return
			}

		case <-heartbeat:
			if err := s.write(": heartbeat\n\n"); err != nil {
				return
			}
		}
	}
}

func (s *Stream) write(frame string) error {
	if _, err := fmt.Fprint(s.ctx.Writer, frame); err != nil {
		s.reportError(err)
		return err
	}
	s.ctx.Writer.Flush()
	return nil
}

func (s *Stream) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// GetClientID 获取客户端 ID
func (s *Stream) GetClientID() string {
	return s.client.ID
}

// GetDuration 获取连接时长
func (s *Stream) GetDuration() time.Duration {
	return time.Since(s.connectTime)
}
