package data

import (
	"context"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"go.uber.org/zap"
)

// EventStream 服务端事件流
type EventStream struct {
	http *httpClient
	log  *logger.Logger
}

var _ biz.EventSource = (*EventStream)(nil)

// NewEventStream 创建事件源,流没有客户端超时,生命周期由传给 Open 的 context 决定
func NewEventStream(cfg ClientConfig, log *logger.Logger) *EventStream {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("event-stream")
	h := newHTTPClient(cfg, agentStatusCode, log)
	h.client.Timeout = 0
	return &EventStream{http: h, log: log}
}

// Open 订阅事件流,未能得到 200 流的失败都属于连接类错误
func (s *EventStream) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := s.http.newRequest(ctx, http.MethodGet, "event", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.http.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
		}
		return nil, apperrors.NewConnectionError(err, "open event stream")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, apperrors.New(apperrors.ErrConnection,
			fmt.Sprintf("event stream returned HTTP %d: %s", resp.StatusCode, truncate(string(body))))
	}

	s.log.Info("event stream connected", zap.Int("status", resp.StatusCode))
	return resp.Body, nil
}
