package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second

	// errorBodyLimit caps how much of an error body ends up in error details
	errorBodyLimit = 512
)

// ClientConfig 单个 base URL 的 HTTP 客户端配置
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// statusMapper turns a non-2xx status into an error code
type statusMapper func(status int) int

// httpClient is the JSON request helper shared by the agent and gateway
// clients
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	mapCode statusMapper
	log     *logger.Logger
}

func newHTTPClient(cfg ClientConfig, mapCode statusMapper, log *logger.Logger) *httpClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		mapCode: mapCode,
		log:     log,
	}
}

func (c *httpClient) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *httpClient) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// do sends a request and returns the raw body of a 2xx response
func (c *httpClient) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	log := c.log.WithContext(ctx)
	log.Debug("request", zap.String("method", method), zap.String("path", path))

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCancelled)
		}
		log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, apperrors.NewConnectionError(err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewConnectionError(err, "read response")
	}

	log.Debug("response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Newf(c.mapCode(resp.StatusCode), "HTTP %d: %s", resp.StatusCode, truncate(string(data)))
	}
	return data, nil
}

// doJSON sends a request and decodes a 2xx response into result
func (c *httpClient) doJSON(ctx context.Context, method, path string, body, result interface{}) error {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDecode, path)
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > errorBodyLimit {
		return s[:errorBodyLimit] + "..."
	}
	return s
}
