package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "nil config falls back to default",
			config:  nil,
			wantErr: false,
		},
		{
			name: "stdout output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "file output",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename:   filepath.Join(dir, "vibe.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
					Compress:   true,
				},
			},
			wantErr: false,
		},
		{
			name: "both output",
			config: &Config{
				Level:  "warn",
				Format: "json",
				Output: "both",
				File: FileConfig{
					Filename:   filepath.Join(dir, "both.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
				},
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "invalid",
				Format: "json",
				Output: "stderr",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "invalid",
				Output: "stderr",
			},
			wantErr: true,
		},
		{
			name: "invalid output",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "syslog",
			},
			wantErr: true,
		},
		{
			name: "file output without filename",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "file",
				File:   FileConfig{MaxSize: 1, MaxAge: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewFromZap(zap.New(core))

	base.Named("engine").Info("applied")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "engine" {
		t.Errorf("expected logger name engine, got %q", entries[0].LoggerName)
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "ses_1")
	ctx = WithMessageID(ctx, "msg_1")

	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID() = %q", GetRequestID(ctx))
	}

	core, logs := observer.New(zapcore.DebugLevel)
	ctx = ToContext(ctx, NewFromZap(zap.New(core)))
	FromContext(ctx).Info("with context")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for key, want := range map[string]string{
		"request_id": "req-1",
		"session_id": "ses_1",
		"message_id": "msg_1",
	} {
		if fields[key] != want {
			t.Errorf("field %s = %v, want %s", key, fields[key], want)
		}
	}
}

func TestWithContextWithoutFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewFromZap(zap.New(core))

	base.WithContext(WithSessionID(context.Background(), "")).Info("no session")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["session_id"]; ok {
		t.Error("empty session id should not be attached")
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" {
		t.Error("expected empty request id from bare context")
	}
	if FromContext(ctx) == nil {
		t.Error("FromContext() returned nil")
	}
	FromContext(ctx).Info("discarded")
}

func TestGinLoggerWithConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	r := gin.New()
	r.Use(GinLoggerWithConfig(log, MiddlewareOptions{
		SkipPaths:        []string{"/health"},
		SkipPathPrefixes: []string{"/api/v1/events"},
	}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/state", func(c *gin.Context) {
		if GetRequestID(c.Request.Context()) == "" {
			t.Error("request id missing from request context")
		}
		c.Status(http.StatusNotFound)
	})

	for _, path := range []string{"/health", "/api/v1/events", "/api/v1/state"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Header().Get(requestIDHeader) == "" {
			t.Errorf("%s: missing %s header", path, requestIDHeader)
		}
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 logged request, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected warn level for 404, got %s", entries[0].Level)
	}
}

func TestGinRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	r := gin.New()
	r.Use(GinLogger(log), GinRecovery(log))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if logs.FilterMessage("Panic recovered").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}
