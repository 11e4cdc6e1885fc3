package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyBody = `[
	{"info":{"id":"m1","sessionID":"ses_1","role":"user","time":{"created":1}},"parts":[{"id":"p1","type":"text","text":"hi","messageID":"m1"}]},
	{"info":{"id":"m2","sessionID":"ses_1","role":"assistant","time":{"created":2,"completed":3}}}
]`

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) add(req recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.reqs...)
}

func newAgentServer(t *testing.T, routes map[string]http.HandlerFunc) (*AgentClient, *recorder) {
	t.Helper()
	seen := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewAgentClient(ClientConfig{BaseURL: srv.URL + "/api/", APIKey: "secret", Timeout: time.Second}, nil, nil)
	return c, seen
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestAgentClientListMessages(t *testing.T) {
	c, seen := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/session/ses_1/message": reply(http.StatusOK, historyBody),
	})

	msgs, err := c.ListMessages(context.Background(), "ses_1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []types.Part{types.TextPart{ID: "p1", Text: "hi"}}, msgs[0].Parts)
	assert.Nil(t, msgs[1].Parts)
	assert.True(t, msgs[1].Info.IsCompleted())

	reqs := seen.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer secret", reqs[0].Auth)
}

func TestAgentClientSendMessage(t *testing.T) {
	c, seen := newAgentServer(t, map[string]http.HandlerFunc{
		"POST /api/session/ses_1/prompt_async": reply(http.StatusNoContent, ""),
	})
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "ses_1", "hello", &types.ModelRef{ProviderID: "anthropic", ModelID: "sonnet"}))
	require.NoError(t, c.SendMessage(ctx, "ses_1", "again", &types.ModelRef{ProviderID: "anthropic"}))

	reqs := seen.all()
	require.Len(t, reqs, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &first))
	assert.Equal(t, []interface{}{map[string]interface{}{"type": "text", "text": "hello"}}, first["parts"])
	assert.Equal(t, map[string]interface{}{"providerID": "anthropic", "modelID": "sonnet"}, first["model"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reqs[1].Body), &second))
	assert.NotContains(t, second, "model", "incomplete model is not sent")
}

func TestAgentClientSessionLifecycle(t *testing.T) {
	c, seen := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/session":                     reply(http.StatusOK, `[{"id":"ses_1","projectID":"p","directory":"/d","title":"a","time":{"created":1,"updated":2}}]`),
		"GET /api/session/ses_1":               reply(http.StatusOK, `{"id":"ses_1","projectID":"p","directory":"/d","title":"a","time":{"created":1,"updated":2}}`),
		"POST /api/session":                    reply(http.StatusOK, `{"id":"ses_2","projectID":"p","directory":"/d","title":"new","time":{"created":3,"updated":3}}`),
		"DELETE /api/session/ses_1/message/m1": reply(http.StatusOK, `true`),
		"POST /api/session/ses_1/abort":        reply(http.StatusOK, `true`),
		"POST /api/session/ses_1/revert":       reply(http.StatusOK, `{}`),
	})
	ctx := context.Background()

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s, err := c.GetSession(ctx, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Title)

	created, err := c.CreateSession(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "ses_2", created.ID)
	assert.JSONEq(t, `{"title":"new"}`, seen.all()[2].Body)

	require.NoError(t, c.DeleteMessage(ctx, "ses_1", "m1"))
	require.NoError(t, c.Abort(ctx, "ses_1"))
	require.NoError(t, c.Revert(ctx, "ses_1"))
}

func TestAgentClientCatalogue(t *testing.T) {
	c, _ := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/config/providers":   reply(http.StatusOK, `{"providers":[{"id":"a","name":"A","models":{"m":{"name":"M"}}}],"default":{"a":"m"}}`),
		"GET /api/command":            reply(http.StatusOK, `[{"name":"init","description":"create AGENTS.md"}]`),
		"GET /api/session/ses_1/todo": reply(http.StatusOK, `[{"id":"1","content":"write tests","status":"completed","priority":"high"}]`),
		"GET /api/session/ses_1/diff": reply(http.StatusOK, `[{"file":"a.go","diff":"+x"}]`),
	})
	ctx := context.Background()

	providers, err := c.Providers(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.ModelRef{ProviderID: "a", ModelID: "m"}, providers.Select(nil))

	commands, err := c.Commands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Command{{Name: "init", Description: "create AGENTS.md"}}, commands)

	todos, err := c.Todos(ctx, "ses_1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.True(t, todos[0].IsCompleted())

	diffs, err := c.Diffs(ctx, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, []types.FileDiff{{File: "a.go", Diff: "+x"}}, diffs)
}

func TestAgentClientErrorMapping(t *testing.T) {
	c, _ := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/session/gone":        reply(http.StatusNotFound, `{"error":"no such session"}`),
		"GET /api/session/locked":      reply(http.StatusUnauthorized, ``),
		"POST /api/session/busy/abort": reply(http.StatusInternalServerError, `boom`),
		"GET /api/session/bad/message": reply(http.StatusOK, `{"not":"an array"}`),
	})
	ctx := context.Background()

	_, err := c.GetSession(ctx, "gone")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	_, err = c.GetSession(ctx, "locked")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	err = c.Abort(ctx, "busy")
	assert.True(t, apperrors.Is(err, apperrors.ErrSession))
	assert.Contains(t, apperrors.GetDetails(err), "boom")

	_, err = c.ListMessages(ctx, "bad")
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}

func TestAgentClientHealth(t *testing.T) {
	c, _ := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/global/health": reply(http.StatusOK, `{"healthy":true}`),
	})
	ok, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	down := NewAgentClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil, nil)
	ok, err = down.Health(context.Background())
	assert.False(t, ok)
	assert.True(t, apperrors.Is(err, apperrors.ErrConnection))

	unhealthy, _ := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/global/health": reply(http.StatusServiceUnavailable, ``),
	})
	ok, err = unhealthy.Health(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAgentClientToolServers(t *testing.T) {
	c, seen := newAgentServer(t, map[string]http.HandlerFunc{
		"GET /api/mcp":                    reply(http.StatusOK, `{"github":{"status":"connected","tools":["search"]},"linear":{"status":"disabled"}}`),
		"POST /api/mcp/github/connect":    reply(http.StatusOK, `true`),
		"POST /api/mcp/my server/connect": reply(http.StatusOK, `true`),
		"GET /api/lsp":                    reply(http.StatusOK, `[{"name":"gopls","status":"running","version":"0.16"}]`),
	})
	ctx := context.Background()

	servers, err := c.MCPStatus(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "github", servers[0].Name)
	assert.True(t, servers[0].IsConnected())
	assert.Equal(t, []string{"search"}, servers[0].Tools)
	assert.False(t, servers[1].IsConnected())

	require.NoError(t, c.ConnectMCP(ctx, "github"))
	require.NoError(t, c.ConnectMCP(ctx, "my server"))
	err = c.ConnectMCP(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	lsp, err := c.LSPStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.LSPStatus{{Name: "gopls", Status: "running", Version: "0.16"}}, lsp)
	assert.True(t, lsp[0].IsRunning())

	reqs := seen.all()
	require.Len(t, reqs, 5)
	assert.Equal(t, "POST", reqs[1].Method)
	assert.Equal(t, "/api/mcp/github/connect", reqs[1].Path)
	assert.Equal(t, "Bearer secret", reqs[1].Auth)
}
