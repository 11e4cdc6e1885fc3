package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
)

// openResult is one scripted answer of scriptedSource.Open
type openResult struct {
	body string
	err  error
}

// scriptedSource answers Open from script, then hands out streams that
// stay open until their context is cancelled
type scriptedSource struct {
	mu     sync.Mutex
	script []openResult
	opens  int
}

func (s *scriptedSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	i := s.opens
	s.opens++
	s.mu.Unlock()

	if i < len(s.script) {
		r := s.script[i]
		if r.err != nil {
			return nil, r.err
		}
		return io.NopCloser(strings.NewReader(r.body)), nil
	}

	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		_ = pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func (s *scriptedSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

type sentPrompt struct {
	SessionID string
	Text      string
	Model     *types.ModelRef
}

// fakeAgent is an in-memory agent server
type fakeAgent struct {
	mu sync.Mutex

	healthy   []bool // answers in order; the last one repeats
	sessions  []types.Session
	history   map[string][]types.Message
	providers *types.Providers
	commands  []types.Command
	todos     []types.Todo
	diffs     []types.FileDiff
	mcp       map[string]types.MCPStatus
	lsp       []types.LSPStatus

	historyErr error
	sendErr    error

	healthCalls int
	created     []string
	sent        []sentPrompt
	deleted     []string
	aborts      int
	reverts     int
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		healthy:  []bool{true},
		sessions: []types.Session{{ID: "ses_1", Title: "existing"}},
		history:  map[string][]types.Message{},
		providers: &types.Providers{
			Providers: []types.Provider{{
				ID:     "anthropic",
				Name:   "Anthropic",
				Models: []types.Model{{ID: "sonnet", Name: "Sonnet"}, {ID: "opus", Name: "Opus"}},
			}},
			Default: map[string]string{"anthropic": "sonnet"},
		},
		commands: []types.Command{{Name: "init"}},
		mcp: map[string]types.MCPStatus{
			"github": {Name: "github", ConnectionStatus: "failed", Error: "timeout"},
		},
		lsp: []types.LSPStatus{{Name: "gopls", Status: "running", Version: "0.16"}},
	}
}

func (a *fakeAgent) Health(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.healthCalls
	if i >= len(a.healthy) {
		i = len(a.healthy) - 1
	}
	a.healthCalls++
	return a.healthy[i], nil
}

func (a *fakeAgent) ListSessions(ctx context.Context) ([]types.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Session(nil), a.sessions...), nil
}

func (a *fakeAgent) GetSession(ctx context.Context, id string) (*types.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrSessionNotFound, id)
}

func (a *fakeAgent) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := types.Session{ID: "ses_new", Title: title}
	a.sessions = append(a.sessions, s)
	a.created = append(a.created, title)
	return &s, nil
}

func (a *fakeAgent) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.historyErr != nil {
		return nil, a.historyErr
	}
	return a.history[sessionID], nil
}

func (a *fakeAgent) SendMessage(ctx context.Context, sessionID, text string, model *types.ModelRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, sentPrompt{SessionID: sessionID, Text: text, Model: model})
	return a.sendErr
}

func (a *fakeAgent) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, messageID)
	return nil
}

func (a *fakeAgent) Abort(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aborts++
	return nil
}

func (a *fakeAgent) Providers(ctx context.Context) (*types.Providers, error) {
	return a.providers, nil
}

func (a *fakeAgent) Commands(ctx context.Context) ([]types.Command, error) {
	return a.commands, nil
}

func (a *fakeAgent) Todos(ctx context.Context, sessionID string) ([]types.Todo, error) {
	return a.todos, nil
}

func (a *fakeAgent) Diffs(ctx context.Context, sessionID string) ([]types.FileDiff, error) {
	return a.diffs, nil
}

func (a *fakeAgent) Revert(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reverts++
	return nil
}

func (a *fakeAgent) MCPStatus(ctx context.Context) ([]types.MCPStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	servers := make([]types.MCPStatus, 0, len(a.mcp))
	for _, s := range a.mcp {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers, nil
}

func (a *fakeAgent) ConnectMCP(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	server, ok := a.mcp[name]
	if !ok {
		return apperrors.New(apperrors.ErrSessionNotFound, "mcp server "+name)
	}
	server.ConnectionStatus = "connected"
	server.Error = ""
	a.mcp[name] = server
	return nil
}

func (a *fakeAgent) LSPStatus(ctx context.Context) ([]types.LSPStatus, error) {
	return a.lsp, nil
}

func (a *fakeAgent) healthCallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.healthCalls
}

func (a *fakeAgent) sentPrompts() []sentPrompt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sentPrompt(nil), a.sent...)
}

// fakeGateway records project lifecycle calls
type fakeGateway struct {
	mu       sync.Mutex
	startErr error
	calls    []string
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) ListProjects(ctx context.Context) ([]types.Project, error) {
	g.record("list")
	port := 4096
	return []types.Project{
		{Name: "other", Path: "/src/other"},
		{Name: "demo", Path: "/src/demo", IsRunning: true, Port: &port},
	}, nil
}

func (g *fakeGateway) StartProject(ctx context.Context, name string) (*types.ProjectAction, error) {
	g.record("start " + name)
	if g.startErr != nil {
		return nil, g.startErr
	}
	return &types.ProjectAction{Name: name, Port: 4096, Status: "started"}, nil
}

func (g *fakeGateway) StopProject(ctx context.Context, name string) (*types.ProjectAction, error) {
	g.record("stop " + name)
	return &types.ProjectAction{Name: name, Status: "stopped"}, nil
}

func (g *fakeGateway) ProjectStatus(ctx context.Context, name string) (*types.Project, error) {
	g.record("status " + name)
	return &types.Project{Name: name, Path: "/src/" + name, IsRunning: true}, nil
}

func (g *fakeGateway) callList() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
