package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/sse"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

// Console drives a session from a line-oriented terminal. Plain lines are
// sent as prompts, lines starting with "/" are commands.
type Console struct {
	ctrl *SessionController
	in   io.Reader
	log  *logger.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console reading in and writing out
func NewConsole(ctrl *SessionController, in io.Reader, out io.Writer, log *logger.Logger) *Console {
	if log == nil {
		log = logger.Nop()
	}
	return &Console{ctrl: ctrl, in: in, out: out, log: log.Named("console")}
}

// Run reads commands until in is exhausted, /quit is entered or ctx is
// cancelled
func (c *Console) Run(ctx context.Context) error {
	client := &sse.Client{
		ID:       "console-" + uuid.NewString(),
		Channel:  make(chan sse.Event, 64),
		Resource: TranscriptResource,
	}
	hub := c.ctrl.Hub()
	hub.Register(client)
	defer hub.Unregister(client)

	done := make(chan struct{})
	defer close(done)
	go c.follow(client.Channel, done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handle executes one input line and reports whether the console should exit
func (c *Console) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if _, err := c.ctrl.SendMessage(ctx, line); err != nil {
			c.printf("! send failed: %s\n", reasonOf(err))
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "connect":
		err = c.ctrl.Connect(ctx)
	case "abort":
		err = c.ctrl.Abort(ctx)
	case "restart":
		c.printf("restarting...\n")
		err = c.ctrl.Restart(ctx)
	case "revert":
		err = c.ctrl.Revert(ctx)
	case "delete":
		err = c.ctrl.DeleteMessage(ctx, arg)
	case "status":
		var status Status
		if status, err = c.ctrl.RefreshStatus(ctx); err == nil {
			c.printStatus(status)
		}
	case "model":
		err = c.selectModel(arg)
	case "models":
		c.printModels()
	case "state":
		c.printf("%s session=%s\n", c.ctrl.State(), c.ctrl.SessionID())
		if stats, ok := c.ctrl.PoolStats(); ok {
			c.printf("workers %d/%d busy, %d tasks, %d failed\n",
				stats.Running, stats.Workers, stats.Submitted, stats.Failed)
		}
	case "mcp":
		var servers []types.MCPStatus
		if servers, err = c.ctrl.ConnectMCP(ctx, arg); err == nil {
			c.printMCP(servers)
		}
	case "projects":
		var projects []types.Project
		if projects, err = c.ctrl.Projects(ctx); err == nil {
			c.printProjects(projects)
		}
	case "project":
		var project *types.Project
		if project, err = c.ctrl.ProjectStatus(ctx); err == nil {
			c.printProjects([]types.Project{*project})
		}
	default:
		c.printf("unknown command /%s\n", cmd)
	}
	if err != nil {
		c.log.Debug("console command failed", zap.String("command", cmd), zap.Error(err))
		c.printf("! %s failed: %s\n", cmd, reasonOf(err))
	}
	return false
}

func (c *Console) selectModel(arg string) error {
	provider, model, _ := strings.Cut(arg, "/")
	return c.ctrl.SelectModel(types.ModelRef{ProviderID: provider, ModelID: model})
}

// follow prints notifications until the channel closes or done fires
func (c *Console) follow(events <-chan sse.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.render(ev)
		}
	}
}

func (c *Console) render(ev sse.Event) {
	switch data := ev.Data.(type) {
	case types.ConnectionState:
		c.printf("[%s]\n", data)
	case biz.Notification:
		switch data.Kind {
		case biz.NotifyGenerationFinished:
			if msg, ok := c.ctrl.Snapshot().Message(data.MessageID); ok {
				c.printf("%s\n", strings.TrimSpace(msg.TextContent()))
			}
		case biz.NotifySessionError:
			c.printf("! %s\n", data.Message)
		}
	default:
		if ev.Type == EventFatal {
			c.printf("! connection failed, use /restart\n")
		}
	}
}

func (c *Console) printStatus(status Status) {
	if len(status.Todos) == 0 && len(status.Diffs) == 0 && len(status.MCP) == 0 && len(status.LSP) == 0 {
		c.printf("nothing to report\n")
		return
	}
	for _, todo := range status.Todos {
		mark := " "
		if todo.IsCompleted() {
			mark = "x"
		}
		c.printf("[%s] %s\n", mark, todo.Content)
	}
	for _, diff := range status.Diffs {
		c.printf("M %s\n", diff.File)
	}
	c.printMCP(status.MCP)
	for _, lsp := range status.LSP {
		state := lsp.Status
		if lsp.Version != "" {
			state += " " + lsp.Version
		}
		c.printf("lsp %s\t%s\n", lsp.Name, state)
	}
}

func (c *Console) printMCP(servers []types.MCPStatus) {
	for _, server := range servers {
		line := server.ConnectionStatus
		if server.IsConnected() {
			line = fmt.Sprintf("connected, %d tools", len(server.Tools))
		} else if server.Error != "" {
			line += ": " + server.Error
		}
		c.printf("mcp %s\t%s\n", server.Name, line)
	}
}

func (c *Console) printProjects(projects []types.Project) {
	for _, p := range projects {
		state := "stopped"
		if p.IsRunning {
			state = "running"
			if p.Port != nil {
				state = fmt.Sprintf("running on :%d", *p.Port)
			}
		}
		c.printf("%s\t%s\t%s\n", p.Name, state, p.Path)
	}
}

func (c *Console) printModels() {
	providers := c.ctrl.Providers()
	if providers == nil {
		c.printf("no providers loaded\n")
		return
	}
	selected := c.ctrl.Model()
	for _, prov := range providers.Providers {
		for _, m := range prov.Models {
			mark := " "
			if selected != nil && selected.ProviderID == prov.ID && selected.ModelID == m.ID {
				mark = "*"
			}
			c.printf("%s %s/%s\t%s\n", mark, prov.ID, m.ID, m.Name)
		}
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
