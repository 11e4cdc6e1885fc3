package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/vibe-remote/internal/conf"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/sse"
	"github.com/lk2023060901/vibe-remote/internal/pkg/workerpool"
	"github.com/lk2023060901/vibe-remote/internal/server"
	"github.com/lk2023060901/vibe-remote/internal/transcript/codec"
	"github.com/lk2023060901/vibe-remote/internal/transcript/data"
	"github.com/lk2023060901/vibe-remote/internal/transcript/service"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("vibe-remote", pflag.ExitOnError)
	configFile := fs.StringP("config", "c", "", "config file path")
	conf.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Load configuration
	config, err := conf.LoadConfig(*configFile, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	pool, err := workerpool.New(&workerpool.Config{Workers: config.Worker.Size}, log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	ctrl := service.NewController(controllerConfig(config), buildDeps(config, pool, log), log)
	defer ctrl.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Connect(ctx); err != nil {
		log.Error("initial connect failed, use /connect to retry", zap.Error(err))
	}

	var mirror *server.HTTPServer
	if config.Mirror.Enabled {
		mirror = server.NewHTTPServer(config, log, service.NewMirrorService(ctrl, config.Mirror.Heartbeat, log))
		go func() {
			if err := mirror.Start(); err != nil {
				log.Error("mirror server failed", zap.Error(err))
				stop()
			}
		}()
	}

	if err := service.NewConsole(ctrl, os.Stdin, os.Stdout, log).Run(ctx); err != nil {
		log.Error("console stopped", zap.Error(err))
	}

	log.Info("shutting down...")
	if mirror != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mirror.Stop(shutdownCtx); err != nil {
			log.Error("mirror server forced to shutdown", zap.Error(err))
		}
	}
}

func controllerConfig(config *conf.Config) service.ControllerConfig {
	cfg := service.ControllerConfig{
		SessionID:        config.Agent.SessionID,
		SessionTitle:     config.Agent.SessionTitle,
		HealthRetries:    config.Stream.HealthRetries,
		HealthRetryDelay: config.Stream.HealthRetryDelay,
		QueueSize:        config.Stream.QueueSize,
		Supervisor: service.SupervisorConfig{
			ReconnectDelay:       config.Stream.ReconnectDelay,
			MaxReconnectAttempts: config.Stream.MaxReconnectAttempts,
			BufferSize:           config.Stream.BufferSize,
		},
	}
	if config.Agent.BaseURL == "" {
		cfg.Project = config.Gateway.Project
	}
	if config.Agent.ProviderID != "" && config.Agent.ModelID != "" {
		cfg.Model = &types.ModelRef{ProviderID: config.Agent.ProviderID, ModelID: config.Agent.ModelID}
	}
	return cfg
}

// buildDeps talks to the agent server directly when agent.base_url is set
// and through the gateway's project API otherwise
func buildDeps(config *conf.Config, pool *workerpool.Pool, log *logger.Logger) service.Deps {
	decoder := codec.NewDecoder(log)
	deps := service.Deps{
		Decoder: decoder,
		Pool:    pool,
		Hub:     sse.NewHub(),
	}

	baseURL := config.Agent.BaseURL
	if baseURL == "" {
		gateway := data.NewGatewayClient(data.ClientConfig{
			BaseURL: config.Gateway.BaseURL,
			APIKey:  config.Gateway.APIKey,
			Timeout: config.Gateway.Timeout,
		}, log)
		deps.Gateway = gateway
		baseURL = gateway.APIURL(config.Gateway.Project)
	}

	apiCfg := data.ClientConfig{
		BaseURL: baseURL,
		APIKey:  config.Gateway.APIKey,
		Timeout: config.Agent.RequestTimeout,
	}
	deps.Agent = data.NewAgentClient(apiCfg, decoder, log)
	deps.Source = data.NewEventStream(apiCfg, log)
	return deps
}
