package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/validator"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. VIBE_GATEWAY_API_KEY
const EnvPrefix = "VIBE"

type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Mirror  MirrorConfig  `mapstructure:"mirror"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Log     logger.Config `mapstructure:"log"`
}

// GatewayConfig addresses the project gateway that fronts the agent servers
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Project string        `mapstructure:"project"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AgentConfig selects the session and model on the agent server.
// BaseURL bypasses the gateway when set.
type AgentConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SessionID      string        `mapstructure:"session_id"`
	SessionTitle   string        `mapstructure:"session_title"`
	ProviderID     string        `mapstructure:"provider_id"`
	ModelID        string        `mapstructure:"model_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type StreamConfig struct {
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	HealthRetries        int           `mapstructure:"health_retries"`
	HealthRetryDelay     time.Duration `mapstructure:"health_retry_delay"`
	BufferSize           int           `mapstructure:"buffer_size"` // max bytes of a single event line
	QueueSize            int           `mapstructure:"queue_size"`  // pending engine intents
}

// MirrorConfig controls the local HTTP mirror of the transcript
type MirrorConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

type WorkerConfig struct {
	Size int `mapstructure:"size"`
}

// Addr returns the mirror listen address
func (m MirrorConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// flagKeys maps command line flags to config keys
var flagKeys = map[string]string{
	"gateway":   "gateway.base_url",
	"api-key":   "gateway.api_key",
	"project":   "gateway.project",
	"agent":     "agent.base_url",
	"session":   "agent.session_id",
	"title":     "agent.session_title",
	"provider":  "agent.provider_id",
	"model":     "agent.model_id",
	"mirror":    "mirror.enabled",
	"port":      "mirror.port",
	"log-level": "log.level",
}

// RegisterFlags declares the command line overrides on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("gateway", "", "gateway base URL")
	fs.String("api-key", "", "gateway API key")
	fs.String("project", "", "project name on the gateway")
	fs.String("agent", "", "agent server base URL (bypasses the gateway)")
	fs.String("session", "", "existing session id to resume")
	fs.String("title", "", "title for a newly created session")
	fs.String("provider", "", "provider id used for prompts")
	fs.String("model", "", "model id used for prompts")
	fs.Bool("mirror", false, "serve the transcript over HTTP")
	fs.Int("port", 0, "mirror server port")
	fs.String("log-level", "", "log level")
}

func setDefaults(v *viper.Viper) {
	// empty defaults register the keys so AutomaticEnv can fill them
	for _, key := range []string{
		"gateway.base_url", "gateway.api_key", "gateway.project",
		"agent.base_url", "agent.session_id", "agent.provider_id", "agent.model_id",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("agent.session_title", "vibe-remote")
	v.SetDefault("agent.request_timeout", 30*time.Second)
	v.SetDefault("stream.reconnect_delay", 3*time.Second)
	v.SetDefault("stream.max_reconnect_attempts", 5)
	v.SetDefault("stream.health_retries", 3)
	v.SetDefault("stream.health_retry_delay", time.Second)
	v.SetDefault("stream.buffer_size", 1<<20)
	v.SetDefault("stream.queue_size", 64)
	v.SetDefault("mirror.host", "127.0.0.1")
	v.SetDefault("mirror.port", 8787)
	v.SetDefault("mirror.heartbeat", 15*time.Second)
	v.SetDefault("worker.size", 4)

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
	v.SetDefault("log.enablecaller", def.EnableCaller)
	v.SetDefault("log.enablestacktrace", def.EnableStacktrace)
	v.SetDefault("log.file.filename", def.File.Filename)
	v.SetDefault("log.file.maxsize", def.File.MaxSize)
	v.SetDefault("log.file.maxage", def.File.MaxAge)
	v.SetDefault("log.file.maxbackups", def.File.MaxBackups)
	v.SetDefault("log.file.compress", def.File.Compress)
}

// LoadConfig reads path (optional), VIBE_* environment variables and any
// flags that were explicitly set on fs, in increasing precedence.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks required fields and fills zero values with defaults
func (c *Config) Validate() error {
	if c.Agent.BaseURL == "" {
		if c.Gateway.BaseURL == "" {
			return errors.New("conf: gateway.base_url or agent.base_url is required")
		}
		if c.Gateway.Project == "" {
			return errors.New("conf: gateway.project is required when using the gateway")
		}
		if err := validator.ValidateBaseURL(c.Gateway.BaseURL); err != nil {
			return fmt.Errorf("conf: gateway.base_url: %w", err)
		}
	} else if err := validator.ValidateBaseURL(c.Agent.BaseURL); err != nil {
		return fmt.Errorf("conf: agent.base_url: %w", err)
	}

	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 30 * time.Second
	}
	if c.Agent.RequestTimeout <= 0 {
		c.Agent.RequestTimeout = 30 * time.Second
	}
	if c.Agent.SessionTitle == "" {
		c.Agent.SessionTitle = "vibe-remote"
	}

	if c.Stream.ReconnectDelay <= 0 {
		c.Stream.ReconnectDelay = 3 * time.Second
	}
	if c.Stream.MaxReconnectAttempts <= 0 {
		c.Stream.MaxReconnectAttempts = 5
	}
	if c.Stream.HealthRetries <= 0 {
		c.Stream.HealthRetries = 3
	}
	if c.Stream.HealthRetryDelay <= 0 {
		c.Stream.HealthRetryDelay = time.Second
	}
	if c.Stream.BufferSize <= 0 {
		c.Stream.BufferSize = 1 << 20
	}
	if c.Stream.QueueSize <= 0 {
		c.Stream.QueueSize = 64
	}

	if c.Mirror.Host == "" {
		c.Mirror.Host = "127.0.0.1"
	}
	if !validator.IsValidHost(c.Mirror.Host) {
		return fmt.Errorf("conf: mirror.host %q is not an IP or host name", c.Mirror.Host)
	}
	if c.Mirror.Port <= 0 || c.Mirror.Port > 65535 {
		c.Mirror.Port = 8787
	}
	if c.Mirror.Heartbeat <= 0 {
		c.Mirror.Heartbeat = 15 * time.Second
	}

	if c.Worker.Size <= 0 {
		c.Worker.Size = 4
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("conf: %w", err)
	}
	return nil
}
