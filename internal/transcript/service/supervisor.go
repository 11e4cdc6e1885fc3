package service

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/pkg/sse"
	"github.com/lk2023060901/vibe-remote/internal/transcript/biz"
	"github.com/lk2023060901/vibe-remote/internal/transcript/codec"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"go.uber.org/zap"
)

const (
	defaultReconnectDelay       = 3 * time.Second
	defaultMaxReconnectAttempts = 5

	connectionLostReason = "Connection lost"
)

// connectionMarkers are matched case-insensitively against error text
var connectionMarkers = []string{
	"connection",
	"cancelled",
	"canceled",
	"timeout",
	"timed out",
}

// IsConnectionMessage reports whether text describes a transient
// network failure
func IsConnectionMessage(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range connectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err is connection-class and therefore
// eligible for an automatic reconnect
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if apperrors.Is(err, apperrors.ErrReconnectFailed) {
		return false
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && apperrors.IsConnectionCode(appErr.Code) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	return IsConnectionMessage(err.Error())
}

// SupervisorConfig configures reconnect behaviour
type SupervisorConfig struct {
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// BufferSize bounds a single stream line
	BufferSize int
}

// SupervisorHooks reports supervisor decisions to the owner
type SupervisorHooks struct {
	// OnState is called on every connection state transition
	OnState func(types.ConnectionState)
	// OnFatal is called once when the supervisor gives up
	OnFatal func(error)
}

// Supervisor reads the event stream into the engine and decides how to
// recover when it breaks. It is the only place reconnects are decided.
type Supervisor struct {
	cfg       SupervisorConfig
	source    biz.EventSource
	decoder   *codec.Decoder
	engine    *biz.Engine
	bootstrap func(ctx context.Context) error
	hooks     SupervisorHooks
	log       *logger.Logger
}

// NewSupervisor creates a supervisor. bootstrap reruns the whole session
// setup (health, session resolution, history) before a resubscribe.
func NewSupervisor(
	cfg SupervisorConfig,
	source biz.EventSource,
	decoder *codec.Decoder,
	engine *biz.Engine,
	bootstrap func(ctx context.Context) error,
	hooks SupervisorHooks,
	log *logger.Logger,
) *Supervisor {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	if hooks.OnState == nil {
		hooks.OnState = func(types.ConnectionState) {}
	}
	if hooks.OnFatal == nil {
		hooks.OnFatal = func(error) {}
	}
	return &Supervisor{
		cfg:       cfg,
		source:    source,
		decoder:   decoder,
		engine:    engine,
		bootstrap: bootstrap,
		hooks:     hooks,
		log:       log.Named("supervisor"),
	}
}

// Run streams events until ctx is cancelled or a terminal error occurs.
// The session must already be bootstrapped. Cancellation returns nil and
// never triggers a reconnect.
func (s *Supervisor) Run(ctx context.Context) error {
	log := s.log.WithContext(ctx)
	for {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !IsConnectionError(err) {
			return s.fail(log, err)
		}

		log.Warn("event stream lost", zap.Error(err))
		if err := s.reconnect(ctx, log, err); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.fail(log, err)
		}
	}
}

// reconnect waits and reruns the bootstrap until it succeeds or the
// attempt budget is spent
func (s *Supervisor) reconnect(ctx context.Context, log *logger.Logger, cause error) error {
	for attempt := 1; ; attempt++ {
		if attempt > s.cfg.MaxReconnectAttempts {
			// Wrap would keep the cause's code; this one must stay terminal
			failed := apperrors.Newf(apperrors.ErrReconnectFailed,
				"gave up after %d attempts", s.cfg.MaxReconnectAttempts)
			failed.Err = cause
			return failed
		}

		s.hooks.OnState(types.StateErrored(connectionLostReason))

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		log.Info("reconnecting", zap.Int("attempt", attempt))
		s.hooks.OnState(types.StateConnecting())

		err := s.bootstrap(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			s.hooks.OnState(types.StateConnected())
			log.Info("reconnected", zap.Int("attempt", attempt))
			return nil
		}
		if !IsConnectionError(err) {
			return err
		}
		log.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		cause = err
	}
}

func (s *Supervisor) fail(log *logger.Logger, err error) error {
	reason := reasonOf(err)
	log.Error("event stream stopped", zap.String("reason", reason), zap.Error(err))
	s.hooks.OnState(types.StateErrored(reason))
	s.hooks.OnFatal(err)
	return err
}

// stream runs one subscription and returns why it ended
func (s *Supervisor) stream(ctx context.Context) error {
	body, err := s.source.Open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	// unblock the read when the owner cancels
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	reader := sse.NewLineReader(body, s.cfg.BufferSize)
	for {
		line, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, sse.ErrLineTooLong) {
				s.log.WithContext(ctx).Warn("dropping oversized stream line", zap.Int("limit", s.cfg.BufferSize))
				continue
			}
			if errors.Is(err, io.EOF) {
				return apperrors.New(apperrors.ErrStreamClosed, "event stream ended")
			}
			return apperrors.NewConnectionError(err, "read event stream")
		}

		res := s.decoder.DecodeLine(line)
		if res.Event == nil {
			continue
		}

		eff, err := s.engine.Submit(ctx, biz.ApplyEvent{Event: res.Event})
		if err != nil {
			return err
		}
		if eff.Connected {
			s.hooks.OnState(types.StateConnected())
		}
		if eff.SessionError != "" && IsConnectionMessage(eff.SessionError) {
			return apperrors.New(apperrors.ErrConnection, eff.SessionError)
		}
	}
}

// reasonOf is the text shown for a terminal error
func reasonOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Reason()
	}
	return err.Error()
}
