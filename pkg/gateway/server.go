// Package gateway accepts 1.8.9 clients in offline mode, authenticates
// them over a plugin message side channel and relays them to an upstream
// server logged in as the account they authenticated with.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	"github.com/benbjohnson/clock"
	"github.com/go-mclib/protocol/auth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/go-mclib/gateway/pkg/metrics"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/upstream"
	"github.com/go-mclib/gateway/pkg/whitelist"
)

// UpstreamDialer opens a logged-in upstream connection for creds.
type UpstreamDialer interface {
	Dial(ctx context.Context, creds auth.LoginData) (*upstream.Result, error)
}

// Server is the client-facing listener and the set of live sessions.
// Set the exported fields before calling ListenAndServe.
type Server struct {
	Config    Config
	Registry  *module.Registry
	Whitelist *whitelist.Set
	Dialer    UpstreamDialer
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Clock     clock.Clock

	gate    *AuthGate
	limiter *rate.Limiter

	mu         sync.Mutex
	listener   *mcnet.Listener
	restarting bool
	restart    *clock.Timer
	sessions   map[uint64]*Session
	nextID     uint64
}

// New creates a server with a default logger, metrics, clock and an
// upstream dialer for cfg's remote address.
func New(cfg Config, registry *module.Registry) *Server {
	logger := zap.NewNop()
	return &Server{
		Config:    cfg,
		Registry:  registry,
		Whitelist: whitelist.New(),
		Dialer:    upstream.New(cfg.UpstreamAddr(), cfg.DialTimeout, logger),
		Logger:    logger,
		Metrics:   metrics.New("gateway"),
		Clock:     clock.New(),
		sessions:  make(map[uint64]*Session),
	}
}

func (s *Server) init() {
	s.gate = &AuthGate{Whitelist: s.Whitelist, Enforce: s.Config.Whitelist}
	limit := rate.Inf
	if s.Config.AcceptRate > 0 {
		limit = rate.Limit(s.Config.AcceptRate)
	}
	s.limiter = rate.NewLimiter(limit, max(s.Config.AcceptBurst, 1))
}

// ListenAndServe binds the listener and serves until ctx is done. A
// scheduled restart closes the listener and binds it again; sessions
// already relaying keep running.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.init()
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener != nil {
			s.listener.Close()
		}
	})
	defer stop()

	for {
		l, err := mcnet.ListenMC(s.Config.ListenAddr())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.Config.ListenAddr(), err)
		}
		s.mu.Lock()
		s.listener, s.restarting = l, false
		s.mu.Unlock()
		if ctx.Err() != nil {
			l.Close()
			break
		}
		s.Logger.Info("listening", zap.String("addr", l.Addr().String()))

		err = s.serve(ctx, l)

		s.mu.Lock()
		restarting := s.restarting
		s.listener = nil
		s.mu.Unlock()
		if ctx.Err() != nil {
			break
		}
		if !restarting {
			return fmt.Errorf("accept: %w", err)
		}
		s.Logger.Info("listener restarting")
	}

	s.CloseSessions(ErrShutdown)
	return nil
}

func (s *Server) serve(ctx context.Context, l *mcnet.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		if !s.limiter.Allow() {
			s.Metrics.RecordAcceptDropped()
			s.Logger.Debug("accept rate exceeded", zap.String("remote", conn.Socket.RemoteAddr().String()))
			conn.Close()
			continue
		}
		go s.handle(ctx, &conn)
	}
}

func (s *Server) handle(ctx context.Context, conn *mcnet.Conn) {
	remote := conn.Socket.RemoteAddr().String()
	logger := s.Logger.With(zap.String("remote", remote))

	if s.Config.LoginTimeout > 0 {
		_ = conn.Socket.SetDeadline(time.Now().Add(s.Config.LoginTimeout))
	}
	login, err := s.acceptLogin(conn)
	_ = conn.Socket.SetDeadline(time.Time{})
	if err != nil {
		if !errors.Is(err, errStatusOnly) {
			logger.Debug("login failed", zap.Error(err))
		}
		conn.Close()
		return
	}
	logger.Info("client logged in", zap.String("username", login.username))

	sess := s.newSession(conn, login.username, login.uuid, remote)
	s.add(sess)
	if err := sess.Run(ctx); err != nil && !errors.Is(err, ErrShutdown) {
		logger.Debug("session ended", zap.Error(err))
	}
}

func (s *Server) add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sess.id = s.nextID
	s.sessions[sess.id] = sess
}

func (s *Server) remove(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
}

func (s *Server) snapshot() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Addr returns the bound listener address, or "" while not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sessions returns a view of every live session, oldest first.
func (s *Server) Sessions() []SessionInfo {
	sessions := s.snapshot()
	out := make([]SessionInfo, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.Info()
	}
	return out
}

// Kick disconnects every session of username. It reports whether any
// matched.
func (s *Server) Kick(username, reason string) bool {
	found := false
	for _, sess := range s.snapshot() {
		if sess.username == username {
			sess.Kick(reason)
			found = true
		}
	}
	return found
}

// CloseSessions closes every live session with reason.
func (s *Server) CloseSessions(reason error) {
	for _, sess := range s.snapshot() {
		sess.Close(reason)
	}
}

// ScheduleRestart re-binds the listener after delay. Calls made while a
// restart is pending are ignored.
func (s *Server) ScheduleRestart(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restart != nil {
		return
	}
	s.Logger.Warn("listener restart scheduled", zap.Duration("delay", delay))
	s.restart = s.Clock.AfterFunc(delay, func() {
		s.mu.Lock()
		s.restart = nil
		s.mu.Unlock()
		s.Restart()
	})
}

// RestartPending reports whether a restart is scheduled.
func (s *Server) RestartPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restart != nil
}

// Restart closes the listener so ListenAndServe binds it again.
func (s *Server) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metrics.RecordRestart()
	if s.listener == nil {
		return
	}
	s.restarting = true
	s.listener.Close()
}
