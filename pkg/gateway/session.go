package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/go-mclib/protocol/auth"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/ping"
	"github.com/go-mclib/gateway/pkg/protocol"
	"github.com/go-mclib/gateway/pkg/scheduler"
	"github.com/go-mclib/gateway/pkg/upstream"
)

var (
	ErrClientDisconnect   = errors.New("client disconnected")
	ErrUpstreamDisconnect = errors.New("upstream disconnected")
	ErrKicked             = errors.New("kicked")
	ErrHighLatency        = errors.New("high latency")
	ErrShutdown           = errors.New("gateway shutting down")
)

// SessionInfo is a point-in-time view of a session for the admin surfaces.
type SessionInfo struct {
	ID            uint64        `json:"id"`
	Username      string        `json:"username"`
	UUID          string        `json:"uuid"`
	Remote        string        `json:"remote"`
	Since         time.Time     `json:"since"`
	Authenticated bool          `json:"authenticated"`
	Relaying      bool          `json:"relaying"`
	Modules       []string      `json:"modules"`
	Ping          time.Duration `json:"ping"`
}

type dialResult struct {
	res *upstream.Result
	err error
}

// Session is one client's proxied connection and, once authenticated, its
// paired upstream connection. All mutable state below the channels is
// owned by the goroutine running Run.
type Session struct {
	id       uint64
	username string
	uuid     uuid.UUID
	remote   string
	since    time.Time
	srv      *Server
	logger   *zap.Logger
	ctx      context.Context

	client     protocol.Conn
	clientOut  *writer
	fromClient chan pk.Packet

	// guarded by mu; read by Close from any goroutine
	mu          sync.Mutex
	upstream    protocol.Conn
	upstreamOut *writer

	fromUpstream chan pk.Packet
	dialed       chan dialResult
	calls        chan func()

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	authenticated bool
	relaying      bool
	transferred   bool
	impersonated  uuid.UUID
	host          *module.Host
	tasks         *scheduler.Scheduler
	ping          *ping.Tracker
	commands      *CommandDispatcher
}

func (s *Server) newSession(conn protocol.Conn, username string, id uuid.UUID, remote string) *Session {
	sess := &Session{
		username:   username,
		uuid:       id,
		remote:     remote,
		since:      s.Clock.Now(),
		srv:        s,
		client:     conn,
		fromClient: make(chan pk.Packet, 64),
		dialed:     make(chan dialResult),
		calls:      make(chan func()),
		closed:     make(chan struct{}),
	}
	sess.logger = s.Logger.With(zap.String("username", username), zap.String("remote", remote))
	sess.clientOut = newWriter(conn, sess.closed, func(err error) {
		go sess.Close(fmt.Errorf("%w: %v", ErrClientDisconnect, err))
	})
	sess.tasks = scheduler.New(sess.logger)
	return sess
}

func (s *Session) Username() string { return s.username }
func (s *Session) UUID() uuid.UUID { return s.uuid }
func (s *Session) Client() module.Sender { return s.clientOut }
func (s *Session) Logger() *zap.Logger { return s.logger }

// Schedule runs fn on the event loop after delay movement ticks.
func (s *Session) Schedule(fn func(), delay int) { s.tasks.Schedule(fn, delay) }

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Reply sends a chat line to the client only.
func (s *Session) Reply(text string) {
	s.clientOut.Send(chat.Message(text))
}

// Run drives the session until either endpoint closes or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.teardown()
	s.ctx = ctx

	go s.clientOut.run()
	go s.read(s.client, s.fromClient, nil)

	s.Reply("§cWarning: Do NOT authenticate if you don't trust this host.")
	s.Reply("Please authenticate using " + AuthChannel + ".")

	keepAlive := s.srv.Clock.Ticker(s.srv.Config.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close(ErrShutdown)
			return s.closeErr
		case <-s.closed:
			return s.closeErr
		case p, ok := <-s.fromClient:
			if !ok {
				s.Close(ErrClientDisconnect)
				return s.closeErr
			}
			s.handleClient(p)
		case p, ok := <-s.fromUpstream:
			if !ok {
				s.Close(ErrUpstreamDisconnect)
				return s.closeErr
			}
			s.handleUpstream(p)
		case d := <-s.dialed:
			s.wire(ctx, d)
		case fn := <-s.calls:
			fn()
		case <-keepAlive.C:
			if !s.relaying {
				s.clientOut.Send(&protocol.KeepAlive{KeepAliveID: pk.VarInt(rand.Int32())})
			}
		}
	}
}

// read feeds packets from c into out until c fails or the session closes.
// intercept, when set, may consume a packet on the reader goroutine.
func (s *Session) read(c protocol.Conn, out chan<- pk.Packet, intercept func(pk.Packet) bool) {
	defer close(out)
	for {
		var p pk.Packet
		if err := c.ReadPacket(&p); err != nil {
			select {
			case <-s.closed:
			default:
				s.logger.Debug("read ended", zap.Error(err))
			}
			return
		}
		if intercept != nil && intercept(p) {
			continue
		}
		select {
		case out <- p:
		case <-s.closed:
			return
		}
	}
}

// call runs fn on the event loop and waits for it. It reports false if
// the session closed first.
func (s *Session) call(fn func()) bool {
	done := make(chan struct{})
	select {
	case s.calls <- func() { fn(); close(done) }:
	case <-s.closed:
		return false
	}
	select {
	case <-done:
		return true
	case <-s.closed:
		return false
	}
}

// post queues fn on the event loop without waiting.
func (s *Session) post(fn func()) {
	go func() {
		select {
		case s.calls <- fn:
		case <-s.closed:
		}
	}()
}

// authenticate starts the upstream login off the loop.
func (s *Session) authenticate(creds auth.LoginData, identity uuid.UUID) {
	s.authenticated = true
	s.impersonated = identity
	s.Reply("Authenticated!")
	s.logger.Info("authenticated", zap.String("identity", identity.String()))

	go func() {
		start := s.srv.Clock.Now()
		res, err := s.srv.Dialer.Dial(s.ctx, creds)
		s.srv.Metrics.RecordDial(err, s.srv.Clock.Since(start))
		// dialed is unbuffered: a result is either taken by the loop or,
		// once the session has closed, released here
		select {
		case s.dialed <- dialResult{res, err}:
		case <-s.closed:
			if res != nil {
				res.Conn.Close()
			}
		}
	}()
}

// wire switches the session to relaying once the upstream is logged in.
func (s *Session) wire(ctx context.Context, d dialResult) {
	if d.err != nil {
		s.logger.Warn("upstream connection failed", zap.Error(d.err))
		s.clientOut.Send(chat.Disconnect("§cCould not connect to the server."))
		s.Close(fmt.Errorf("%w: %v", ErrUpstreamDisconnect, d.err))
		return
	}

	conn := d.res.Conn
	out := newWriter(conn, s.closed, func(err error) {
		go s.Close(fmt.Errorf("%w: %v", ErrUpstreamDisconnect, err))
	})
	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		conn.Close()
		return
	default:
	}
	s.upstream, s.upstreamOut = conn, out
	s.mu.Unlock()

	s.fromUpstream = make(chan pk.Packet, 64)
	go out.run()
	go s.read(conn, s.fromUpstream, s.applyCompression(conn))

	s.host = module.NewHost(s.srv.Registry, s, out)
	s.host.OnFault = s.srv.Metrics.RecordModuleFault
	s.commands = NewCommandDispatcher(s.host, s.Reply)
	s.ping = ping.NewTracker(s.srv.Clock)
	s.relaying = true
	s.srv.Metrics.SessionOpened()

	ping.NewWatchdog(s.srv.Clock, s.ping, s.srv.Config.PingInterval, s.srv.Config.PingThreshold,
		func(avg time.Duration) {
			s.post(func() { s.highLatency(avg) })
		}).Start(ctx)

	s.logger.Info("relaying", zap.String("upstream", s.srv.Config.UpstreamAddr()))
}

// applyCompression handles the upstream's play-state set compression on
// the reader goroutine, before the next packet is read with the old
// threshold.
func (s *Session) applyCompression(conn protocol.Conn) func(pk.Packet) bool {
	return func(p pk.Packet) bool {
		if p.ID != protocol.PlaySetCompressionID {
			return false
		}
		var sc protocol.SetCompression
		if err := p.Scan(&sc); err != nil {
			return false
		}
		if c, ok := conn.(interface{ SetThreshold(int) }); ok {
			c.SetThreshold(int(sc.Threshold))
		}
		s.logger.Debug("upstream compression changed", zap.Int32("threshold", int32(sc.Threshold)))
		return true
	}
}

func (s *Session) highLatency(avg time.Duration) {
	s.logger.Warn("high latency, dropping upstream",
		zap.Duration("average", avg),
		zap.Duration("threshold", s.srv.Config.PingThreshold),
	)
	s.mu.Lock()
	up := s.upstream
	s.mu.Unlock()
	if up != nil {
		up.Close()
	}
	s.srv.ScheduleRestart(s.srv.Config.RestartDelay)
}

// Kick sends reason to the client and closes the session.
func (s *Session) Kick(reason string) {
	s.clientOut.Send(chat.Disconnect(reason))
	s.Close(ErrKicked)
}

// Info snapshots the session from its event loop.
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:       s.id,
		Username: s.username,
		UUID:     s.uuid.String(),
		Remote:   s.remote,
		Since:    s.since,
	}
	s.call(func() {
		info.Authenticated = s.authenticated
		info.Relaying = s.relaying
		if s.host != nil {
			info.Modules = s.host.Active()
		}
		if s.ping != nil {
			info.Ping = s.ping.Average()
		}
	})
	return info
}

// Close ends the session. Queued packets are flushed before both
// endpoints close. Only the first call has any effect.
func (s *Session) Close(reason error) error {
	var err error
	s.closeOnce.Do(func() {
		s.closeErr = reason
		close(s.closed)

		s.mu.Lock()
		up, upOut := s.upstream, s.upstreamOut
		s.mu.Unlock()

		s.clientOut.wait(flushTimeout)
		if upOut != nil {
			upOut.wait(flushTimeout)
		}
		err = s.client.Close()
		if up != nil {
			err = multierr.Append(err, up.Close())
		}
		s.srv.remove(s)
		s.logger.Info("session closed", zap.NamedError("reason", reason))
	})
	return err
}

// teardown releases loop-owned state after Run returns.
func (s *Session) teardown() {
	if s.host != nil {
		s.host.Close()
	}
	s.tasks.Clear()
	if s.relaying {
		s.srv.Metrics.SessionClosed()
	}
}
