package gateway

import (
	"context"
	"crypto/cipher"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/offline"
	"github.com/benbjohnson/clock"
	"github.com/go-mclib/protocol/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
	"github.com/go-mclib/gateway/pkg/protocol/protocoltest"
	"github.com/go-mclib/gateway/pkg/upstream"
	"github.com/go-mclib/gateway/pkg/whitelist"
)

const timeout = 2 * time.Second

// upstreamConn is a pipe end that records the compression threshold.
type upstreamConn struct {
	*protocoltest.PipeConn
	threshold atomic.Int32
	closed    atomic.Bool
}

func (c *upstreamConn) SetThreshold(t int) { c.threshold.Store(int32(t)) }
func (c *upstreamConn) SetCipher(_, _ cipher.Stream) {}

func (c *upstreamConn) Close() error {
	c.closed.Store(true)
	return c.PipeConn.Close()
}

type fakeDialer struct {
	mu      sync.Mutex
	calls   []auth.LoginData
	conns   chan *upstreamConn
	remotes chan *protocoltest.PipeConn
	// gate, when set, holds every dial until it is closed
	gate chan struct{}
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *upstreamConn, 4), remotes: make(chan *protocoltest.PipeConn, 4)}
}

func (d *fakeDialer) Dial(_ context.Context, creds auth.LoginData) (*upstream.Result, error) {
	d.mu.Lock()
	d.calls = append(d.calls, creds)
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
	local, remote := protocoltest.Pipe()
	conn := &upstreamConn{PipeConn: local}
	d.conns <- conn
	d.remotes <- remote
	return &upstream.Result{Conn: conn, UUID: uuid.MustParse(listedID)}, nil
}

func (d *fakeDialer) Calls() []auth.LoginData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]auth.LoginData(nil), d.calls...)
}

type harness struct {
	t      *testing.T
	srv    *Server
	sess   *Session
	clock  *clock.Mock
	dialer *fakeDialer
	// client is the test's end of the client link; upstream its end of
	// the upstream link once dialed.
	client   *protocoltest.PipeConn
	upstream *protocoltest.PipeConn
	upConn   *upstreamConn
	done     chan error
}

func newHarness(t *testing.T, blueprints ...module.Blueprint) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Whitelist = true

	h := &harness{
		t:      t,
		clock:  clock.NewMock(),
		dialer: newFakeDialer(),
		done:   make(chan error, 1),
	}
	h.srv = New(cfg, module.NewRegistry(blueprints...))
	h.srv.Clock = h.clock
	h.srv.Dialer = h.dialer
	h.srv.Whitelist = whitelist.New(listedID)
	h.srv.Logger = zap.NewNop()
	h.srv.init()

	gw, client := protocoltest.Pipe()
	h.client = client
	h.sess = h.srv.newSession(gw, "Steve", offline.NameToUUID("Steve"), "pipe")
	h.srv.add(h.sess)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.done <- h.sess.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(timeout):
			t.Error("session did not stop")
		}
	})

	h.expectChat("§cWarning: Do NOT authenticate if you don't trust this host.")
	h.expectChat("Please authenticate using " + AuthChannel + ".")
	return h
}

func read(t *testing.T, c protocol.Conn) pk.Packet {
	t.Helper()
	type result struct {
		p   pk.Packet
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var p pk.Packet
		err := c.ReadPacket(&p)
		ch <- result{p, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a packet")
	}
	return pk.Packet{}
}

func (h *harness) fromClient(p protocol.Payload) {
	h.t.Helper()
	require.NoError(h.t, protocol.Write(h.client, p))
}

func (h *harness) fromUpstream(p protocol.Payload) {
	h.t.Helper()
	require.NoError(h.t, protocol.Write(h.upstream, p))
}

func (h *harness) toClient() pk.Packet {
	h.t.Helper()
	return read(h.t, h.client)
}

func (h *harness) toUpstream() pk.Packet {
	h.t.Helper()
	return read(h.t, h.upstream)
}

func (h *harness) expectChat(text string) {
	h.t.Helper()
	p := h.toClient()
	require.Equal(h.t, int32(protocol.ClientChatID), p.ID)
	var msg protocol.ClientChat
	require.NoError(h.t, p.Scan(&msg))
	assert.Equal(h.t, chat.StripCodes(text), chat.StripCodes(chat.PlainText(string(msg.JSON))))
}

func (h *harness) auth(identity string) {
	h.t.Helper()
	h.fromClient(protocol.NewServerPluginMessage(AuthChannel, []byte("phoenix:token:"+identity)))
}

// relay authenticates and waits until the session relays.
func (h *harness) relay() {
	h.t.Helper()
	h.auth(listedID)
	h.expectChat("Authenticated!")
	select {
	case h.upstream = <-h.dialer.remotes:
		h.upConn = <-h.dialer.conns
	case <-time.After(timeout):
		h.t.Fatal("upstream was not dialed")
	}
	require.Eventually(h.t, func() bool { return h.sess.Info().Relaying }, timeout, time.Millisecond)
}

func (h *harness) command(line string) {
	h.t.Helper()
	h.fromClient(&protocol.ServerChat{Message: pk.String(line)})
}

var marker = &protocol.Raw{ID: 0x15, Data: []byte{0xde, 0xad}}

func TestAuthRejectedThenAccepted(t *testing.T) {
	h := newHarness(t)

	h.auth(unlistedID)
	h.auth("not-hex")
	h.fromClient(protocol.NewServerPluginMessage(AuthChannel, []byte("garbage")))
	h.auth("AB12CD34-EF56-AB12-CD34-EF56AB12CD34")
	h.expectChat("Authenticated!")

	require.Eventually(t, func() bool { return len(h.dialer.Calls()) == 1 }, timeout, time.Millisecond)
	creds := h.dialer.Calls()[0]
	assert.Equal(t, "Steve", creds.Username)
	assert.Equal(t, listedID, creds.UUID)
	assert.Equal(t, "token", creds.AccessToken)
}

func TestSecondAuthIsNoop(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.auth(listedID)
	h.command("p.modules")
	h.expectChat("Modules: ")

	assert.Len(t, h.dialer.Calls(), 1)
	assert.True(t, h.sess.Info().Authenticated)
}

func TestPacketsBeforeRelayAreDropped(t *testing.T) {
	h := newHarness(t)
	h.fromClient(marker)
	h.command("p.modules")
	h.relay()

	h.fromClient(&protocol.Player{OnGround: true})
	p := h.toUpstream()
	assert.Equal(t, int32(protocol.PlayerID), p.ID)
}

func TestRelayForwardsRawBytes(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.fromClient(marker)
	p := h.toUpstream()
	assert.Equal(t, marker.ID, p.ID)
	assert.Equal(t, []byte{0xde, 0xad}, p.Data)

	raw := &protocol.Raw{ID: 0x30, Data: []byte{1, 2, 3, 4, 5}}
	h.fromUpstream(raw)
	p = h.toClient()
	assert.Equal(t, raw.ID, p.ID)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, p.Data)
}

func TestCanceledPacketIsNotForwarded(t *testing.T) {
	mute := module.Blueprint{Name: "Mute", New: func(module.Session, module.Sender) module.Module {
		return &hooks{toServer: func(ev *module.Event) {
			if ev.ID == protocol.ServerChatID {
				ev.Canceled = true
			}
		}}
	}}
	h := newHarness(t, mute)
	h.relay()

	h.command("p.t mute")
	h.expectChat("§aEnabled Mute!")

	h.command("hello")
	h.fromClient(marker)
	assert.Equal(t, marker.ID, h.toUpstream().ID, "the canceled chat never reaches upstream")
}

func TestModifiedPacketIsReencoded(t *testing.T) {
	shout := module.Blueprint{Name: "Shout", New: func(module.Session, module.Sender) module.Module {
		return &hooks{toServer: func(ev *module.Event) {
			if ev.ID != protocol.ServerChatID {
				return
			}
			data, err := ev.Data()
			if err != nil {
				return
			}
			data.(*protocol.ServerChat).Message += "!"
			ev.Modified = true
		}}
	}}
	h := newHarness(t, shout)
	h.relay()
	h.command("p.toggle shout")
	h.expectChat("§aEnabled Shout!")

	h.command("hello")
	var msg protocol.ServerChat
	require.NoError(t, h.toUpstream().Scan(&msg))
	assert.EqualValues(t, "hello!", msg.Message)
}

func TestRosterRewrite(t *testing.T) {
	h := newHarness(t)
	h.relay()

	impersonated := uuid.MustParse(listedID)
	other1, other2 := uuid.New(), uuid.New()
	entry := func(id uuid.UUID, name string) protocol.PlayerListEntry {
		return protocol.PlayerListEntry{UUID: pk.UUID(id), Name: pk.String(name), Ping: 42}
	}
	h.fromUpstream(&protocol.PlayerListItem{
		Action:  pk.VarInt(protocol.PlayerListAdd),
		Players: []protocol.PlayerListEntry{entry(other1, "a"), entry(impersonated, "Steve"), entry(other2, "b")},
	})

	want := protocol.Encode(&protocol.PlayerListItem{
		Action:  pk.VarInt(protocol.PlayerListAdd),
		Players: []protocol.PlayerListEntry{entry(other1, "a"), entry(h.sess.UUID(), "Steve"), entry(other2, "b")},
	})
	got := h.toClient()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Data, got.Data)

	untouched := protocol.Encode(&protocol.PlayerListItem{
		Action:  pk.VarInt(protocol.PlayerListRemove),
		Players: []protocol.PlayerListEntry{{UUID: pk.UUID(other1)}},
	})
	require.NoError(t, h.upstream.WritePacket(untouched))
	assert.Equal(t, untouched.Data, h.toClient().Data)
}

func TestTransferSynthesisOnce(t *testing.T) {
	h := newHarness(t)
	h.relay()

	join := &protocol.JoinGame{EntityID: 7, Gamemode: 0x09, Dimension: -1, Difficulty: 2, MaxPlayers: 100, LevelType: "default"}
	h.fromUpstream(join)

	p := h.toClient()
	assert.Equal(t, protocol.Encode(join).Data, p.Data)

	var respawn protocol.Respawn
	p = h.toClient()
	require.Equal(t, int32(protocol.RespawnID), p.ID)
	require.NoError(t, p.Scan(&respawn))
	assert.EqualValues(t, -1, respawn.Dimension)
	assert.EqualValues(t, 1, respawn.Gamemode)
	assert.EqualValues(t, "default", respawn.LevelType)
	h.expectChat("Successfully transferred!")

	h.fromUpstream(join)
	h.fromUpstream(marker)
	assert.Equal(t, int32(protocol.JoinGameID), h.toClient().ID)
	assert.Equal(t, marker.ID, h.toClient().ID, "no second respawn")
}

func TestTaskRunsOnThirdMovement(t *testing.T) {
	h := newHarness(t)
	h.relay()

	var fired atomic.Int32
	require.True(t, h.sess.call(func() {
		h.sess.Schedule(func() { fired.Add(1) }, 2)
	}))

	for i := range 3 {
		assert.EqualValues(t, 0, fired.Load(), "before movement %d", i+1)
		h.fromClient(&protocol.PlayerPosition{X: 1, FeetY: 64, Z: 1, OnGround: true})
		assert.Equal(t, int32(protocol.PlayerPositionID), h.toUpstream().ID)
	}
	assert.EqualValues(t, 1, fired.Load())

	h.fromClient(&protocol.PlayerLook{})
	h.toUpstream()
	assert.EqualValues(t, 1, fired.Load())
}

func TestCommands(t *testing.T) {
	filter := module.Blueprint{Name: "Filter", New: func(module.Session, module.Sender) module.Module {
		return &hooks{cfg: module.NewConfig(map[string]any{"word": "spam", "enabled": true})}
	}}
	plain := module.Blueprint{Name: "Plain", New: func(module.Session, module.Sender) module.Module {
		return &hooks{}
	}}
	h := newHarness(t, filter, plain)
	h.relay()

	steps := []struct{ line, reply string }{
		{"p.modules", "Modules: Filter, Plain"},
		{"P.T filter", "Enabled Filter!"},
		{"p.set filter word 5", "Incorrect type."},
		{`p.set filter word "ads"`, `Set word to "ads"!`},
		{"p.set filter enabled false", "Set enabled to false!"},
		{"p.set filter word [1]", "Invalid type."},
		{"p.get filter", `{"enabled":false,"word":"ads"}`},
		{"p.get plain", "Module not found."},
		{"p.t plain", "Enabled Plain!"},
		{"p.get plain", "Module has no config."},
		{"p.t nope", "Module not found!"},
		{"p.set nope a b", "Module not found."},
		{"p.toggle FILTER", "Disabled Filter!"},
		{"p.dance", "Unknown command."},
		{"p.", "Unknown command."},
	}
	for _, step := range steps {
		h.command(step.line)
		p := h.toClient()
		var msg protocol.ClientChat
		require.NoError(t, p.Scan(&msg))
		assert.Equal(t, step.reply, chat.StripCodes(chat.PlainText(string(msg.JSON))), step.line)
	}

	h.fromClient(marker)
	assert.Equal(t, marker.ID, h.toUpstream().ID, "commands are never forwarded")
}

func TestUpstreamCompressionIsConsumed(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.fromUpstream(&protocol.SetCompression{Threshold: 512})
	h.fromUpstream(marker)
	assert.Equal(t, marker.ID, h.toClient().ID)
	assert.EqualValues(t, 512, h.upConn.threshold.Load())
}

func TestKeepAliveBeforeRelay(t *testing.T) {
	h := newHarness(t)
	h.clock.Add(h.srv.Config.KeepAliveInterval)
	assert.Equal(t, int32(protocol.ClientKeepAliveID), h.toClient().ID)
}

func TestUpstreamCloseEndsSession(t *testing.T) {
	h := newHarness(t)
	h.relay()
	require.Equal(t, 1, h.srv.SessionCount())

	h.upstream.Close()
	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, ErrUpstreamDisconnect)
		h.done <- err
	case <-time.After(timeout):
		t.Fatal("session did not end")
	}
	var p pk.Packet
	assert.Error(t, h.client.ReadPacket(&p))
	assert.Zero(t, h.srv.SessionCount())
}

func TestClientCloseClosesUpstream(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.client.Close()
	var p pk.Packet
	require.Eventually(t, func() bool { return h.upstream.ReadPacket(&p) != nil }, timeout, time.Millisecond)
	assert.NoError(t, h.sess.Close(ErrKicked), "second close is a no-op")
}

func TestDialFinishingAfterCloseIsReleased(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.dialer.mu.Lock()
	h.dialer.gate = gate
	h.dialer.mu.Unlock()

	h.auth(listedID)
	h.expectChat("Authenticated!")
	require.Eventually(t, func() bool { return len(h.dialer.Calls()) == 1 }, timeout, time.Millisecond)

	h.client.Close()
	select {
	case <-h.sess.Done():
	case <-time.After(timeout):
		t.Fatal("session did not close")
	}
	close(gate)

	var conn *upstreamConn
	select {
	case conn = <-h.dialer.conns:
	case <-time.After(timeout):
		t.Fatal("dial did not finish")
	}
	require.Eventually(t, conn.closed.Load, timeout, time.Millisecond)
}

func TestPanickingModuleFactoryKeepsSession(t *testing.T) {
	boom := module.Blueprint{Name: "Boom", New: func(module.Session, module.Sender) module.Module {
		panic("boom")
	}}
	h := newHarness(t, boom)
	h.relay()

	h.command("p.t boom")
	h.expectChat("Boom failed to start.")
	h.command("p.modules")
	h.expectChat("Modules: Boom")

	h.fromClient(marker)
	assert.Equal(t, marker.ID, h.toUpstream().ID)
	assert.Equal(t, 1, h.srv.SessionCount())
}

func TestKick(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.srv.Kick("Alex", "bye"))
	assert.True(t, h.srv.Kick("Steve", "bye"))

	p := h.toClient()
	require.Equal(t, int32(protocol.DisconnectID), p.ID)
	var d protocol.Disconnect
	require.NoError(t, p.Scan(&d))
	assert.Equal(t, "bye", chat.PlainText(string(d.Reason)))
}

func TestHighLatencyDropsUpstreamAndSchedulesRestart(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.clock.Add(1500 * time.Millisecond)
	h.fromClient(&protocol.KeepAlive{KeepAliveID: 1})
	require.Equal(t, int32(protocol.ServerKeepAliveID), h.toUpstream().ID)

	h.clock.Add(h.srv.Config.PingInterval)

	var p pk.Packet
	require.Eventually(t, func() bool { return h.upstream.ReadPacket(&p) != nil }, timeout, time.Millisecond)
	require.Eventually(t, h.srv.RestartPending, timeout, time.Millisecond)

	h.clock.Add(h.srv.Config.RestartDelay)
	require.Eventually(t, func() bool { return !h.srv.RestartPending() }, timeout, time.Millisecond)
}

func TestLowLatencyKeepsUpstream(t *testing.T) {
	h := newHarness(t)
	h.relay()

	h.clock.Add(100 * time.Millisecond)
	h.fromClient(&protocol.KeepAlive{KeepAliveID: 1})
	h.toUpstream()
	h.clock.Add(h.srv.Config.PingInterval)

	h.fromClient(marker)
	assert.Equal(t, marker.ID, h.toUpstream().ID)
	assert.False(t, h.srv.RestartPending())
	assert.Equal(t, 100*time.Millisecond, h.sess.Info().Ping)
}

type hooks struct {
	toClient func(*module.Event)
	toServer func(*module.Event)
	cfg      *module.Config
}

func (m *hooks) ToClient(ev *module.Event) {
	if m.toClient != nil {
		m.toClient(ev)
	}
}

func (m *hooks) ToServer(ev *module.Event) {
	if m.toServer != nil {
		m.toServer(ev)
	}
}

func (m *hooks) Config() *module.Config { return m.cfg }
