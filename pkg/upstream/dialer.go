// Package upstream opens play-state connections to the upstream server on
// behalf of an authenticated player.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	"github.com/go-mclib/protocol/auth"
	session_server "github.com/go-mclib/protocol/java_protocol/session_server"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultPort = 25565

// Dialer connects to one upstream address, impersonating the player whose
// credentials it is given.
type Dialer struct {
	Address string
	Timeout time.Duration
	Logger  *zap.Logger

	// Joiner defaults to the Mojang session server.
	Joiner SessionJoiner
	// DialFunc opens the transport. Defaults to TCP with SRV lookup.
	DialFunc func(ctx context.Context, address string) (Conn, error)

	breaker *gobreaker.CircuitBreaker
}

// Result is a logged-in upstream connection.
type Result struct {
	Conn Conn
	// UUID is the identity the upstream server assigned.
	UUID uuid.UUID
}

func New(address string, timeout time.Duration, logger *zap.Logger) *Dialer {
	d := &Dialer{
		Address: address,
		Timeout: timeout,
		Logger:  logger,
	}
	sc := session_server.NewSessionServerClient()
	d.Joiner = JoinFunc(func(accessToken, id, serverID string, sharedSecret, publicKey []byte) error {
		return sc.Join(accessToken, id, serverID, sharedSecret, publicKey)
	})
	d.DialFunc = dialTCP
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrLoginRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return d
}

// Dial connects and logs in as creds. It fails fast with
// gobreaker.ErrOpenState while the upstream keeps failing.
func (d *Dialer) Dial(ctx context.Context, creds auth.LoginData) (*Result, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	res, err := d.breaker.Execute(func() (interface{}, error) {
		return d.dial(ctx, creds)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Result), nil
}

func (d *Dialer) dial(ctx context.Context, creds auth.LoginData) (*Result, error) {
	host, port, err := splitAddress(d.Address)
	if err != nil {
		return nil, err
	}
	conn, err := d.DialFunc(ctx, d.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Address, err)
	}

	// unblock the login reads if ctx ends first
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	id, err := Login(conn, host, port, creds, d.Joiner, d.Logger)
	if !stop() {
		err = ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("login as %s: %w", creds.Username, err)
	}
	d.Logger.Info("upstream login complete",
		zap.String("address", d.Address),
		zap.String("username", creds.Username),
		zap.String("uuid", id.String()),
	)
	return &Result{Conn: conn, UUID: id}, nil
}

func splitAddress(address string) (string, uint16, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return address, defaultPort, nil
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("upstream port %q: %w", port, err)
	}
	return host, uint16(n), nil
}

// dialTCP connects to address, resolving a _minecraft._tcp SRV record
// when no port is given.
func dialTCP(ctx context.Context, address string) (Conn, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = resolve(ctx, address)
	}
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return mcnet.WrapConn(conn), nil
}

func resolve(ctx context.Context, host string) string {
	_, records, err := net.DefaultResolver.LookupSRV(ctx, "minecraft", "tcp", host)
	if err != nil || len(records) == 0 {
		return net.JoinHostPort(host, strconv.Itoa(defaultPort))
	}
	target := records[0].Target
	if len(target) > 0 && target[len(target)-1] == '.' {
		target = target[:len(target)-1]
	}
	return net.JoinHostPort(target, strconv.Itoa(int(records[0].Port)))
}

var _ Conn = (*mcnet.Conn)(nil)
