// Package module hosts packet-interception plugins. A Blueprint is the
// process-wide definition of a module; a session enables it by name, which
// creates an instance bound to that session only.
package module

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/protocol"
)

// Module is a session-bound instance of a blueprint.
type Module interface {
	// ToClient is called for every packet travelling from the upstream
	// server to the client.
	ToClient(ev *Event)
	// ToServer is called for every packet travelling from the client to the
	// upstream server.
	ToServer(ev *Event)
}

// Configurable is optionally implemented by modules with settings that
// the in-chat get/set commands can read and change.
type Configurable interface {
	Config() *Config
}

// Closer is optionally implemented by modules that need teardown when
// disabled or when their session ends.
type Closer interface {
	Close()
}

// Sender queues a packet towards one endpoint of a session.
type Sender interface {
	Send(p protocol.Payload)
}

// Session is what a module sees of the session it is bound to.
type Session interface {
	Username() string
	UUID() uuid.UUID
	// Client queues packets to the connected client.
	Client() Sender
	// Schedule runs fn after delay movement ticks.
	Schedule(fn func(), delay int)
	Logger() *zap.Logger
}

// Factory creates an instance bound to a session and its upstream.
type Factory func(s Session, upstream Sender) Module

// Blueprint is the immutable definition of a module.
type Blueprint struct {
	Name string
	New  Factory
}
