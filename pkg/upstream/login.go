package upstream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/Tnze/go-mc/net/CFB8"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/go-mclib/protocol/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/protocol"
)

var (
	// ErrLoginRejected is returned when the upstream server ends the login
	// with a disconnect. It does not count against the circuit breaker.
	ErrLoginRejected = errors.New("upstream rejected login")
	ErrNotRSAKey     = errors.New("upstream public key is not RSA")
)

// Conn is a packet connection whose framing can switch to compressed and
// encrypted mid-login. *go-mc/net.Conn satisfies it.
type Conn interface {
	protocol.Conn
	SetThreshold(threshold int)
	SetCipher(encrypt, decrypt cipher.Stream)
}

// SessionJoiner announces a join to the session server so that an online
// mode upstream accepts the encrypted login.
type SessionJoiner interface {
	Join(accessToken, id, serverID string, sharedSecret, publicKey []byte) error
}

// JoinFunc adapts a function to SessionJoiner.
type JoinFunc func(accessToken, id, serverID string, sharedSecret, publicKey []byte) error

func (f JoinFunc) Join(accessToken, id, serverID string, sharedSecret, publicKey []byte) error {
	return f(accessToken, id, serverID, sharedSecret, publicKey)
}

// Login performs the client side of the login sequence on c as the player
// in creds, returning once the upstream reports success. c is left in the
// play state, with compression and encryption applied as negotiated.
func Login(c Conn, host string, port uint16, creds auth.LoginData, joiner SessionJoiner, logger *zap.Logger) (uuid.UUID, error) {
	if err := protocol.Write(c, &protocol.Handshake{
		ProtocolVersion: protocol.Version,
		ServerAddress:   pk.String(host),
		ServerPort:      pk.UnsignedShort(port),
		NextState:       2,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("write handshake: %w", err)
	}
	if err := protocol.Write(c, &protocol.LoginStart{Name: pk.String(creds.Username)}); err != nil {
		return uuid.Nil, fmt.Errorf("write login start: %w", err)
	}

	for {
		var p pk.Packet
		if err := c.ReadPacket(&p); err != nil {
			return uuid.Nil, fmt.Errorf("read login: %w", err)
		}
		switch p.ID {
		case protocol.EncryptionRequestID:
			var req protocol.EncryptionRequest
			if err := p.Scan(&req); err != nil {
				return uuid.Nil, fmt.Errorf("parse encryption request: %w", err)
			}
			if err := encrypt(c, &req, creds, joiner); err != nil {
				return uuid.Nil, err
			}
			logger.Debug("upstream encryption enabled")
		case protocol.LoginSetCompressionID:
			var sc protocol.LoginSetCompression
			if err := p.Scan(&sc); err != nil {
				return uuid.Nil, fmt.Errorf("parse set compression: %w", err)
			}
			c.SetThreshold(int(sc.Threshold))
			logger.Debug("upstream compression enabled", zap.Int32("threshold", int32(sc.Threshold)))
		case protocol.LoginSuccessID:
			var ok protocol.LoginSuccess
			if err := p.Scan(&ok); err != nil {
				return uuid.Nil, fmt.Errorf("parse login success: %w", err)
			}
			id, err := uuid.Parse(string(ok.UUID))
			if err != nil {
				return uuid.Nil, fmt.Errorf("login success uuid %q: %w", ok.UUID, err)
			}
			return id, nil
		case protocol.LoginDisconnectID:
			var d protocol.LoginDisconnect
			if err := p.Scan(&d); err != nil {
				return uuid.Nil, fmt.Errorf("%w: unreadable reason", ErrLoginRejected)
			}
			return uuid.Nil, fmt.Errorf("%w: %s", ErrLoginRejected, chat.PlainText(string(d.Reason)))
		default:
			return uuid.Nil, fmt.Errorf("%w: 0x%02x during login", protocol.ErrUnexpectedPacket, p.ID)
		}
	}
}

func encrypt(c Conn, req *protocol.EncryptionRequest, creds auth.LoginData, joiner SessionJoiner) error {
	key, err := x509.ParsePKIXPublicKey(req.PublicKey)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return ErrNotRSAKey
	}

	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("generate shared secret: %w", err)
	}
	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, secret)
	if err != nil {
		return fmt.Errorf("encrypt shared secret: %w", err)
	}
	encToken, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, req.VerifyToken)
	if err != nil {
		return fmt.Errorf("encrypt verify token: %w", err)
	}

	if err := joiner.Join(creds.AccessToken, creds.UUID, string(req.ServerID), secret, req.PublicKey); err != nil {
		return fmt.Errorf("session join: %w", err)
	}

	if err := protocol.Write(c, &protocol.EncryptionResponse{
		SharedSecret: encSecret,
		VerifyToken:  encToken,
	}); err != nil {
		return fmt.Errorf("write encryption response: %w", err)
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	c.SetCipher(CFB8.NewCFB8Encrypt(block, secret), CFB8.NewCFB8Decrypt(block, secret))
	return nil
}
