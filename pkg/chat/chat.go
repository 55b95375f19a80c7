// Package chat builds the legacy JSON chat components the 1.8 client
// renders. Formatting uses § codes inside plain text components.
package chat

import (
	"encoding/json"
	"strings"

	"github.com/Tnze/go-mc/chat"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/gateway/pkg/protocol"
)

// Component returns text as a JSON chat component.
func Component(text string) pk.String {
	b, err := json.Marshal(chat.Text(text))
	if err != nil {
		// chat.Message only holds strings and slices of itself
		panic(err)
	}
	return pk.String(b)
}

// Message is a system chat line addressed to the client.
func Message(text string) *protocol.ClientChat {
	return &protocol.ClientChat{JSON: Component(text), Position: protocol.ChatPositionSystem}
}

// Disconnect is a play-state kick with reason.
func Disconnect(reason string) *protocol.Disconnect {
	return &protocol.Disconnect{Reason: Component(reason)}
}

// LoginDisconnect is a login-state kick with reason.
func LoginDisconnect(reason string) *protocol.LoginDisconnect {
	return &protocol.LoginDisconnect{Reason: Component(reason)}
}

// PlainText flattens a JSON chat component into its text, dropping
// formatting. Input that is not a component is returned unchanged.
func PlainText(component string) string {
	var msg chat.Message
	if err := json.Unmarshal([]byte(component), &msg); err != nil {
		return component
	}
	return msg.ClearString()
}

// Toggle renders an enabled/disabled state in green or red.
func Toggle(name string, on bool) string {
	if on {
		return "§a" + name + "§r"
	}
	return "§c" + name + "§r"
}

// StripCodes removes § formatting codes from text.
func StripCodes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	skip := false
	for _, r := range text {
		switch {
		case skip:
			skip = false
		case r == '§':
			skip = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
