package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-mclib/gateway/pkg/protocol"
)

func TestComponentRoundTrip(t *testing.T) {
	c := Component("Successfully transferred!")
	assert.Equal(t, "Successfully transferred!", PlainText(string(c)))
}

func TestMessageIsSystemChat(t *testing.T) {
	m := Message("hello")
	assert.Equal(t, int32(protocol.ClientChatID), m.PacketID())
	assert.EqualValues(t, protocol.ChatPositionSystem, m.Position)
	assert.Equal(t, "hello", PlainText(string(m.JSON)))
}

func TestPlainTextPassesThroughGarbage(t *testing.T) {
	assert.Equal(t, "not json", PlainText("not json"))
}

func TestStripCodes(t *testing.T) {
	assert.Equal(t, "Enabled Brand!", StripCodes("§aEnabled §lBrand§r!"))
	assert.Equal(t, "", StripCodes("§"))
	assert.Equal(t, Toggle("X", true), "§aX§r")
	assert.Equal(t, Toggle("X", false), "§cX§r")
}
