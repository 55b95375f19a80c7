package brand

import (
	"bytes"
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
)

func event(t *testing.T, channel string, data []byte) *module.Event {
	t.Helper()
	raw := protocol.Encode(protocol.NewServerPluginMessage(channel, data)).Data
	return module.NewEvent(protocol.Serverbound, protocol.ServerPluginMessageID, raw)
}

func TestRewritesBrand(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.(module.Configurable).Config().Set("brand", "lunarclient"))

	ev := event(t, Channel, []byte("\x05forge"))
	m.ToServer(ev)
	require.True(t, ev.Modified)

	p, err := ev.Packet()
	require.NoError(t, err)
	var msg protocol.ServerPluginMessage
	require.NoError(t, p.Scan(&msg))

	var brand pk.String
	_, err = brand.ReadFrom(bytes.NewReader(msg.Data))
	require.NoError(t, err)
	assert.EqualValues(t, "lunarclient", brand)
}

func TestIgnoresOtherChannels(t *testing.T) {
	m := New(nil, nil)
	ev := event(t, "MC|BOpen", []byte{1})
	m.ToServer(ev)
	assert.False(t, ev.Modified)

	chat := module.NewEvent(protocol.Serverbound, protocol.ServerChatID, protocol.Encode(&protocol.ServerChat{Message: "hi"}).Data)
	m.ToServer(chat)
	assert.False(t, chat.Decoded())
}
