package proto

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameEncodeDecode_Stream(t *testing.T) {
	var buf bytes.Buffer
	msg := NewMessage([]byte{0, 1, 2, 255})
	require.NoError(t, msg.Encode(&buf))
	require.NoError(t, NewAck(msg.Message.MessageID, "").Encode(&buf))

	var f Frame
	require.NoError(t, f.Decode(&buf))
	assert.Equal(t, FrameTypeMessage, f.Type)
	assert.NotEmpty(t, f.Message.MessageID)
	assert.Equal(t, []byte{0, 1, 2, 255}, f.Message.Payload)

	// Decoding into a reused frame must not leak the previous message.
	require.NoError(t, f.Decode(&buf))
	assert.Equal(t, FrameTypeAck, f.Type)
	assert.Nil(t, f.Message)
	assert.Equal(t, msg.Message.MessageID, f.Ack.MessageID)

	assert.ErrorIs(t, f.Decode(&buf), io.EOF)
}

func TestFrameDecode_TooLarge(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)
	var f Frame
	assert.ErrorIs(t, f.Decode(bytes.NewReader(hdr[:])), io.ErrShortBuffer)
}

func TestStateFrame_NoneYet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Frame{Type: FrameTypeState, State: &StateFrame{Role: "relay", NodeID: 5}}).Encode(&buf))

	var f Frame
	require.NoError(t, f.Decode(&buf))
	require.NotNil(t, f.State)
	assert.Nil(t, f.State.LastDestination)
	assert.Nil(t, f.State.LastEncryptedMessage)
	assert.Nil(t, f.State.LastCircuit)
}
