package proto

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/google/uuid"
)

// Frame types
const (
	FrameTypeMessage   = 1
	FrameTypeAck       = 2
	FrameTypeError     = 3
	FrameTypeRegister  = 4
	FrameTypeLookup    = 5
	FrameTypeDirectory = 6
	FrameTypeInspect   = 7
	FrameTypeState     = 8
	FrameTypeSend      = 9
	FrameTypeStatus    = 10
)

// MaxFrameSize bounds a single encoded frame.
const MaxFrameSize = 1024 * 1024

// MessageFrame carries one onion layer to a relay, or the final plaintext to a user.
type MessageFrame struct {
	MessageID string `json:"message_id"`
	Payload   []byte `json:"payload"`
}

// AckFrame
type AckFrame struct {
	MessageID string `json:"message_id"`
	OK        bool   `json:"ok"`
	Status    string `json:"status,omitempty"`
}

// ErrorFrame
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NodeInfo is one registry entry.
type NodeInfo struct {
	NodeID    int    `json:"node_id"`
	PublicKey string `json:"pub_key"`
}

// RegisterFrame publishes a relay's public key to the registry.
type RegisterFrame struct {
	NodeInfo
}

// DirectoryFrame answers a lookup with every registered relay.
type DirectoryFrame struct {
	Nodes []NodeInfo `json:"nodes"`
}

// InspectFrame asks an endpoint for its observability state.
type InspectFrame struct {
	IncludePrivateKey bool `json:"include_private_key,omitempty"`
}

// StateFrame reports what an endpoint last observed. Nil fields mean nothing observed yet.
type StateFrame struct {
	Role   string `json:"role"`
	NodeID int    `json:"node_id"`

	PublicKey  string `json:"public_key,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`

	// relay
	LastEncryptedMessage []byte   `json:"last_encrypted_message"`
	LastDecryptedMessage []byte   `json:"last_decrypted_message"`
	LastDestination      *Address `json:"last_destination"`

	// user
	LastReceivedMessage *string `json:"last_received_message"`
	LastSentMessage     *string `json:"last_sent_message"`

	LastCircuit []int `json:"last_circuit"`

	// Relays seen on the local network, when discovery is on.
	Peers []string `json:"peers,omitempty"`
}

// SendFrame asks a user endpoint to originate a message.
type SendFrame struct {
	Message           string `json:"message"`
	DestinationUserID int    `json:"destination_user_id"`
}

// Frame is the top-level wire message
type Frame struct {
	Type      int             `json:"t"`
	Message   *MessageFrame   `json:"m,omitempty"`
	Ack       *AckFrame       `json:"a,omitempty"`
	Error     *ErrorFrame     `json:"e,omitempty"`
	Register  *RegisterFrame  `json:"r,omitempty"`
	Directory *DirectoryFrame `json:"d,omitempty"`
	Inspect   *InspectFrame   `json:"i,omitempty"`
	State     *StateFrame     `json:"st,omitempty"`
	Send      *SendFrame      `json:"s,omitempty"`
}

// NewMessage wraps payload in a Message frame with a fresh id.
func NewMessage(payload []byte) *Frame {
	return &Frame{Type: FrameTypeMessage, Message: &MessageFrame{
		MessageID: uuid.NewString(),
		Payload:   payload,
	}}
}

// NewAck acknowledges messageID.
func NewAck(messageID, status string) *Frame {
	return &Frame{Type: FrameTypeAck, Ack: &AckFrame{MessageID: messageID, OK: true, Status: status}}
}

// NewError builds an Error frame.
func NewError(code, message string) *Frame {
	return &Frame{Type: FrameTypeError, Error: &ErrorFrame{Code: code, Message: message}}
}

// Encode writes a length-prefixed JSON frame to w
func (f *Frame) Encode(w io.Writer) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if len(data) > MaxFrameSize {
		return io.ErrShortBuffer
	}
	// 4-byte big-endian length prefix
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a length-prefixed JSON frame from r
func (f *Frame) Decode(r io.Reader) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return io.ErrShortBuffer
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	*f = Frame{}
	return json.Unmarshal(data, f)
}
