// Package a2a implements the JSON-RPC 2.0 chat protocol spoken by agents:
// request construction, agent reference resolution and incremental
// reassembly of the streamed response frames.
package a2a

import (
	"strings"

	"github.com/google/uuid"
)

// Protocol constants.
const (
	jsonrpcVersion = "2.0"

	// MethodMessageStream is the streaming chat method.
	MethodMessageStream = "message/stream"

	// KindMessage and KindText are the message/part kinds used on the wire.
	KindMessage = "message"
	KindText    = "text"

	// KindStatusUpdate marks streamed task status frames.
	KindStatusUpdate = "status-update"

	// RoleUser and RoleAgent are the protocol-level message roles.
	RoleUser  = "user"
	RoleAgent = "agent"

	// DefaultNamespace is assumed when an agent reference has no
	// namespace delimiter.
	DefaultNamespace = "default"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// Params carries the single message of a message/stream call.
type Params struct {
	Message Message `json:"message"`
}

// Message is the protocol message object.
type Message struct {
	Kind      string `json:"kind"`
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	ContextID string `json:"contextId,omitempty"`
}

// Part is one content part of a message.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// NewStreamRequest builds a message/stream request carrying one user text
// message bound to the given session.
func NewStreamRequest(sessionID, text string) Request {
	return Request{
		JSONRPC: jsonrpcVersion,
		ID:      uuid.New().String(),
		Method:  MethodMessageStream,
		Params: Params{
			Message: Message{
				Kind:      KindMessage,
				MessageID: uuid.New().String(),
				Role:      RoleUser,
				Parts:     []Part{{Kind: KindText, Text: text}},
				ContextID: sessionID,
			},
		},
	}
}

// ResolveAgentRef splits a stored agent reference into namespace and agent
// name. References without the delimiter get the default namespace, and the
// agent name is derived by replacing underscores with hyphens.
func ResolveAgentRef(ref string) (namespace, name string) {
	if ns, n, ok := strings.Cut(ref, "/"); ok && ns != "" && n != "" {
		return ns, n
	}
	return DefaultNamespace, strings.ReplaceAll(ref, "_", "-")
}
