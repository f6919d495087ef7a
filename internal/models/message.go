package models

import "encoding/json"

// Websocket message types
const (
	MsgTypeJoin          = "join"
	MsgTypeLocation      = "location_update"
	MsgTypeSpeedBump     = "speed_bump_detected"
	MsgTypeSessionUpdate = "session_update"
	MsgTypeAck           = "ack"
	MsgTypePing          = "ping"
	MsgTypePong          = "pong"
	MsgTypeError         = "error"
)

// Envelope is the tagged wire format for all hub traffic. Payload is decoded
// per-type by the hub.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload declares (or re-declares) the sender's session affinity.
type JoinPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

// LocationPayload is a live position update, relayed session-scoped.
type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
}

// SessionUpdatePayload announces a session status transition.
type SessionUpdatePayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

// AckPayload acknowledges one inbound message to its sender.
type AckPayload struct {
	Received string `json:"received"`
}

// ErrorPayload is sent to the offending sender only; the connection stays open.
type ErrorPayload struct {
	Message string `json:"message"`
}
