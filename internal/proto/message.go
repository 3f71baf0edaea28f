package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSend = "send"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventDelivered = "delivered"
)

// SendData is a direct message from the client. The sender is taken from
// the connection's bound identity, never from the payload.
type SendData struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventDeliveredData carries a persisted message to both conversation sides.
type EventDeliveredData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Content  string `json:"content"`
	Sequence int64  `json:"sequence"`
	TS       int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
