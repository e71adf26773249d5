package websocket

import "github.com/prappser/prappser_upload/internal/upload"

type MessageType string

const (
	MessageTypeUpload      MessageType = "upload"
	MessageTypeConnected   MessageType = "connected"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

type IncomingMessage struct {
	Type        MessageType `json:"type"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

type OutgoingMessage struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type UploadMessage struct {
	Type  MessageType   `json:"type"`
	Event *upload.Event `json:"event"`
}
