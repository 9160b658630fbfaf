package websocket

import "time"

type MessageType string

const (
	TypeWorkspaceUpdated MessageType = "workspace_updated"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
)

type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}
