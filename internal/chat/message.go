package chat

import (
	"fmt"
	"time"
)

// ServerSender is the sender name of messages synthesized by the relay itself
const ServerSender = "Server"

// Notices sent by the relay to peers
const (
	NoticeShuttingDown     = "Server shutting down."
	NoticePeerDisconnected = "PEER DISCONNECTED"
)

// Message is one chat message exchanged between peers
type Message struct {
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	Time    time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current UTC time
func NewMessage(sender, content string) Message {
	return Message{
		Sender:  sender,
		Content: content,
		Time:    time.Now().UTC(),
	}
}

// SystemMessage creates a message sent on behalf of the relay
func SystemMessage(content string) Message {
	return NewMessage(ServerSender, content)
}

// IsSystem reports whether the message was synthesized by the relay
func (m Message) IsSystem() bool {
	return m.Sender == ServerSender
}

// String renders the message the way the relay and the client print it
func (m Message) String() string {
	return fmt.Sprintf("[%s] %s : %s", m.Time.UTC().Format("2006-01-02 15:04:05Z"), m.Sender, m.Content)
}
