package model

import "time"

// Event types carried over the per-connection channel
const (
	EventRegisterUser   = "register_user"
	EventConnectToUser  = "connect_to_user"
	EventSendMessage    = "send_message"
	EventSystemMessage  = "system_message"
	EventReceiveMessage = "receive_message"
)

// TimeFormat is the wall-clock format attached to outbound events
const TimeFormat = "15:04"

// Event is one outbound envelope, serialized as a single JSON frame
type Event struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Receiver PIN    `json:"receiver,omitempty"`
	Message  string `json:"message,omitempty"`
	Time     string `json:"time"`
}

// SystemMessage builds an informational or error notice
func SystemMessage(text string, now time.Time) Event {
	return Event{
		Type: EventSystemMessage,
		Text: text,
		Time: now.Format(TimeFormat),
	}
}

// ReceiveMessage builds a chat payload event
func ReceiveMessage(sender string, receiver PIN, message string, now time.Time) Event {
	return Event{
		Type:     EventReceiveMessage,
		Sender:   sender,
		Receiver: receiver,
		Message:  message,
		Time:     now.Format(TimeFormat),
	}
}

// Inbound is one client-issued envelope read off the transport
type Inbound struct {
	Type     string `json:"type"`
	Target   string `json:"target,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Message  string `json:"message,omitempty"`
}
