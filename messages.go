package main

import "context"

// ClientMessage is an inbound frame from the browser. Unknown Type values
// are ignored so new client builds can talk to old proxies.
type ClientMessage struct {
	Type string `json:"type"` // "command", "reconnect", "disconnect"
	Data string `json:"data,omitempty"`
}

// ServerMessage is an outbound frame to the browser. Exactly one of the
// output/status field groups is populated; pointers keep false values on the
// wire while omitting fields that don't belong to the frame type.
type ServerMessage struct {
	Type      string `json:"type"` // "output" or "status"
	Data      string `json:"data,omitempty"`
	GA        *bool  `json:"ga,omitempty"`
	Connected *bool  `json:"connected,omitempty"`
	Message   string `json:"message,omitempty"`
}

// outputMessage builds an "output" frame. ga marks that the chunk ended on a
// telnet go-ahead, so the client should flush it without waiting for a newline.
func outputMessage(data string, ga bool) ServerMessage {
	return ServerMessage{Type: "output", Data: data, GA: &ga}
}

// statusMessage builds a "status" frame narrating a lifecycle transition.
func statusMessage(connected bool, message string) ServerMessage {
	return ServerMessage{Type: "status", Connected: &connected, Message: message}
}

// sendStatus delivers a status frame to the outbox unless the session is
// already torn down.
func sendStatus(ctx context.Context, out chan<- ServerMessage, connected bool, message string) {
	select {
	case out <- statusMessage(connected, message):
	case <-ctx.Done():
	}
}
