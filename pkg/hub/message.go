// Package hub fans messages out to websocket subscribers.
//
// Messages carry an optional topic. Clients receive every topic unless they
// send a subscribe request naming the topics they want; messages without a
// topic reach everyone. Retained messages are replayed to clients when they
// connect or subscribe, so a new browser tab starts from the current state.
package hub

// Kind is the websocket frame type a message is written as.
type Kind uint8

const (
	Text Kind = iota
	Binary
)

// Message is one outbound frame.
type Message struct {
	Kind  Kind
	Data  []byte
	Topic string

	// Retain keeps the message as the latest of its topic. Ignored when
	// Topic is empty.
	Retain bool
}

// Subscribe is the request a client sends to filter topics. An empty list
// subscribes to everything again.
type Subscribe struct {
	Topics []string `json:"subscribe"`
}
