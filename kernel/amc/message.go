// Package amc implements the kernel message bus: every service owns a FIFO
// inbox, and receivers pick messages out of it selectively by sender and by
// the event tag that leads a message body.
package amc

import "encoding/binary"

// EventTagSize is the number of leading body bytes that hold a message's
// event tag.
const EventTagSize = 4

// Message is an immutable envelope delivered through the bus. The body is
// referenced, never copied: ownership passes from the sender to the bus and
// then to the receiver.
type Message struct {
	source string
	body   []byte

	event    uint32
	hasEvent bool
}

// NewMessage wraps body as a message sent by source. The event tag is decoded
// once here; bodies shorter than EventTagSize carry no tag.
func NewMessage(source string, body []byte) *Message {
	m := &Message{source: source, body: body}
	if len(body) >= EventTagSize {
		m.event = binary.LittleEndian.Uint32(body)
		m.hasEvent = true
	}
	return m
}

// Source returns the name of the service that sent the message.
func (m *Message) Source() string { return m.source }

// Body returns the message body, including the leading event tag.
func (m *Message) Body() []byte { return m.body }

// Event returns the event tag and whether the body was long enough to carry
// one.
func (m *Message) Event() (uint32, bool) { return m.event, m.hasEvent }

// Payload returns the body bytes that follow the event tag. Untagged messages
// return their whole body.
func (m *Message) Payload() []byte {
	if !m.hasEvent {
		return m.body
	}
	return m.body[EventTagSize:]
}
