// Package abi exposes the message bus and the physical memory manager to the
// rest of the kernel. Every entry point receives the kernel Core explicitly;
// service names and messages arrive as raw byte buffers owned by the caller.
package abi

import (
	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/amc"
	"github.com/codyd51/axle-sub001/kernel/core"
)

// AmcAppendMessage queues the wire-encoded message at the tail of service's
// inbox. The destination recorded in the message header must name service.
// The message body is not copied; the caller hands ownership of message to
// the bus.
func AmcAppendMessage(c *core.Core, service, message []byte) *kernel.Error {
	name, err := DecodeName(service)
	if err != nil {
		return err
	}

	dest, msg, err := DecodeMessage(message)
	if err != nil {
		return err
	}
	if dest != name {
		return errDestinationMismatch
	}

	c.Bus.Append(name, msg)
	return nil
}

// AmcSelectMessage removes and returns the oldest message queued for service
// that was sent by one of sources and, if event is not nil, carries that
// event tag. A nil source list accepts any sender. It returns nil if no
// queued message qualifies. A malformed source name is reported as an error
// and never matches anything.
func AmcSelectMessage(c *core.Core, service []byte, sources [][]byte, event *uint32) (*amc.Message, *kernel.Error) {
	name, err := DecodeName(service)
	if err != nil {
		return nil, err
	}

	var filter amc.Filter
	if len(sources) != 0 {
		filter.Sources = make([]string, len(sources))
		for i, raw := range sources {
			if filter.Sources[i], err = DecodeName(raw); err != nil {
				return nil, err
			}
		}
	}
	if event != nil {
		filter = filter.WithEvent(*event)
	}

	msg, ok := c.Bus.Select(name, filter)
	if !ok {
		return nil, nil
	}
	return msg, nil
}

// AmcHasMessageFrom reports whether service has a queued message from source.
func AmcHasMessageFrom(c *core.Core, service, source []byte) (bool, *kernel.Error) {
	name, err := DecodeName(service)
	if err != nil {
		return false, err
	}

	sourceName, err := DecodeName(source)
	if err != nil {
		return false, err
	}

	return c.Bus.HasMessageFrom(name, sourceName), nil
}

// AmcHasAnyMessage reports whether service has any queued message.
func AmcHasAnyMessage(c *core.Core, service []byte) (bool, *kernel.Error) {
	name, err := DecodeName(service)
	if err != nil {
		return false, err
	}
	return c.Bus.HasAnyMessage(name), nil
}

// AmcInboxLength returns the number of messages queued for service.
func AmcInboxLength(c *core.Core, service []byte) (int, *kernel.Error) {
	name, err := DecodeName(service)
	if err != nil {
		return 0, err
	}
	return c.Bus.InboxLength(name), nil
}
