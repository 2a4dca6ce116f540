package amc

// Bus delivers messages between services. It never blocks: Select either
// finds a queued message or reports that none is available, and waiting for
// one is left to the scheduler.
type Bus struct {
	registry Registry
}

// NewBus returns an empty message bus.
func NewBus() *Bus {
	return &Bus{}
}

// Append queues m at the tail of service's inbox.
func (b *Bus) Append(service string, m *Message) {
	b.registry.withInbox(service, func(ib *inbox) {
		ib.push(m)
	})
}

// Select removes and returns the oldest message in service's inbox accepted
// by f. Messages that f rejects stay queued in their original order.
func (b *Bus) Select(service string, f Filter) (*Message, bool) {
	var (
		m  *Message
		ok bool
	)
	b.registry.withInbox(service, func(ib *inbox) {
		m, ok = ib.take(f)
	})
	return m, ok
}

// HasMessageFrom reports whether service has a queued message sent by source.
func (b *Bus) HasMessageFrom(service, source string) bool {
	return b.Peek(service, FromSources(source))
}

// HasAnyMessage reports whether service has any queued message.
func (b *Bus) HasAnyMessage(service string) bool {
	return b.InboxLength(service) != 0
}

// Peek reports whether service has a queued message accepted by f without
// removing it.
func (b *Bus) Peek(service string, f Filter) bool {
	var found bool
	b.registry.withInbox(service, func(ib *inbox) {
		found = ib.peek(f)
	})
	return found
}

// InboxLength returns the number of messages queued for service.
func (b *Bus) InboxLength(service string) int {
	var n int
	b.registry.withInbox(service, func(ib *inbox) {
		n = ib.len()
	})
	return n
}

// Registry returns the registry that owns the bus inboxes.
func (b *Bus) Registry() *Registry {
	return &b.registry
}
