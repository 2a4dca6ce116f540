package amc

// Filter selects which queued messages a receiver is willing to accept.
// The zero Filter accepts any message.
type Filter struct {
	// Sources restricts delivery to messages sent by one of the listed
	// services. An empty list accepts every sender.
	Sources []string

	// Event restricts delivery to messages whose event tag equals Event.
	// It is only consulted when ByEvent is set.
	Event   uint32
	ByEvent bool
}

// AnyMessage accepts every message.
var AnyMessage = Filter{}

// FromSources returns a filter accepting messages sent by any of sources.
func FromSources(sources ...string) Filter {
	return Filter{Sources: sources}
}

// WithEvent returns a copy of f that additionally requires the event tag to
// equal event.
func (f Filter) WithEvent(event uint32) Filter {
	f.Event, f.ByEvent = event, true
	return f
}

// Matches reports whether m satisfies the filter.
func (f Filter) Matches(m *Message) bool {
	if len(f.Sources) != 0 {
		var fromSource bool
		for _, src := range f.Sources {
			if src == m.source {
				fromSource = true
				break
			}
		}
		if !fromSource {
			return false
		}
	}

	if f.ByEvent {
		event, tagged := m.Event()
		return tagged && event == f.Event
	}

	return true
}
