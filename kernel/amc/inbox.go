package amc

// inbox is a service's queue of undelivered messages in arrival order.
type inbox struct {
	msgs []*Message
}

func (ib *inbox) push(m *Message) {
	ib.msgs = append(ib.msgs, m)
}

// take removes and returns the oldest message accepted by f. The remaining
// messages keep their relative order.
func (ib *inbox) take(f Filter) (*Message, bool) {
	for index, m := range ib.msgs {
		if !f.Matches(m) {
			continue
		}

		last := len(ib.msgs) - 1
		if index == 0 {
			ib.msgs[0] = nil
			ib.msgs = ib.msgs[1:]
		} else {
			copy(ib.msgs[index:], ib.msgs[index+1:])
			ib.msgs[last] = nil
			ib.msgs = ib.msgs[:last]
		}
		return m, true
	}

	return nil, false
}

// peek reports whether any queued message is accepted by f.
func (ib *inbox) peek(f Filter) bool {
	for _, m := range ib.msgs {
		if f.Matches(m) {
			return true
		}
	}
	return false
}

func (ib *inbox) len() int {
	return len(ib.msgs)
}
