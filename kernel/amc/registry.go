package amc

import (
	"sort"

	"github.com/codyd51/axle-sub001/kernel/kfmt"
	"github.com/codyd51/axle-sub001/kernel/sync"
)

// Registry maps service names to their inboxes. Inboxes are created the first
// time a service is touched and live for the rest of the kernel session. A
// single lock covers the map and every inbox in it.
type Registry struct {
	lock    sync.Spinlock
	inboxes map[string]*inbox
}

// ensure returns the inbox for service, creating it if needed, and reports
// whether it was created. The caller must hold the registry lock.
func (r *Registry) ensure(service string) (*inbox, bool) {
	if r.inboxes == nil {
		r.inboxes = make(map[string]*inbox)
	}

	ib, ok := r.inboxes[service]
	if !ok {
		ib = new(inbox)
		r.inboxes[service] = ib
	}
	return ib, !ok
}

// withInbox runs fn against the inbox of service while holding the registry
// lock. fn must not call back into the registry.
func (r *Registry) withInbox(service string, fn func(*inbox)) {
	r.lock.Acquire()
	ib, created := r.ensure(service)
	fn(ib)
	r.lock.Release()

	if created {
		kfmt.Printf("[amc] created inbox for %q\n", service)
	}
}

// Ensure creates an empty inbox for service if it does not have one yet.
func (r *Registry) Ensure(service string) {
	r.withInbox(service, func(*inbox) {})
}

// Services returns the names of all services that own an inbox, sorted.
func (r *Registry) Services() []string {
	r.lock.Acquire()
	names := make([]string, 0, len(r.inboxes))
	for name := range r.inboxes {
		names = append(names, name)
	}
	r.lock.Release()

	sort.Strings(names)
	return names
}
