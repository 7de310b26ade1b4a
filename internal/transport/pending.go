package transport

import "sync"

// pendingEntry tracks one in-flight invocation: where the reply goes and
// which agent connection is expected to produce it. Entries reference
// the connection rather than the agent id so a stale connection's
// teardown cannot fail requests routed over a newer one.
type pendingEntry struct {
	origin *conn
	agent  *conn
}

// pendingTable is the correlation table for in-flight requests, keyed by
// request id. Entries are removed exactly once, when the first reply for
// an id arrives or the owning connection drops; later replies for the
// same id find nothing and are discarded.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries: make(map[string]pendingEntry),
	}
}

// add records an in-flight request. Returns false when the id is already
// pending, which callers reject as a duplicate.
func (p *pendingTable) add(id string, origin, agent *conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[id]; exists {
		return false
	}
	p.entries[id] = pendingEntry{origin: origin, agent: agent}
	return true
}

// resolve removes and returns the entry for id. The second return is
// false when no entry exists, meaning the reply is late or unsolicited.
func (p *pendingTable) resolve(id string) (pendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	return entry, ok
}

// dropOrigin removes every entry owned by the given client connection.
func (p *pendingTable) dropOrigin(origin *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, entry := range p.entries {
		if entry.origin == origin {
			delete(p.entries, id)
		}
	}
}

// failAgent removes every entry routed over the given agent connection
// and returns the affected ids with their origins so the router can
// resolve them with a connection failure.
func (p *pendingTable) failAgent(agent *conn) map[string]*conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	failed := make(map[string]*conn)
	for id, entry := range p.entries {
		if entry.agent == agent {
			failed[id] = entry.origin
			delete(p.entries, id)
		}
	}
	return failed
}
