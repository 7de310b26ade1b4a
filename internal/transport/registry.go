package transport

import "sync"

// registration records one connected agent and the tools it serves.
// The router is the sole owner; entries live from register to disconnect.
type registration struct {
	agentID string
	tools   []string
	conn    *conn
}

// registry maintains the live tool_name → agent connection mapping.
type registry struct {
	mu     sync.RWMutex
	agents map[string]*registration
	byTool map[string]map[string]*registration
}

func newRegistry() *registry {
	return &registry{
		agents: make(map[string]*registration),
		byTool: make(map[string]map[string]*registration),
	}
}

// register records an agent's tools. Registration is idempotent and last
// registration wins: any prior entry for the same agent id is replaced.
func (r *registry) register(agentID string, tools []string, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(agentID)

	reg := &registration{
		agentID: agentID,
		tools:   tools,
		conn:    c,
	}
	r.agents[agentID] = reg

	for _, tool := range tools {
		serving, ok := r.byTool[tool]
		if !ok {
			serving = make(map[string]*registration)
			r.byTool[tool] = serving
		}
		serving[agentID] = reg
	}
}

// unregister removes the agent's registrations, but only when they
// still belong to the given connection. A stale connection dropping
// after the agent re-registered must not tear down the live entry.
func (r *registry) unregister(agentID string, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.agents[agentID]
	if !ok || reg.conn != c {
		return
	}
	r.removeLocked(agentID)
}

func (r *registry) removeLocked(agentID string) {
	reg, ok := r.agents[agentID]
	if !ok {
		return
	}

	delete(r.agents, agentID)
	for _, tool := range reg.tools {
		if serving, ok := r.byTool[tool]; ok {
			delete(serving, agentID)
			if len(serving) == 0 {
				delete(r.byTool, tool)
			}
		}
	}
}

// lookup returns a connected agent serving the named tool, or false when
// none is available.
func (r *registry) lookup(tool string) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.byTool[tool] {
		return reg, true
	}
	return nil, false
}

// toolNames returns the tools the named agent currently serves.
func (r *registry) toolNames(agentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	return append([]string(nil), reg.tools...)
}
