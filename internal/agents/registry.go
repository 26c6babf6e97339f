// internal/agents/registry.go
package agents

import (
	"context"
	"fmt"
	"sync"
)

// Agent names used by the task decomposer.
const (
	AgentBookingOps        = "booking_ops"
	AgentCapacityAnalytics = "capacity_analytics"
)

// Registry maps agent names to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its name. Registering the same name twice
// replaces the previous provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider for an agent name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("no provider registered for agent %q", name)
	}
	return p, nil
}

// Call routes a tool call to the named agent.
func (r *Registry) Call(ctx context.Context, agent, toolName string, args map[string]interface{}) (map[string]interface{}, error) {
	p, err := r.Get(agent)
	if err != nil {
		return nil, err
	}
	return p.Call(ctx, toolName, args)
}

// Names returns the registered agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
