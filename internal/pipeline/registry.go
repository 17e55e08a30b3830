package pipeline

import (
	"fmt"
	"sync"
)

// Registry manages registered cleaning rules. Registration order is the
// execution order: rules run exactly in the sequence they were registered,
// with no reordering. A rule that depends on another rule's output must
// simply be registered after it.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRegistry creates a new rule registry
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
		order: make([]string, 0),
	}
}

// Register adds a rule to the registry
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("cannot register nil rule")
	}

	id := rule.ID()
	if id == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; exists {
		return fmt.Errorf("rule with ID %s already registered", id)
	}

	r.rules[id] = rule
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a rule by ID
func (r *Registry) Get(id string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule with ID %s not found", id)
	}

	return rule, nil
}

// Has checks if a rule is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rules[id]
	return exists
}

// List returns all registered rules in registration order
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		if rule, exists := r.rules[id]; exists {
			rules = append(rules, rule)
		}
	}

	return rules
}

// ListIDs returns all registered rule IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered rules
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}

// Clear removes all registered rules
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = make(map[string]Rule)
	r.order = make([]string, 0)
}
