package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iterguard/iterguard/pkg/models"
)

// ErrUnregisteredValidator indicates a custom rule references a validator id
// no one registered.
var ErrUnregisteredValidator = errors.New("unregistered custom validator")

// CustomValidator is the extension point for caller-registered checks.
type CustomValidator interface {
	// Validate runs the check with the rule's opaque config blob against the
	// session context. A returned error marks the result as errored rather
	// than failed.
	Validate(ctx context.Context, cfg map[string]any, vctx Context) (passed bool, message string, details map[string]any, err error)
}

// CustomValidatorFunc adapts a function to the CustomValidator interface.
type CustomValidatorFunc func(ctx context.Context, cfg map[string]any, vctx Context) (bool, string, map[string]any, error)

// Validate implements CustomValidator.
func (f CustomValidatorFunc) Validate(ctx context.Context, cfg map[string]any, vctx Context) (bool, string, map[string]any, error) {
	return f(ctx, cfg, vctx)
}

// Registry is a capability-indexed map of custom validators, resolved at
// engine construction so an unregistered id fails fast and deterministically.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]CustomValidator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]CustomValidator)}
}

// Register adds a validator under the given id.
func (r *Registry) Register(id string, v CustomValidator) error {
	if id == "" {
		return fmt.Errorf("validator id must not be empty")
	}
	if v == nil {
		return fmt.Errorf("validator %q is nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[id]; exists {
		return fmt.Errorf("validator %q already registered", id)
	}
	r.validators[id] = v
	return nil
}

// Lookup returns the validator registered under id.
func (r *Registry) Lookup(id string) (CustomValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[id]
	return v, ok
}

// IDs returns the registered validator ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.validators))
	for id := range r.validators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve verifies that every enabled custom rule in the set references a
// registered validator. Called before a session starts.
func (r *Registry) Resolve(ruleSet []models.ValidationRule) error {
	for _, rule := range ruleSet {
		if rule.Type != models.RuleCustom || !rule.IsEnabled() {
			continue
		}
		if rule.Custom == nil {
			continue
		}
		if _, ok := r.Lookup(rule.Custom.ValidatorID); !ok {
			return fmt.Errorf("rule %q: %w: %q", rule.Name, ErrUnregisteredValidator, rule.Custom.ValidatorID)
		}
	}
	return nil
}
