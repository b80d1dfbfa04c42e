package condition

import (
	"errors"
	"fmt"
	"sort"
)

// Params holds the decoded fields of one requirement declaration, minus its
// "type" key. Values are whatever the content decoder produced: string,
// int, float64, bool, or []any.
type Params map[string]any

// Factory builds a Requirement from its declaration parameters.
type Factory interface {
	New(p Params) (Requirement, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(p Params) (Requirement, error)

// New implements Factory.
func (f FactoryFunc) New(p Params) (Requirement, error) { return f(p) }

// Registry maps requirement type names to factories.
//
// Registry is not safe for concurrent Register; populate it before loading content.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds f under typeName.
//
// Precondition: typeName must be non-empty; f must be non-nil.
// Postcondition: returns error if typeName is already registered.
func (r *Registry) Register(typeName string, f Factory) error {
	if typeName == "" {
		return errors.New("condition: Registry.Register: type name must not be empty")
	}
	if _, exists := r.factories[typeName]; exists {
		return fmt.Errorf("condition: Registry.Register: type %q already registered", typeName)
	}
	r.factories[typeName] = f
	return nil
}

// Build constructs a Requirement of the named type.
//
// Postcondition: returns error for an unknown type or invalid params.
func (r *Registry) Build(typeName string, p Params) (Requirement, error) {
	f, ok := r.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("condition: unknown requirement type %q", typeName)
	}
	req, err := f.New(p)
	if err != nil {
		return nil, fmt.Errorf("condition: building %q requirement: %w", typeName, err)
	}
	return req, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p Params) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%q must be a non-empty string", key)
	}
	return s, nil
}

func (p Params) number(key string) (float64, bool, error) {
	v, ok := p[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float64:
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("%q must be a number", key)
	}
}

func (p Params) strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	switch vs := v.(type) {
	case string:
		return []string{vs}, nil
	case []string:
		return vs, nil
	case []any:
		out := make([]string, 0, len(vs))
		for i, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%q[%d] must be a string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q must be a string or list of strings", key)
	}
}
