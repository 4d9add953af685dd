package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrToolNotFound is returned by Lookup for unknown names.
	ErrToolNotFound = errors.New("tool not found")
)

// Registered is a descriptor accepted by the registry, with its input
// schema compiled once at registration time.
type Registered struct {
	*Descriptor
	schema *jsonschema.Schema
}

// ParseInput validates raw JSON input against the tool's input schema and
// returns the decoded object. The descriptor's Execute only ever sees
// input that passed this.
func (r *Registered) ParseInput(raw json.RawMessage) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	if r.schema != nil {
		if err := r.schema.Validate(v); err != nil {
			return nil, err
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input must be a JSON object")
	}
	return obj, nil
}

// Registry holds all registered tool descriptors. Registration is
// append-only at process start; there is no removal API.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Registered
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Registered)}
}

// Register validates and adds a descriptor. Malformed descriptors fail
// here, never at call time.
func (reg *Registry) Register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("Register: descriptor is nil")
	}
	if err := validateDescriptor(d); err != nil {
		return fmt.Errorf("Register %q: %w", d.Name, err)
	}

	var schema *jsonschema.Schema
	if d.InputSchema != nil {
		compiled, err := compileSchema(d.InputSchema)
		if err != nil {
			return fmt.Errorf("Register %q: input schema: %w", d.Name, err)
		}
		schema = compiled
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.tools[d.Name]; exists {
		return fmt.Errorf("Register %q: %w", d.Name, ErrDuplicateTool)
	}
	reg.tools[d.Name] = &Registered{Descriptor: d, schema: schema}
	return nil
}

// RegisterAll registers a provider module's descriptor set, stopping at the
// first failure.
func (reg *Registry) RegisterAll(descriptors []*Descriptor) error {
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the registered tool by name.
func (reg *Registry) Lookup(name string) (*Registered, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.tools[name]
	if !ok {
		return nil, fmt.Errorf("Lookup %q: %w", name, ErrToolNotFound)
	}
	return r, nil
}

// Filter selects descriptors in Discover. Nil pointer fields match anything.
type Filter struct {
	Category         string
	Provider         string
	RequiresApproval *bool
	Enabled          *bool
}

func (f Filter) matches(d *Descriptor) bool {
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.Provider != "" && d.Provider != f.Provider {
		return false
	}
	if f.RequiresApproval != nil {
		needs := d.ApprovalPolicy == RequireApproval
		if needs != *f.RequiresApproval {
			return false
		}
	}
	if f.Enabled != nil && d.Enabled != *f.Enabled {
		return false
	}
	return true
}

// Discover returns all descriptors matching the filter, sorted by name.
func (reg *Registry) Discover(f Filter) []*Registered {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]*Registered, 0, len(reg.tools))
	for _, r := range reg.tools {
		if f.matches(r.Descriptor) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func validateDescriptor(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Category == "" {
		return fmt.Errorf("category is required")
	}
	if d.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !d.ApprovalPolicy.Valid() {
		return fmt.Errorf("invalid approval policy %q", d.ApprovalPolicy)
	}
	if d.Execute == nil {
		return fmt.Errorf("execute func is required")
	}
	if d.RateLimit != nil {
		if d.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("rate limit max requests must be positive")
		}
		if d.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	return nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}
