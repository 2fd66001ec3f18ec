package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"go-intentflow/pkg/models"
)

// Registry is a static lookup table of tool definitions. Schemas are compiled at registration.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]Definition
	schemas map[string]*jsonschema.Schema
	order   []string
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs:    make(map[string]Definition, len(defs)),
		schemas: make(map[string]*jsonschema.Schema, len(defs)),
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry returns a registry holding DefaultCatalog.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultCatalog()...)
	if err != nil {
		panic(fmt.Sprintf("default tool catalog: %v", err))
	}
	return r
}

func (r *Registry) Register(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("tool definition without a name")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("tool %s: invalid category %q", d.Name, d.Category)
	}
	var schema *jsonschema.Schema
	if d.Parameters != "" {
		compiler := jsonschema.NewCompiler()
		s, err := compiler.Compile([]byte(d.Parameters))
		if err != nil {
			return fmt.Errorf("tool %s: compile schema: %w", d.Name, err)
		}
		schema = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.defs[d.Name] = d
	r.schemas[d.Name] = schema
	return nil
}

func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r *Registry) Category(name string) (models.Category, bool) {
	d, ok := r.Get(name)
	if !ok {
		return "", false
	}
	return d.Category, true
}

// List returns definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Validate checks params against the tool's parameter schema.
func (r *Registry) Validate(name string, params map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	_, known := r.defs[name]
	r.mu.RUnlock()
	if !known {
		return fmt.Errorf("unknown tool %q", name)
	}
	if !ok || schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("tool %s: schema validation failed: %v", name, result.Errors)
}

// DefaultParams builds the arguments used when a tool is called straight from a
// classification: the defaults plus the query, when the tool takes one.
func (r *Registry) DefaultParams(name, query string) map[string]any {
	d, ok := r.Get(name)
	if !ok {
		return map[string]any{}
	}
	params := make(map[string]any, len(d.Defaults)+1)
	for k, v := range d.Defaults {
		params[k] = v
	}
	if d.QueryParam != "" {
		params[d.QueryParam] = strings.TrimSpace(query)
	}
	return params
}

// Describe renders the catalog for planning and classification prompts.
func (r *Registry) Describe() string {
	defs := r.List()
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Category < defs[j].Category })
	var b strings.Builder
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s [%s]: %s parameters: %s\n", d.Name, d.Category, d.Description, d.Parameters)
	}
	return b.String()
}
